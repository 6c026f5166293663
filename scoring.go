/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import "sort"

// WordResult is one distinct normalized word with its frequency and the
// points each of its submitters earned.
type WordResult struct {
	Word      string `json:"word"`
	Frequency int    `json:"frequency"`
	Points    int    `json:"points"`
}

// PlayerRound summarizes one player's round for the reveal: whether they
// submitted, their raw word, the points gained, and the new total.
type PlayerRound struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	Submitted bool   `json:"submitted"`
	Word      string `json:"word,omitempty"`
	Points    int    `json:"points"`
	Score     int    `json:"score"`
}

// scoreRound tallies the round's submissions by normalized word and credits
// each submitter max(frequency−1, 0) points: a unique word earns nothing, a
// word shared by k players earns k−1 each. Scores only ever increase here.
// Submissions from players no longer in the registry are ignored.
func scoreRound(round *Round, reg *Registry) ([]WordResult, []PlayerRound) {
	frequencies := make(map[string]int)
	normalized := make(map[string]string, len(round.Submissions))

	for playerID, raw := range round.Submissions {
		if reg.get(playerID) == nil {
			continue
		}
		word := normalizeWord(raw)
		normalized[playerID] = word
		frequencies[word]++
	}

	results := make([]WordResult, 0, len(frequencies))
	for word, freq := range frequencies {
		points := freq - 1
		if points < 0 {
			points = 0
		}
		results = append(results, WordResult{
			Word:      word,
			Frequency: freq,
			Points:    points,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Frequency != results[j].Frequency {
			return results[i].Frequency > results[j].Frequency
		}
		return results[i].Word < results[j].Word
	})

	perPlayer := make([]PlayerRound, 0, len(reg.players))
	for _, player := range reg.byJoinOrder() {
		entry := PlayerRound{
			PlayerID: player.ID,
			Name:     player.Name,
		}

		if word, ok := normalized[player.ID]; ok {
			entry.Submitted = true
			entry.Word = round.Submissions[player.ID]
			entry.Points = frequencies[word] - 1
			player.Score += entry.Points
		}

		entry.Score = player.Score
		perPlayer = append(perPlayer, entry)
	}

	return results, perPlayer
}
