/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import "sort"

// View projections are pure functions from canonical state to the role-scoped
// snapshots the hub fans out. Nothing here mutates the game.

// LeaderboardEntry is the public score line: no raw words, ever.
type LeaderboardEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// PlayerOverview is the host-only live view of one player, including their
// raw submitted word while the round is still collecting.
type PlayerOverview struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Submitted bool   `json:"submitted"`
	Word      string `json:"word,omitempty"`
}

// RoundInfo is the public shape of a round. Submissions are never included;
// the host sees words through PlayerOverview instead.
type RoundInfo struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
	Status string `json:"status"`
}

func roundInfo(round *Round) *RoundInfo {
	if round == nil {
		return nil
	}

	return &RoundInfo{
		ID:     round.ID,
		Prompt: round.Prompt,
		Status: round.Status,
	}
}

// leaderboard lists all players sorted by score descending, ties broken by
// join order.
func leaderboard(reg *Registry) []LeaderboardEntry {
	players := reg.byScore()

	entries := make([]LeaderboardEntry, 0, len(players))
	for _, player := range players {
		entries = append(entries, LeaderboardEntry{
			ID:    player.ID,
			Name:  player.Name,
			Score: player.Score,
		})
	}

	return entries
}

// playersOverview builds the host view in join order. Submissions from
// players who have since left the registry are skipped rather than projected.
func playersOverview(g *Game) []PlayerOverview {
	overview := make([]PlayerOverview, 0, len(g.registry.players))

	for _, player := range g.registry.byJoinOrder() {
		entry := PlayerOverview{
			ID:    player.ID,
			Name:  player.Name,
			Score: player.Score,
		}

		if g.round != nil {
			if word, ok := g.round.Submissions[player.ID]; ok {
				entry.Submitted = true
				entry.Word = word
			}
		}

		overview = append(overview, entry)
	}

	return overview
}

// submittedIDs lists the ids of registered players who have submitted this
// round, sorted for deterministic output. It deliberately leaks no content.
func submittedIDs(g *Game) []string {
	if g.round == nil {
		return []string{}
	}

	ids := make([]string, 0, len(g.round.Submissions))
	for playerID := range g.round.Submissions {
		if g.registry.get(playerID) == nil {
			continue
		}
		ids = append(ids, playerID)
	}

	sort.Strings(ids)

	return ids
}

// publicPerPlayer strips raw words from the reveal summary for the player and
// viewer channels; points and totals stay.
func publicPerPlayer(perPlayer []PlayerRound) []PlayerRound {
	public := make([]PlayerRound, len(perPlayer))

	for i, entry := range perPlayer {
		entry.Word = ""
		public[i] = entry
	}

	return public
}
