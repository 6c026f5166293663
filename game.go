/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

// Game is the canonical state of the single room: the player registry and the
// active round, if any. It has exactly one owner, the hub goroutine, so its
// methods carry no locking; every mutation runs as one indivisible step.
type Game struct {
	registry *Registry
	round    *Round
}

func newGame() *Game {
	return &Game{
		registry: newRegistry(),
	}
}

// state derives the coarse game state broadcast to all roles.
func (g *Game) state() string {
	if g.round == nil {
		return stateIdle
	}

	return g.round.Status
}

// startRound replaces any previous round with a fresh collecting one. It has
// no precondition: starting over a still-collecting round discards it.
func (g *Game) startRound(prompt string) *Round {
	g.round = newRound(prompt)

	return g.round
}

// closeRound transitions a collecting round to revealed and applies scoring
// exactly once. Closing with no round, or an already-revealed one, is a no-op
// and reports false.
func (g *Game) closeRound() bool {
	if !g.round.collecting() {
		return false
	}

	g.round.Status = stateRevealed
	g.round.Results, g.round.PerPlayer = scoreRound(g.round, g.registry)

	return true
}

// reset starts an entirely fresh session: the round, every player, and the
// default-name counter are all cleared.
func (g *Game) reset() {
	g.round = nil
	g.registry.reset()
}

// recordSubmission validates and stores one player's word for the active
// round, overwriting any earlier submission by the same player. The round
// status never changes here.
func (g *Game) recordSubmission(playerID, word string) error {
	if !g.round.collecting() {
		return errNoActiveRound
	}

	if err := validateWord(g.round.Prompt, word); err != nil {
		return err
	}

	g.round.Submissions[playerID] = word

	return nil
}
