/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import "github.com/google/uuid"

// Coarse game states sent to clients. "idle" is represented by the absence of
// a round; the other two mirror the round status.
const (
	stateIdle       = "idle"
	stateCollecting = "collecting"
	stateRevealed   = "revealed"
)

// Round is one prompt→submissions→reveal cycle. At most one exists at a time.
type Round struct {
	ID     string
	Prompt string
	Status string

	// Submissions maps player id to the raw submitted word. At most one word
	// per player; a later submission overwrites the earlier one.
	Submissions map[string]string

	// Frozen at reveal so a repeated close stays a no-op and late host
	// connections can be shown the same results.
	Results   []WordResult
	PerPlayer []PlayerRound
}

func newRound(prompt string) *Round {
	return &Round{
		ID:          uuid.NewString(),
		Prompt:      prompt,
		Status:      stateCollecting,
		Submissions: make(map[string]string),
	}
}

func (r *Round) collecting() bool {
	return r != nil && r.Status == stateCollecting
}

func (r *Round) revealed() bool {
	return r != nil && r.Status == stateRevealed
}
