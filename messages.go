/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

// ClientMessage covers every message a client may send over the stream.
// Type selects the variant; messages with unknown types are ignored.
type ClientMessage struct {
	Type     string `json:"type"`               // "hello", "rename", "submit"
	Role     string `json:"role,omitempty"`     // hello: "host", "viewer", or "player" (default)
	PlayerID string `json:"playerId,omitempty"` // hello
	Name     string `json:"name,omitempty"`     // hello / rename
	Word     string `json:"word,omitempty"`     // submit
}

// Every server→client message carries the coarse game state so clients can
// render statelessly.

// HelloAckMessage is the unicast handshake reply for players.
type HelloAckMessage struct {
	Type         string             `json:"type"` // "hello_ack"
	GameState    string             `json:"gameState"`
	PlayerID     string             `json:"playerId"`
	Name         string             `json:"name"`
	Submitted    bool               `json:"submitted"`
	SubmittedIDs []string           `json:"submittedIds"`
	Round        *RoundInfo         `json:"round,omitempty"`
	Leaderboard  []LeaderboardEntry `json:"leaderboard"`
	Results      []WordResult       `json:"results,omitempty"`
	PerPlayer    []PlayerRound      `json:"perPlayerRound,omitempty"`
}

// HostHelloAckMessage is the unicast handshake reply for the host console,
// the only snapshot containing raw words while a round is still collecting.
type HostHelloAckMessage struct {
	Type        string             `json:"type"` // "host_hello_ack"
	GameState   string             `json:"gameState"`
	Round       *RoundInfo         `json:"round,omitempty"`
	Players     []PlayerOverview   `json:"players"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Results     []WordResult       `json:"results,omitempty"`
	PerPlayer   []PlayerRound      `json:"perPlayerRound,omitempty"`
}

// ViewerHelloAckMessage is the unicast handshake reply for read-only viewers.
type ViewerHelloAckMessage struct {
	Type         string             `json:"type"` // "viewer_hello_ack"
	GameState    string             `json:"gameState"`
	Round        *RoundInfo         `json:"round,omitempty"`
	SubmittedIDs []string           `json:"submittedIds"`
	Leaderboard  []LeaderboardEntry `json:"leaderboard"`
	Results      []WordResult       `json:"results,omitempty"`
	PerPlayer    []PlayerRound      `json:"perPlayerRound,omitempty"`
}

type RenameAckMessage struct {
	Type      string `json:"type"` // "rename_ack"
	GameState string `json:"gameState"`
	Name      string `json:"name"`
}

type SubmitAckMessage struct {
	Type      string `json:"type"` // "submit_ack"
	GameState string `json:"gameState"`
	OK        bool   `json:"ok"`
}

// SubmitRejectMessage is sent to the submitter only; the round is unaffected.
type SubmitRejectMessage struct {
	Type      string `json:"type"` // "submit_reject"
	GameState string `json:"gameState"`
	Reason    string `json:"reason"`
}

type RoundStartedMessage struct {
	Type      string    `json:"type"` // "round_started"
	GameState string    `json:"gameState"`
	Round     RoundInfo `json:"round"`
}

// RoundProgressMessage lists who has answered without leaking content.
type RoundProgressMessage struct {
	Type         string   `json:"type"` // "round_progress"
	GameState    string   `json:"gameState"`
	SubmittedIDs []string `json:"submittedIds"`
}

type SubmissionCountMessage struct {
	Type      string `json:"type"` // "submission_count"
	GameState string `json:"gameState"`
	Count     int    `json:"count"`
}

// RoundRevealedMessage carries the reveal. Viewers receive a projection with
// raw words stripped from the per-player summary.
type RoundRevealedMessage struct {
	Type        string             `json:"type"` // "round_revealed"
	GameState   string             `json:"gameState"`
	Round       RoundInfo          `json:"round"`
	Results     []WordResult       `json:"results"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	PerPlayer   []PlayerRound      `json:"perPlayerRound"`
}

// PlayersOverviewMessage is host-only: it includes raw submitted words.
type PlayersOverviewMessage struct {
	Type      string           `json:"type"` // "players_overview"
	GameState string           `json:"gameState"`
	Players   []PlayerOverview `json:"players"`
}

type LeaderboardMessage struct {
	Type        string             `json:"type"` // "leaderboard"
	GameState   string             `json:"gameState"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type GameResetMessage struct {
	Type        string             `json:"type"` // "game_reset"
	GameState   string             `json:"gameState"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// ControlRequest is the body of the host's synchronous control endpoint.
type ControlRequest struct {
	Action string `json:"action"` // "start", "close", "reset"
	Prompt string `json:"prompt,omitempty"`
}

type ControlResponse struct {
	OK        bool       `json:"ok"`
	GameState string     `json:"gameState"`
	Round     *RoundInfo `json:"round,omitempty"`
	Error     string     `json:"error,omitempty"`
}
