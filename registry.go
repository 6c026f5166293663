/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"sort"
	"strings"
)

const maxNameLength = 24

// Player holds the data we store server-side for one participant.
type Player struct {
	ID    string
	Name  string
	Score int

	// joined orders players by arrival and breaks leaderboard ties.
	joined int
}

// Registry owns every known player for the current session. It is not
// synchronized itself; all access happens on the hub goroutine.
type Registry struct {
	players map[string]*Player

	joinSeq     int
	nameCounter int
}

func newRegistry() *Registry {
	return &Registry{
		players: make(map[string]*Player),
	}
}

// sanitizeName strips C0/DEL control characters, collapses whitespace runs to
// a single space, trims, and truncates to maxNameLength runes. An empty result
// means the caller should fall back to a sequential default name.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}

	cleaned := strings.Join(strings.Fields(b.String()), " ")

	runes := []rune(cleaned)
	if len(runes) > maxNameLength {
		runes = runes[:maxNameLength]
	}

	return string(runes)
}

// ensure is an idempotent upsert: an existing id is returned untouched, a new
// id is registered under the sanitized desired name, or under the next
// sequential "Player {n}" default when no usable name was supplied.
func (reg *Registry) ensure(id, desiredName string) (*Player, bool) {
	if player, ok := reg.players[id]; ok {
		return player, false
	}

	name := sanitizeName(desiredName)
	if name == "" {
		reg.nameCounter++
		name = fmt.Sprintf("Player %d", reg.nameCounter)
	}

	reg.joinSeq++
	player := &Player{
		ID:     id,
		Name:   name,
		joined: reg.joinSeq,
	}
	reg.players[id] = player

	return player, true
}

// rename applies the sanitizer and reports whether the stored name actually
// changed. An unusable new name leaves the current one in place.
func (reg *Registry) rename(id, newName string) (string, bool) {
	player, ok := reg.players[id]
	if !ok {
		return "", false
	}

	name := sanitizeName(newName)
	if name == "" || name == player.Name {
		return player.Name, false
	}

	player.Name = name

	return name, true
}

func (reg *Registry) get(id string) *Player {
	return reg.players[id]
}

// remove deletes the player entirely. There is no grace period; a disconnect
// forfeits the score.
func (reg *Registry) remove(id string) bool {
	if _, ok := reg.players[id]; !ok {
		return false
	}

	delete(reg.players, id)

	return true
}

// reset clears all players and restarts default naming from "Player 1".
func (reg *Registry) reset() {
	reg.players = make(map[string]*Player)
	reg.joinSeq = 0
	reg.nameCounter = 0
}

// byJoinOrder returns all players sorted by arrival.
func (reg *Registry) byJoinOrder() []*Player {
	players := make([]*Player, 0, len(reg.players))
	for _, player := range reg.players {
		players = append(players, player)
	}

	sort.Slice(players, func(i, j int) bool {
		return players[i].joined < players[j].joined
	})

	return players
}

// byScore returns all players sorted by score descending, ties broken by
// arrival order so repeated calls yield a stable ranking.
func (reg *Registry) byScore() []*Player {
	players := reg.byJoinOrder()

	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Score > players[j].Score
	})

	return players
}
