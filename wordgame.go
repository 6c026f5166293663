// Partybox-style Word Association Game
//
// A host broadcasts a prompt, every player submits one word, and words chosen
// by several players earn points: a word shared by k players is worth k−1 to
// each of them. A live leaderboard is shown to three roles with different
// visibility: the host sees every raw word as it arrives, players see who has
// already answered, viewers see public state only.
//
// Features:
// - Single room per process: /word, /word/ws, /word/control, /word/qr
// - Connections are tagged host/player/viewer once, at handshake
// - Host console drives rounds through a synchronous control endpoint
// - Submissions too similar to the prompt are rejected (German compounding
//   heuristic: exact match, prompt words, and prefixes/suffixes of length ≥ 4)
// - Per-socket acknowledgements are enqueued before the wider broadcasts
// - Inbound messages are rate limited per connection
// - In-browser QR button to share the game page, backed by go-qrcode

package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"golang.org/x/time/rate"
)

const (
	handshakeWait = 10 * time.Second
	pongWait      = time.Minute
	pingPeriod    = 45 * time.Second
)

// role classifies a connection exactly once, at handshake time, and never
// changes for the socket's lifetime.
type role int

const (
	rolePlayer role = iota
	roleHost
	roleViewer
)

func parseRole(s string) role {
	switch s {
	case "host":
		return roleHost
	case "viewer":
		return roleViewer
	default:
		return rolePlayer
	}
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	role     role
	playerID string // players only
	limiter  *rate.Limiter
}

type registration struct {
	client      *Client
	desiredName string
}

type inboundFrame struct {
	client *Client
	msg    ClientMessage
}

type controlCommand struct {
	action string
	prompt string
	reply  chan ControlResponse
}

// Hub owns the canonical game state. Its run loop is the single goroutine
// that ever touches the registry or the round, so every mutation is an
// indivisible step; sockets only see snapshots queued on their send channels.
type Hub struct {
	game    *Game
	clients map[*Client]bool

	register   chan registration
	unregister chan *Client
	frames     chan inboundFrame
	controls   chan controlCommand
}

func newHub() *Hub {
	return &Hub{
		game:       newGame(),
		clients:    make(map[*Client]bool),
		register:   make(chan registration),
		unregister: make(chan *Client),
		frames:     make(chan inboundFrame, 64),
		controls:   make(chan controlCommand),
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case reg := <-h.register:
			h.handleRegister(cfg, reg)

		case c := <-h.unregister:
			h.handleUnregister(cfg, c)

		case f := <-h.frames:
			switch f.msg.Type {
			case "rename":
				h.handleRename(cfg, f)
			case "submit":
				h.handleSubmit(cfg, f)
			default:
				// ignore unknown types
			}

		case cmd := <-h.controls:
			h.handleControl(cfg, cmd)
		}
	}
}

// dropClient forgets a client and closes its send channel. Safe to call more
// than once per client.
func (h *Hub) dropClient(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// unicast queues one message for one client, dropping the client instead of
// blocking when its writer has fallen behind.
func (h *Hub) unicast(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		h.dropClient(c)
	}
}

func (h *Hub) broadcast(msg any) {
	for c := range h.clients {
		h.unicast(c, msg)
	}
}

func (h *Hub) broadcastHosts(msg any) {
	for c := range h.clients {
		if c.role == roleHost {
			h.unicast(c, msg)
		}
	}
}

// syncHosts re-sends the full players overview to every host console.
func (h *Hub) syncHosts() {
	h.broadcastHosts(PlayersOverviewMessage{
		Type:      "players_overview",
		GameState: h.game.state(),
		Players:   playersOverview(h.game),
	})
}

func (h *Hub) broadcastLeaderboard() {
	h.broadcast(LeaderboardMessage{
		Type:        "leaderboard",
		GameState:   h.game.state(),
		Leaderboard: leaderboard(h.game.registry),
	})
}

func (h *Hub) broadcastProgress() {
	state := h.game.state()
	ids := submittedIDs(h.game)

	h.broadcast(RoundProgressMessage{
		Type:         "round_progress",
		GameState:    state,
		SubmittedIDs: ids,
	})
	h.broadcast(SubmissionCountMessage{
		Type:      "submission_count",
		GameState: state,
		Count:     len(ids),
	})
}

func (h *Hub) handleRegister(cfg *Config, reg registration) {
	c := reg.client
	h.clients[c] = true

	switch c.role {
	case roleHost:
		h.unicast(c, h.hostSnapshot())
		logf(cfg, "GAME: Host console connected")

	case roleViewer:
		ack := ViewerHelloAckMessage{
			Type:         "viewer_hello_ack",
			GameState:    h.game.state(),
			Round:        roundInfo(h.game.round),
			SubmittedIDs: submittedIDs(h.game),
			Leaderboard:  leaderboard(h.game.registry),
		}

		// A viewer arriving after the reveal still gets to render it, minus
		// the raw words.
		if h.game.round.revealed() {
			ack.Results = h.game.round.Results
			ack.PerPlayer = publicPerPlayer(h.game.round.PerPlayer)
		}

		h.unicast(c, ack)

	case rolePlayer:
		player, created := h.game.registry.ensure(c.playerID, reg.desiredName)

		submitted := false
		if h.game.round != nil {
			_, submitted = h.game.round.Submissions[player.ID]
		}

		ack := HelloAckMessage{
			Type:         "hello_ack",
			GameState:    h.game.state(),
			PlayerID:     player.ID,
			Name:         player.Name,
			Submitted:    submitted,
			SubmittedIDs: submittedIDs(h.game),
			Round:        roundInfo(h.game.round),
			Leaderboard:  leaderboard(h.game.registry),
		}

		if h.game.round.revealed() {
			ack.Results = h.game.round.Results
			ack.PerPlayer = h.game.round.PerPlayer
		}

		// The joining socket gets its ack before anyone else hears about it.
		h.unicast(c, ack)

		if created {
			logf(cfg, "GAME: Player %q joined", player.Name)
			h.broadcastLeaderboard()
			h.syncHosts()
		}
	}
}

func (h *Hub) handleUnregister(cfg *Config, c *Client) {
	h.dropClient(c)

	if c.role != rolePlayer {
		return
	}

	// Keep the player while another socket still shares the id.
	for other := range h.clients {
		if other.role == rolePlayer && other.playerID == c.playerID {
			return
		}
	}

	if !h.game.registry.remove(c.playerID) {
		return
	}

	logf(cfg, "GAME: Player %s disconnected", c.playerID)

	h.broadcastLeaderboard()
	h.syncHosts()

	if h.game.round.collecting() {
		h.broadcastProgress()
	}
}

func (h *Hub) handleRename(cfg *Config, f inboundFrame) {
	c := f.client
	if c.role != rolePlayer || h.game.registry.get(c.playerID) == nil {
		return
	}

	name, changed := h.game.registry.rename(c.playerID, f.msg.Name)

	h.unicast(c, RenameAckMessage{
		Type:      "rename_ack",
		GameState: h.game.state(),
		Name:      name,
	})

	if changed {
		logf(cfg, "GAME: Player %s renamed to %q", c.playerID, name)
		h.broadcastLeaderboard()
		h.syncHosts()
	}
}

func (h *Hub) handleSubmit(cfg *Config, f inboundFrame) {
	c := f.client
	if c.role != rolePlayer || h.game.registry.get(c.playerID) == nil {
		return
	}

	if err := h.game.recordSubmission(c.playerID, f.msg.Word); err != nil {
		h.unicast(c, SubmitRejectMessage{
			Type:      "submit_reject",
			GameState: h.game.state(),
			Reason:    err.Error(),
		})

		return
	}

	h.unicast(c, SubmitAckMessage{
		Type:      "submit_ack",
		GameState: h.game.state(),
		OK:        true,
	})

	h.broadcastProgress()
	h.syncHosts()
}

func (h *Hub) handleControl(cfg *Config, cmd controlCommand) {
	switch cmd.action {
	case "start":
		round := h.game.startRound(cmd.prompt)
		logf(cfg, "GAME: Round %s started with prompt %q", round.ID, round.Prompt)

		cmd.reply <- ControlResponse{
			OK:        true,
			GameState: h.game.state(),
			Round:     roundInfo(round),
		}

		h.broadcast(RoundStartedMessage{
			Type:      "round_started",
			GameState: h.game.state(),
			Round:     *roundInfo(round),
		})
		h.syncHosts()

	case "close":
		closed := h.game.closeRound()

		cmd.reply <- ControlResponse{
			OK:        true,
			GameState: h.game.state(),
			Round:     roundInfo(h.game.round),
		}

		if !closed {
			return
		}

		logf(cfg, "GAME: Round %s revealed", h.game.round.ID)
		h.broadcastReveal()
		h.syncHosts()

	case "reset":
		h.game.reset()
		logf(cfg, "GAME: Game reset")

		cmd.reply <- ControlResponse{
			OK:        true,
			GameState: h.game.state(),
		}

		h.broadcast(GameResetMessage{
			Type:        "game_reset",
			GameState:   h.game.state(),
			Leaderboard: []LeaderboardEntry{},
		})
		h.syncHosts()

	default:
		cmd.reply <- ControlResponse{
			OK:        false,
			GameState: h.game.state(),
			Error:     "unknown action",
		}
	}
}

// broadcastReveal fans out the reveal with per-role projections: viewers get
// the per-player summary without raw words.
func (h *Hub) broadcastReveal() {
	round := h.game.round

	full := RoundRevealedMessage{
		Type:        "round_revealed",
		GameState:   h.game.state(),
		Round:       *roundInfo(round),
		Results:     round.Results,
		Leaderboard: leaderboard(h.game.registry),
		PerPlayer:   round.PerPlayer,
	}

	public := full
	public.PerPlayer = publicPerPlayer(round.PerPlayer)

	for c := range h.clients {
		if c.role == roleViewer {
			h.unicast(c, public)
		} else {
			h.unicast(c, full)
		}
	}
}

func (h *Hub) hostSnapshot() HostHelloAckMessage {
	snapshot := HostHelloAckMessage{
		Type:        "host_hello_ack",
		GameState:   h.game.state(),
		Round:       roundInfo(h.game.round),
		Players:     playersOverview(h.game),
		Leaderboard: leaderboard(h.game.registry),
	}

	if h.game.round.revealed() {
		snapshot.Results = h.game.round.Results
		snapshot.PerPlayer = h.game.round.PerPlayer
	}

	return snapshot
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		if !c.limiter.Allow() {
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed input is ignored; the connection stays open.
			continue
		}

		// The role was fixed at handshake; repeated hellos are ignored.
		if msg.Type == "hello" {
			continue
		}

		h.frames <- inboundFrame{client: c, msg: msg}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWS upgrades the connection and performs the handshake: the first
// message must be a hello, which fixes the socket's role for good.
func serveWS(cfg *Config, h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)

			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(handshakeWait))

		var hello ClientMessage
		if err := conn.ReadJSON(&hello); err != nil || hello.Type != "hello" {
			_ = conn.Close()

			return
		}

		connRole := parseRole(hello.Role)

		playerID := hello.PlayerID
		if connRole == rolePlayer && playerID == "" {
			playerID = uuid.NewString()
		}

		burst := int(cfg.messageRate)
		if burst < 1 {
			burst = 1
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			role:     connRole,
			playerID: playerID,
			limiter:  rate.NewLimiter(rate.Limit(cfg.messageRate), burst),
		}

		h.register <- registration{client: client, desiredName: hello.Name}

		go client.writePump()
		client.readPump(h)
	}
}

// serveControl is the host's synchronous request/reply surface.
func serveControl(cfg *Config, h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)

		var req ControlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(ControlResponse{Error: "invalid request body"})

			return
		}

		if req.Action == "start" && req.Prompt == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(ControlResponse{Error: "missing prompt"})

			return
		}

		cmd := controlCommand{
			action: req.Action,
			prompt: req.Prompt,
			reply:  make(chan ControlResponse, 1),
		}

		select {
		case h.controls <- cmd:
		case <-r.Context().Done():
			return
		}

		var resp ControlResponse
		select {
		case resp = <-cmd.reply:
		case <-r.Context().Done():
			return
		}

		if !resp.OK {
			w.WriteHeader(http.StatusBadRequest)
		}

		_ = json.NewEncoder(w).Encode(resp)
	}
}

// qrHandler generates a PNG QR code for the game page URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at .../qr; strip the trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func servePlayPage(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_, _ = w.Write([]byte(newPage("wordparty", "Word Association")))
	}
}

// registerWordGame sets up routes so that:
//   - $path          → HTML client
//   - $path/ws       → role-tagged WebSocket stream
//   - $path/control  → host control endpoint (start/close/reset)
//   - $path/qr       → PNG QR code for the game URL
func registerWordGame(cfg *Config, path string, mux *httprouter.Router) {
	hub := newHub()
	go hub.run(cfg)

	mux.GET(cfg.prefix+path, servePlayPage(cfg))

	mux.GET(cfg.prefix+path+"/ws", serveWS(cfg, hub))

	mux.POST(cfg.prefix+path+"/control", serveControl(cfg, hub))

	mux.GET(cfg.prefix+path+"/qr", qrHandler)
}
