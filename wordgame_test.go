package main

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testConfig() *Config {
	return &Config{messageRate: 100}
}

func testClient(r role, playerID string) *Client {
	return &Client{
		send:     make(chan any, 64),
		role:     r,
		playerID: playerID,
		limiter:  rate.NewLimiter(100, 100),
	}
}

// drain empties a client's send channel and returns everything queued so far.
func drain(c *Client) []any {
	var msgs []any
	for {
		select {
		case msg := <-c.send:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func control(t *testing.T, h *Hub, cfg *Config, action, prompt string) ControlResponse {
	t.Helper()

	cmd := controlCommand{
		action: action,
		prompt: prompt,
		reply:  make(chan ControlResponse, 1),
	}
	h.handleControl(cfg, cmd)

	select {
	case resp := <-cmd.reply:
		return resp
	default:
		t.Fatal("control command produced no reply")
		return ControlResponse{}
	}
}

func TestHubPlayerJoinAck(t *testing.T) {
	cfg := testConfig()
	h := newHub()

	player := testClient(rolePlayer, "p1")
	h.handleRegister(cfg, registration{client: player, desiredName: "  Anna  "})

	msgs := drain(player)
	require.NotEmpty(t, msgs)

	ack, ok := msgs[0].(HelloAckMessage)
	require.True(t, ok, "the join ack arrives before any broadcast")
	assert.Equal(t, "hello_ack", ack.Type)
	assert.Equal(t, stateIdle, ack.GameState)
	assert.Equal(t, "p1", ack.PlayerID)
	assert.Equal(t, "Anna", ack.Name)
	assert.False(t, ack.Submitted)

	// The join also broadcast a leaderboard to the joining socket itself.
	lb, ok := msgs[1].(LeaderboardMessage)
	require.True(t, ok)
	assert.Equal(t, []LeaderboardEntry{{ID: "p1", Name: "Anna", Score: 0}}, lb.Leaderboard)
}

func TestHubSubmitAckPrecedesBroadcasts(t *testing.T) {
	cfg := testConfig()
	h := newHub()

	player := testClient(rolePlayer, "p1")
	h.handleRegister(cfg, registration{client: player, desiredName: "Anna"})
	control(t, h, cfg, "start", "Baum")
	drain(player)

	h.handleSubmit(cfg, inboundFrame{client: player, msg: ClientMessage{Type: "submit", Word: "Apfel"}})

	msgs := drain(player)
	require.NotEmpty(t, msgs)

	ack, ok := msgs[0].(SubmitAckMessage)
	require.True(t, ok, "the submitter's own ack is queued first")
	assert.True(t, ack.OK)
	assert.Equal(t, stateCollecting, ack.GameState)

	progress, ok := msgs[1].(RoundProgressMessage)
	require.True(t, ok)
	assert.Equal(t, []string{"p1"}, progress.SubmittedIDs)

	count, ok := msgs[2].(SubmissionCountMessage)
	require.True(t, ok)
	assert.Equal(t, 1, count.Count)
}

func TestHubSubmitReject(t *testing.T) {
	cfg := testConfig()
	h := newHub()

	player := testClient(rolePlayer, "p1")
	other := testClient(rolePlayer, "p2")
	h.handleRegister(cfg, registration{client: player, desiredName: "Anna"})
	h.handleRegister(cfg, registration{client: other, desiredName: "Ben"})
	control(t, h, cfg, "start", "Dachziegel")
	drain(player)
	drain(other)

	h.handleSubmit(cfg, inboundFrame{client: player, msg: ClientMessage{Type: "submit", Word: "Dach"}})

	msgs := drain(player)
	require.Len(t, msgs, 1, "a reject triggers no broadcasts")

	reject, ok := msgs[0].(SubmitRejectMessage)
	require.True(t, ok)
	assert.Equal(t, "contained in the prompt", reject.Reason)

	assert.Empty(t, drain(other), "rejects go to the submitter only")
	assert.Empty(t, h.game.round.Submissions)
}

func TestHubSubmitOutsideCollecting(t *testing.T) {
	cfg := testConfig()
	h := newHub()

	player := testClient(rolePlayer, "p1")
	h.handleRegister(cfg, registration{client: player, desiredName: "Anna"})
	drain(player)

	h.handleSubmit(cfg, inboundFrame{client: player, msg: ClientMessage{Type: "submit", Word: "Apfel"}})

	msgs := drain(player)
	require.Len(t, msgs, 1)

	reject, ok := msgs[0].(SubmitRejectMessage)
	require.True(t, ok)
	assert.Equal(t, errNoActiveRound.Error(), reject.Reason)
}

func TestHubRename(t *testing.T) {
	cfg := testConfig()
	h := newHub()

	player := testClient(rolePlayer, "p1")
	viewer := testClient(roleViewer, "")
	h.handleRegister(cfg, registration{client: player, desiredName: "Anna"})
	h.handleRegister(cfg, registration{client: viewer})
	drain(player)
	drain(viewer)

	h.handleRename(cfg, inboundFrame{client: player, msg: ClientMessage{Type: "rename", Name: "  A\x01B   C  "}})

	msgs := drain(player)
	require.NotEmpty(t, msgs)

	ack, ok := msgs[0].(RenameAckMessage)
	require.True(t, ok)
	assert.Equal(t, "AB C", ack.Name)

	viewerMsgs := drain(viewer)
	require.Len(t, viewerMsgs, 1, "a real rename broadcasts the leaderboard")
	lb, ok := viewerMsgs[0].(LeaderboardMessage)
	require.True(t, ok)
	assert.Equal(t, "AB C", lb.Leaderboard[0].Name)

	// Renaming to the same value acks but stays silent otherwise.
	h.handleRename(cfg, inboundFrame{client: player, msg: ClientMessage{Type: "rename", Name: "AB C"}})
	drain(player)
	assert.Empty(t, drain(viewer))
}

func TestHubPlayerDisconnect(t *testing.T) {
	cfg := testConfig()
	h := newHub()

	player := testClient(rolePlayer, "p1")
	other := testClient(rolePlayer, "p2")
	h.handleRegister(cfg, registration{client: player, desiredName: "Anna"})
	h.handleRegister(cfg, registration{client: other, desiredName: "Ben"})
	control(t, h, cfg, "start", "Baum")
	h.handleSubmit(cfg, inboundFrame{client: player, msg: ClientMessage{Type: "submit", Word: "Apfel"}})
	drain(other)

	h.handleUnregister(cfg, player)

	assert.Nil(t, h.game.registry.get("p1"), "disconnect removes the player outright")

	var sawProgress bool
	for _, msg := range drain(other) {
		if progress, ok := msg.(RoundProgressMessage); ok {
			sawProgress = true
			assert.Empty(t, progress.SubmittedIDs, "the departed submitter no longer counts")
		}
	}
	assert.True(t, sawProgress)
}

func TestHubDuplicateSocketKeepsPlayer(t *testing.T) {
	cfg := testConfig()
	h := newHub()

	first := testClient(rolePlayer, "p1")
	second := testClient(rolePlayer, "p1")
	h.handleRegister(cfg, registration{client: first, desiredName: "Anna"})
	h.handleRegister(cfg, registration{client: second})

	h.handleUnregister(cfg, first)

	assert.NotNil(t, h.game.registry.get("p1"), "the player survives while another socket shares the id")

	h.handleUnregister(cfg, second)
	assert.Nil(t, h.game.registry.get("p1"))
}

func TestHubStartCloseReset(t *testing.T) {
	cfg := testConfig()
	h := newHub()

	player := testClient(rolePlayer, "p1")
	host := testClient(roleHost, "")
	h.handleRegister(cfg, registration{client: player, desiredName: "Anna"})
	h.handleRegister(cfg, registration{client: host})
	drain(player)

	resp := control(t, h, cfg, "start", "Baum")
	require.True(t, resp.OK)
	assert.Equal(t, stateCollecting, resp.GameState)
	require.NotNil(t, resp.Round)
	assert.Equal(t, "Baum", resp.Round.Prompt)
	firstID := resp.Round.ID

	msgs := drain(player)
	require.NotEmpty(t, msgs)
	started, ok := msgs[0].(RoundStartedMessage)
	require.True(t, ok)
	assert.Equal(t, firstID, started.Round.ID)

	resp = control(t, h, cfg, "close", "")
	require.True(t, resp.OK)
	assert.Equal(t, stateRevealed, resp.GameState)

	// Closing again is a no-op and broadcasts nothing further.
	drain(player)
	resp = control(t, h, cfg, "close", "")
	require.True(t, resp.OK)
	assert.Equal(t, stateRevealed, resp.GameState)
	assert.Empty(t, drain(player))

	resp = control(t, h, cfg, "start", "Himmel")
	require.True(t, resp.OK)
	assert.NotEqual(t, firstID, resp.Round.ID)

	drain(host)
	resp = control(t, h, cfg, "reset", "")
	require.True(t, resp.OK)
	assert.Equal(t, stateIdle, resp.GameState)
	assert.Nil(t, resp.Round)
	assert.Empty(t, h.game.registry.players)

	msgs = drain(player)
	var sawReset bool
	for _, msg := range msgs {
		if reset, ok := msg.(GameResetMessage); ok {
			sawReset = true
			assert.Empty(t, reset.Leaderboard)
			assert.Equal(t, stateIdle, reset.GameState)
		}
	}
	assert.True(t, sawReset)

	// Host consoles render from players_overview, so the reset must refresh
	// them with the now-empty roster.
	var sawOverview bool
	for _, msg := range drain(host) {
		if overview, ok := msg.(PlayersOverviewMessage); ok {
			sawOverview = true
			assert.Empty(t, overview.Players)
			assert.Equal(t, stateIdle, overview.GameState)
		}
	}
	assert.True(t, sawOverview)
}

func TestHubUnknownControlAction(t *testing.T) {
	cfg := testConfig()
	h := newHub()

	resp := control(t, h, cfg, "explode", "")
	assert.False(t, resp.OK)
	assert.Equal(t, "unknown action", resp.Error)
}

// Viewers must never receive a payload containing any player's raw submitted
// word, whatever the hosts and players get up to.
func TestHubViewerNeverSeesRawWords(t *testing.T) {
	cfg := testConfig()
	h := newHub()

	host := testClient(roleHost, "")
	viewer := testClient(roleViewer, "")
	anna := testClient(rolePlayer, "p1")
	ben := testClient(rolePlayer, "p2")

	h.handleRegister(cfg, registration{client: host})
	h.handleRegister(cfg, registration{client: viewer})
	h.handleRegister(cfg, registration{client: anna, desiredName: "Anna"})
	h.handleRegister(cfg, registration{client: ben, desiredName: "Ben"})

	control(t, h, cfg, "start", "Baum")
	h.handleSubmit(cfg, inboundFrame{client: anna, msg: ClientMessage{Type: "submit", Word: "GeheimesWort"}})
	h.handleSubmit(cfg, inboundFrame{client: ben, msg: ClientMessage{Type: "submit", Word: "AnderesGeheimnis"}})

	// A viewer connecting mid-round gets a snapshot too.
	lateViewer := testClient(roleViewer, "")
	h.handleRegister(cfg, registration{client: lateViewer})

	control(t, h, cfg, "close", "")
	control(t, h, cfg, "reset", "")

	for _, msg := range append(drain(viewer), drain(lateViewer)...) {
		payload, err := json.Marshal(msg)
		require.NoError(t, err)

		assert.NotContains(t, string(payload), "GeheimesWort")
		assert.NotContains(t, string(payload), "AnderesGeheimnis")
	}

	// The host, by contrast, sees the raw words live.
	var hostSawWord bool
	for _, msg := range drain(host) {
		payload, err := json.Marshal(msg)
		require.NoError(t, err)

		if strings.Contains(string(payload), "GeheimesWort") {
			hostSawWord = true
		}
	}
	assert.True(t, hostSawWord)
}

func TestHubHostSnapshotMidRound(t *testing.T) {
	cfg := testConfig()
	h := newHub()

	anna := testClient(rolePlayer, "p1")
	h.handleRegister(cfg, registration{client: anna, desiredName: "Anna"})
	control(t, h, cfg, "start", "Baum")
	h.handleSubmit(cfg, inboundFrame{client: anna, msg: ClientMessage{Type: "submit", Word: "Apfel"}})

	host := testClient(roleHost, "")
	h.handleRegister(cfg, registration{client: host})

	msgs := drain(host)
	require.Len(t, msgs, 1)

	ack, ok := msgs[0].(HostHelloAckMessage)
	require.True(t, ok)
	assert.Equal(t, stateCollecting, ack.GameState)
	require.Len(t, ack.Players, 1)
	assert.Equal(t, "Apfel", ack.Players[0].Word)
	assert.Empty(t, ack.Results, "results only appear once revealed")
}

func TestHubLateJoinersSeeReveal(t *testing.T) {
	cfg := testConfig()
	h := newHub()

	anna := testClient(rolePlayer, "p1")
	ben := testClient(rolePlayer, "p2")
	h.handleRegister(cfg, registration{client: anna, desiredName: "Anna"})
	h.handleRegister(cfg, registration{client: ben, desiredName: "Ben"})
	control(t, h, cfg, "start", "Baum")
	h.handleSubmit(cfg, inboundFrame{client: anna, msg: ClientMessage{Type: "submit", Word: "Apfel"}})
	h.handleSubmit(cfg, inboundFrame{client: ben, msg: ClientMessage{Type: "submit", Word: "apfel"}})
	control(t, h, cfg, "close", "")

	late := testClient(rolePlayer, "p3")
	h.handleRegister(cfg, registration{client: late, desiredName: "Cem"})

	msgs := drain(late)
	require.NotEmpty(t, msgs)

	ack, ok := msgs[0].(HelloAckMessage)
	require.True(t, ok)
	assert.Equal(t, stateRevealed, ack.GameState)
	assert.Equal(t, []WordResult{{Word: "apfel", Frequency: 2, Points: 1}}, ack.Results)
	require.Len(t, ack.PerPlayer, 2)
	assert.Equal(t, "Apfel", ack.PerPlayer[0].Word)

	viewer := testClient(roleViewer, "")
	h.handleRegister(cfg, registration{client: viewer})

	viewerMsgs := drain(viewer)
	require.Len(t, viewerMsgs, 1)

	viewerAck, ok := viewerMsgs[0].(ViewerHelloAckMessage)
	require.True(t, ok)
	assert.Equal(t, stateRevealed, viewerAck.GameState)
	assert.Equal(t, []WordResult{{Word: "apfel", Frequency: 2, Points: 1}}, viewerAck.Results)
	require.Len(t, viewerAck.PerPlayer, 2)
	for _, entry := range viewerAck.PerPlayer {
		assert.Empty(t, entry.Word, "raw words stay off the viewer channel")
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *Config) {
	t.Helper()

	cfg := testConfig()
	mux := httprouter.New()
	registerWordGame(cfg, "/word", mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, cfg
}

func postControl(t *testing.T, srv *httptest.Server, body string) (int, ControlResponse) {
	t.Helper()

	resp, err := srv.Client().Post(srv.URL+"/word/control", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded ControlResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))

	return resp.StatusCode, decoded
}

func TestControlEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	status, resp := postControl(t, srv, `{"action":"start"}`)
	assert.Equal(t, 400, status)
	assert.Equal(t, "missing prompt", resp.Error)

	status, resp = postControl(t, srv, `not json`)
	assert.Equal(t, 400, status)
	assert.Equal(t, "invalid request body", resp.Error)

	status, resp = postControl(t, srv, `{"action":"start","prompt":"Baum"}`)
	assert.Equal(t, 200, status)
	assert.True(t, resp.OK)
	assert.Equal(t, stateCollecting, resp.GameState)
	require.NotNil(t, resp.Round)
	assert.Equal(t, "Baum", resp.Round.Prompt)

	status, resp = postControl(t, srv, `{"action":"close"}`)
	assert.Equal(t, 200, status)
	assert.Equal(t, stateRevealed, resp.GameState)

	status, resp = postControl(t, srv, `{"action":"reset"}`)
	assert.Equal(t, 200, status)
	assert.Equal(t, stateIdle, resp.GameState)

	status, resp = postControl(t, srv, `{"action":"bogus"}`)
	assert.Equal(t, 400, status)
	assert.Equal(t, "unknown action", resp.Error)
}

func dialWS(t *testing.T, srv *httptest.Server, hello ClientMessage) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/word/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.WriteJSON(hello))

	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

func TestWebsocketHandshake(t *testing.T) {
	srv, _ := newTestServer(t)

	conn := dialWS(t, srv, ClientMessage{Type: "hello", Name: "Anna"})

	ack := readMessage(t, conn)
	assert.Equal(t, "hello_ack", ack["type"])
	assert.Equal(t, "idle", ack["gameState"])
	assert.Equal(t, "Anna", ack["name"])
	assert.NotEmpty(t, ack["playerId"], "the server assigns an id when none is supplied")
}

func TestWebsocketMalformedInputIgnored(t *testing.T) {
	srv, _ := newTestServer(t)

	conn := dialWS(t, srv, ClientMessage{Type: "hello", PlayerID: "p1", Name: "Anna"})
	readMessage(t, conn) // hello_ack
	readMessage(t, conn) // leaderboard

	// Unparsable and unknown messages are dropped without closing the socket.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{{{not json")))
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "dance"}))

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "rename", Name: "Ben"}))

	msg := readMessage(t, conn)
	assert.Equal(t, "rename_ack", msg["type"])
	assert.Equal(t, "Ben", msg["name"])
}

func TestWebsocketViewerRole(t *testing.T) {
	srv, _ := newTestServer(t)

	player := dialWS(t, srv, ClientMessage{Type: "hello", PlayerID: "p1", Name: "Anna"})
	readMessage(t, player)

	viewer := dialWS(t, srv, ClientMessage{Type: "hello", Role: "viewer"})

	ack := readMessage(t, viewer)
	assert.Equal(t, "viewer_hello_ack", ack["type"])
	assert.Equal(t, "idle", ack["gameState"])

	// A viewer's submit attempts are silently ignored.
	require.NoError(t, viewer.WriteJSON(ClientMessage{Type: "submit", Word: "Apfel"}))
}
