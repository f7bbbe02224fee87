package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/imposter/internal/api"
	"github.com/mcoot/imposter/internal/factory"
	"github.com/mcoot/imposter/internal/model"
	"github.com/mcoot/imposter/internal/protocol"
	"github.com/mcoot/imposter/internal/testutil"
)

// syncBuffer is a bytes.Buffer safe to read while a session writes to it
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestParseLine(t *testing.T) {
	const room = model.RoomCode("AB12")

	tests := []struct {
		name string
		line string
		want protocol.Command
	}{
		{"ready", "ready", &protocol.ToggleReady{RoomCode: room}},
		{"start default imposters", "start football", &protocol.StartGame{RoomCode: room, Category: "football", ImposterCount: 1}},
		{"start with imposters", "START objects 2", &protocol.StartGame{RoomCode: room, Category: "objects", ImposterCount: 2}},
		{"theme", "theme 1 Big Ben | London", &protocol.StartGame{RoomCode: room, ImposterCount: 1, Theme: &model.Topic{Name: "Big Ben", Hint: "London"}}},
		{"role", "role", &protocol.GetMyRole{RoomCode: room}},
		{"end", "end", &protocol.EndGame{RoomCode: room}},
		{"restart", "restart", &protocol.RestartGame{RoomCode: room}},
		{"leave", "leave", &protocol.LeaveRoom{RoomCode: room}},
		{"join normalizes code", "join wx9z", &protocol.JoinRoom{RoomCode: "WX9Z", PlayerName: "Ann"}},
		{"create", "create", &protocol.CreateRoom{PlayerName: "Ann"}},
		{"blank line", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := parseLine(tt.line, "Ann", room)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd)
		})
	}
}

func TestParseLineErrors(t *testing.T) {
	_, err := parseLine("quit", "Ann", "")
	assert.ErrorIs(t, err, errQuit)

	_, err = parseLine("help", "Ann", "")
	assert.ErrorIs(t, err, errHelp)

	_, err = parseLine("ready", "Ann", "")
	assert.ErrorContains(t, err, "not in a room")

	_, err = parseLine("start", "Ann", "AB12")
	assert.ErrorContains(t, err, "usage")

	_, err = parseLine("start football many", "Ann", "AB12")
	assert.ErrorContains(t, err, "invalid imposter count")

	_, err = parseLine("join TOOLONG", "Ann", "")
	assert.ErrorIs(t, err, model.ErrInvalidCommand)

	_, err = parseLine("dance", "Ann", "AB12")
	assert.ErrorContains(t, err, "unknown command")
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://play.example/", "wss://play.example/ws"},
		{"https://play.example/imposter", "wss://play.example/imposter/ws"},
	}

	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			c := &Config{ServerURL: tt.server}
			got, err := c.WebsocketURL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := (&Config{ServerURL: "ftp://example"}).WebsocketURL()
	assert.Error(t, err)
}

func envelope(t *testing.T, msg protocol.Message) protocol.Envelope {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	var env protocol.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestPrintEnvelopeText(t *testing.T) {
	var buf bytes.Buffer
	out := newOutputTo("text", &buf, io.Discard)

	out.PrintEnvelope(envelope(t, protocol.Message{
		Type: string(model.EventRoomUpdate),
		Payload: protocol.RoomUpdate{
			RoomCode: "AB12",
			HostID:   "a",
			Players:  []protocol.PlayerView{{ID: "a", Name: "Ann"}, {ID: "b", Name: "Bob", Ready: true}},
		},
	}))
	out.PrintEnvelope(envelope(t, protocol.Message{
		Type:    string(model.EventYourRole),
		Payload: protocol.YourRole{Role: "imposter", Theme: model.Topic{Hint: "Paris"}},
	}))
	out.PrintEnvelope(envelope(t, protocol.ErrorMessage("3", protocol.CommandStartGame, "NOT_HOST", "only the host can start")))

	assert.Equal(t,
		"Room AB12: Ann (host), Bob (ready)\n"+
			"You are the IMPOSTER. Hint: Paris\n"+
			"Error: only the host can start (NOT_HOST)\n",
		buf.String())
}

func TestPrintEnvelopeJSON(t *testing.T) {
	var buf bytes.Buffer
	out := newOutputTo("json", &buf, io.Discard)

	out.PrintEnvelope(envelope(t, protocol.ConnectedMessage("abc")))

	var evt ServerEvent
	require.NoError(t, json.Unmarshal(buf.Bytes(), &evt))
	assert.Equal(t, protocol.TypeConnected, evt.Type)
	assert.JSONEq(t, `{"playerId":"abc"}`, string(evt.Payload))
}

func TestPrintRoom(t *testing.T) {
	var buf bytes.Buffer
	out := newOutputTo("text", &buf, io.Discard)

	out.Print(Room{
		Code:    "AB12",
		Phase:   "waiting",
		Players: []RoomPlayer{{ID: "a", Name: "Ann", IsHost: true, Ready: true}, {ID: "b", Name: "Bob"}},
	})

	assert.Contains(t, buf.String(), "Room: AB12\n")
	assert.Contains(t, buf.String(), "  - Ann (a) [host, ready]\n")
	assert.Contains(t, buf.String(), "  - Bob (b)\n")
}

type sessionHarness struct {
	t      *testing.T
	out    *syncBuffer
	input  *io.PipeWriter
	result chan error
	s      *Session
}

func startSession(t *testing.T, wsURL, name, join string) *sessionHarness {
	t.Helper()

	buf := &syncBuffer{}
	s, err := Dial(context.Background(), wsURL, name, newOutputTo("text", buf, buf))
	require.NoError(t, err)

	pr, pw := io.Pipe()
	h := &sessionHarness{t: t, out: buf, input: pw, result: make(chan error, 1), s: s}
	go func() { h.result <- s.Run(context.Background(), pr, join) }()
	t.Cleanup(func() { _ = pw.Close() })
	return h
}

func (h *sessionHarness) say(line string) {
	_, err := io.WriteString(h.input, line+"\n")
	require.NoError(h.t, err)
}

func (h *sessionHarness) waitFor(text string) {
	require.Eventually(h.t, func() bool {
		return strings.Contains(h.out.String(), text)
	}, 2*time.Second, 10*time.Millisecond, "output never contained %q:\n%s", text, h.out.String())
}

func TestPlaySession(t *testing.T) {
	app := factory.NewTestApp()
	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		Coordinator: app.Coordinator,
		Catalog:     app.Catalog,
		Registry:    app.Registry,
		WSHandler:   app.WSHandler,
	})
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL, err := (&Config{ServerURL: server.URL}).WebsocketURL()
	require.NoError(t, err)

	app.MockRandom.QueueString("PLAY")
	ann := startSession(t, wsURL, "Ann", "")
	ann.waitFor("In room PLAY")
	assert.Equal(t, model.RoomCode("PLAY"), ann.s.Room())

	bob := startSession(t, wsURL, "Bob", "play")
	bob.waitFor("In room PLAY")
	cid := startSession(t, wsURL, "Cid", "PLAY")
	cid.waitFor("In room PLAY")
	ann.waitFor("Room PLAY: Ann (host), Bob, Cid")

	bob.say("ready")
	ann.waitFor("Bob (ready)")

	// Ann is dealt the imposter role, Bob speaks first
	app.MockRandom.QueueIntn(2, 1, 0, 1)
	ann.say("start " + factory.TestCategory)
	ann.waitFor("Bob goes first")
	ann.waitFor("You are the IMPOSTER. Hint: Argentina")
	bob.waitFor("You are a crewmate. Topic: Lionel Messi")

	bob.say("end")
	bob.waitFor("Error: Only the host can perform this action (NOT_HOST)")

	ann.say("end")
	cid.waitFor("Game over. The topic was Lionel Messi (Argentina)")
	cid.waitFor("  - Ann: imposter")

	cid.say("leave")
	ann.waitFor("Room PLAY: Ann (host), Bob (ready)\n")
	assert.Empty(t, cid.s.Room())

	bob.say("quit")
	select {
	case err := <-bob.result:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("session did not exit on quit")
	}
	require.Eventually(t, func() bool {
		return strings.Count(ann.out.String(), "Room PLAY: Ann (host)\n") == 2
	}, 2*time.Second, 10*time.Millisecond)
}
