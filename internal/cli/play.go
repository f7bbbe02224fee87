package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/imposter/internal/model"
	"github.com/mcoot/imposter/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	closeGrace = 2 * time.Second
)

func newPlayCmd() *cobra.Command {
	var name, join string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join a game interactively",
		Long: `Connect to the server over a websocket, create or join a room, and play
by typing commands. Server messages are printed as they arrive.

Type help once connected for the list of commands.
Press Ctrl+C or type quit to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			wsURL, err := cfg.WebsocketURL()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := NewOutput(cfg.Output)
			session, err := Dial(ctx, wsURL, name, out)
			if err != nil {
				return err
			}
			return session.Run(ctx, os.Stdin, join)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name (required)")
	cmd.Flags().StringVarP(&join, "join", "j", "", "Room code to join (default: create a new room)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// Session is one interactive websocket connection
type Session struct {
	conn *websocket.Conn
	out  *Output
	name string
	done chan struct{}

	mu   sync.Mutex
	room model.RoomCode
	seq  int
}

// Dial connects to the server's websocket endpoint
func Dial(ctx context.Context, wsURL, name string, out *Output) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}

	return &Session{
		conn: conn,
		out:  out,
		name: name,
		done: make(chan struct{}),
	}, nil
}

// Room returns the room the session is in, or empty
func (s *Session) Room() model.RoomCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// Run creates or joins a room, then sends one command per input line until
// the input ends, the user quits, ctx is cancelled or the server hangs up.
func (s *Session) Run(ctx context.Context, in io.Reader, join string) error {
	go s.readLoop()
	defer s.close()

	var first protocol.Command = &protocol.CreateRoom{PlayerName: s.name}
	if join != "" {
		code, err := model.ParseRoomCode(join)
		if err != nil {
			return err
		}
		first = &protocol.JoinRoom{RoomCode: code, PlayerName: s.name}
	}
	if err := s.send(first); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return errors.New("server closed the connection")
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			cmd, err := parseLine(line, s.name, s.Room())
			switch {
			case errors.Is(err, errQuit):
				return nil
			case errors.Is(err, errHelp):
				s.out.PrintMessage(inputHelp)
				continue
			case err != nil:
				s.out.PrintError(err)
				continue
			case cmd == nil:
				continue
			}
			if err := s.send(cmd); err != nil {
				return err
			}
		}
	}
}

func (s *Session) send(cmd protocol.Command) error {
	s.mu.Lock()
	s.seq++
	id := strconv.Itoa(s.seq)
	if _, ok := cmd.(*protocol.LeaveRoom); ok {
		s.room = ""
	}
	s.mu.Unlock()

	data, err := protocol.Encode(id, cmd)
	if err != nil {
		return err
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

func (s *Session) readLoop() {
	defer close(s.done)

	for {
		var env protocol.Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			return
		}
		s.track(env)
		s.out.PrintEnvelope(env)
	}
}

// track follows which room the session is in from server messages
func (s *Session) track(env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeReply:
		var r protocol.Reply
		if json.Unmarshal(env.Payload, &r) == nil && r.Success && r.RoomCode != "" {
			s.setRoom(model.RoomCode(r.RoomCode))
		}
	case string(model.EventRoomUpdate):
		var u protocol.RoomUpdate
		if json.Unmarshal(env.Payload, &u) == nil {
			s.setRoom(model.RoomCode(u.RoomCode))
		}
	case string(model.EventRoomClosed):
		s.setRoom("")
	}
}

func (s *Session) setRoom(code model.RoomCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room = code
}

// close says goodbye and waits briefly for the server to close its side
func (s *Session) close() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))

	select {
	case <-s.done:
	case <-time.After(closeGrace):
	}
	_ = s.conn.Close()
}
