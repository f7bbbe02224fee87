package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mcoot/imposter/internal/model"
	"github.com/mcoot/imposter/internal/protocol"
)

var (
	errQuit = errors.New("quit")
	errHelp = errors.New("help")
)

const inputHelp = `Commands:
  ready                            toggle your ready flag
  start <category> [imposters]     start a round (host only)
  theme <imposters> <name>|<hint>  start a round with a custom topic (host only)
  role                             show your role again
  end                              reveal all roles (host only)
  restart                          back to the waiting room (host only)
  leave                            leave the room
  join <code>                      join another room
  create                           create a new room
  help                             show this help
  quit                             disconnect`

// parseLine turns one line of user input into a command. room is the
// room the session is currently in, or empty.
func parseLine(line, name string, room model.RoomCode) (protocol.Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}

	verb, args := strings.ToLower(fields[0]), fields[1:]

	switch verb {
	case "quit", "exit":
		return nil, errQuit
	case "help", "?":
		return nil, errHelp
	case "create":
		return &protocol.CreateRoom{PlayerName: name}, nil
	case "join":
		if len(args) != 1 {
			return nil, errors.New("usage: join <code>")
		}
		code, err := model.ParseRoomCode(args[0])
		if err != nil {
			return nil, err
		}
		return &protocol.JoinRoom{RoomCode: code, PlayerName: name}, nil
	}

	if room == "" {
		return nil, errors.New("not in a room: create or join one first")
	}

	switch verb {
	case "ready":
		return &protocol.ToggleReady{RoomCode: room}, nil
	case "start":
		if len(args) < 1 || len(args) > 2 {
			return nil, errors.New("usage: start <category> [imposters]")
		}
		k := 1
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return nil, fmt.Errorf("invalid imposter count: %q", args[1])
			}
			k = n
		}
		return &protocol.StartGame{RoomCode: room, Category: args[0], ImposterCount: k}, nil
	case "theme":
		if len(args) < 2 {
			return nil, errors.New("usage: theme <imposters> <name>|<hint>")
		}
		k, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid imposter count: %q", args[0])
		}
		topicName, hint, _ := strings.Cut(strings.Join(args[1:], " "), "|")
		topic := model.Topic{Name: strings.TrimSpace(topicName), Hint: strings.TrimSpace(hint)}
		return &protocol.StartGame{RoomCode: room, ImposterCount: k, Theme: &topic}, nil
	case "role":
		return &protocol.GetMyRole{RoomCode: room}, nil
	case "end":
		return &protocol.EndGame{RoomCode: room}, nil
	case "restart":
		return &protocol.RestartGame{RoomCode: room}, nil
	case "leave":
		return &protocol.LeaveRoom{RoomCode: room}, nil
	}

	return nil, fmt.Errorf("unknown command %q, type help for a list", verb)
}
