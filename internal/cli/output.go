package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	mu     sync.Mutex
	w      io.Writer
	errW   io.Writer
}

// NewOutput creates a new Output formatter writing to stdout and stderr
func NewOutput(format string) *Output {
	return newOutputTo(format, os.Stdout, os.Stderr)
}

func newOutputTo(format string, w, errW io.Writer) *Output {
	return &Output{format: format, w: w, errW: errW}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.errW, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errW, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Room:
		o.printRoom(v)
	case CategoriesResult:
		o.printCategories(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Room response type (matches API)
type Room struct {
	Code     string       `json:"code"`
	Phase    string       `json:"phase"`
	HostID   string       `json:"host_id"`
	Players  []RoomPlayer `json:"players"`
	Category string       `json:"category,omitempty"`
}

// RoomPlayer response type
type RoomPlayer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	IsHost bool   `json:"is_host"`
}

// CategoriesResult response type
type CategoriesResult struct {
	Categories []string `json:"categories"`
}

// HealthResult response type
type HealthResult struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
}

func (o *Output) printRoom(r Room) {
	o.printf("Room: %s\n", r.Code)
	o.printf("Phase: %s\n", r.Phase)
	if r.Category != "" {
		o.printf("Category: %s\n", r.Category)
	}
	o.printf("Players (%d):\n", len(r.Players))
	for _, p := range r.Players {
		var tags []string
		if p.IsHost {
			tags = append(tags, "host")
		}
		if p.Ready {
			tags = append(tags, "ready")
		}
		tagStr := ""
		if len(tags) > 0 {
			tagStr = " [" + strings.Join(tags, ", ") + "]"
		}
		o.printf("  - %s (%s)%s\n", p.Name, p.ID, tagStr)
	}
}

func (o *Output) printCategories(c CategoriesResult) {
	for _, name := range c.Categories {
		o.printf("%s\n", name)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	o.printf("Status: %s\n", h.Status)
	o.printf("Clients: %d\n", h.Clients)
}
