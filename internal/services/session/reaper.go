package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/imposter/internal/model"
)

// ReasonIdle is sent to members of a room closed for inactivity
const ReasonIdle = "idle"

// ReapIdle deletes every room not updated since cutoff, telling its members
// the room is gone. It returns the number of rooms removed.
func (c *Coordinator) ReapIdle(ctx context.Context, cutoff time.Time) (int, error) {
	codes, err := c.store.Codes(ctx)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, code := range codes {
		ok, err := c.reapIfIdle(ctx, code, cutoff)
		if err != nil {
			c.logger.Error("reap failed", slog.String("room", string(code)), slog.String("error", err.Error()))
			continue
		}
		if ok {
			reaped++
		}
	}
	return reaped, nil
}

func (c *Coordinator) reapIfIdle(ctx context.Context, code model.RoomCode, cutoff time.Time) (bool, error) {
	unlock := c.locks.lock(code)
	defer unlock()

	room, err := c.store.Get(ctx, code)
	if err != nil {
		// Left or expired since listing
		return false, nil
	}
	if !room.Updated.Before(cutoff) {
		return false, nil
	}

	if err := c.store.Delete(ctx, code); err != nil {
		return false, err
	}

	c.notifier.Broadcast(code, model.Event{
		Type:     model.EventRoomClosed,
		RoomCode: code,
		Payload:  model.RoomClosedPayload{Reason: ReasonIdle},
	})
	for _, p := range room.Players {
		c.clearRoom(p.ID, code)
	}
	c.notifier.CloseRoom(code)

	c.logger.Info("room reaped",
		slog.String("room", string(code)),
		slog.Int("players", len(room.Players)),
		slog.Time("updated", room.Updated))

	return true, nil
}

// RunReaper removes rooms idle for longer than ttl every interval until ctx
// is cancelled
func (c *Coordinator) RunReaper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.ReapIdle(ctx, c.store.clock.Now().Add(-ttl))
			if err != nil {
				c.logger.Error("reaper sweep failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				c.logger.Info("reaper sweep", slog.Int("reaped", n))
			}
		}
	}
}
