package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tripledger/mq/mq"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// allow all origins for WebSocket connections
		// should only in dev
		return true
	},
}

// streamEvent is one websocket frame of the trip event stream.
type streamEvent struct {
	Action  string            `json:"action"`
	Expense mq.ExpenseMessage `json:"expense"`
}

// StreamEvents upgrades the request to a websocket and relays every ledger
// event of the trip until the client disconnects.
func (h *Handler) StreamEvents(c *gin.Context) {
	tripID, err := pathUUID(c, "tripId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.AuthorizeMember(c.Request.Context(), caller(c), tripID); err != nil {
		h.writeError(c, err)
		return
	}
	if h.events == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream not configured"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// each action queue gets its own output; the processor closes it on exit
	streams := make([]chan streamEvent, 0, int(mq.ActionCnt))
	for action := mq.ActionCreate; action < mq.ActionCnt; action++ {
		queue := h.events.GetExpenseMessageQueue(action)
		if queue == nil {
			continue
		}
		out := make(chan streamEvent, 16)
		name := action.String()
		mq.SubscribeProcessor(tripID, ctx, queue, func(msg mq.ExpenseMessage) (streamEvent, bool, error) {
			return streamEvent{Action: name, Expense: msg}, false, nil
		}, out)
		streams = append(streams, out)
	}

	merged := make(chan streamEvent)
	var wg sync.WaitGroup
	for _, s := range streams {
		wg.Add(1)
		go func(ch <-chan streamEvent) {
			defer wg.Done()
			for ev := range ch {
				select {
				case merged <- ev:
				case <-ctx.Done():
					return
				}
			}
		}(s)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	// the read loop only exists to observe the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-merged:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("event stream write failed",
					slog.String("trip_id", tripID.String()),
					slog.Any("error", err),
				)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
