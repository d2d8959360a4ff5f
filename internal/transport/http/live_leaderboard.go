package http

import (
	"log"
	"time"

	"quizify-service/internal/domain"
	"quizify-service/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

type liveMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// liveLeaderboard streams the owner's leaderboard over a websocket: one snapshot on connect and
// a fresh one after every accepted submission. Client messages are read and discarded.
func (h *Handler) liveLeaderboard(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	contestID := c.Param("contestId")

	updates, cancel := h.contests.Hub().Subscribe(contestID)
	defer cancel()

	board, err := h.contests.OwnedLeaderboard(ctx, p, contestID)
	if err != nil {
		h.fail(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	metrics.LiveSubscribers.Inc()
	defer metrics.LiveSubscribers.Dec()

	send := make(chan liveMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	push := func(msg liveMessage) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		case <-closeSignals:
			return false
		}
	}

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-send:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
				if msg.Type == "error" {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	push(liveMessage{Type: "leaderboard", Payload: leaderboardJSON(board, true)})

	go func() {
		defer close(updatesDone)
		for {
			select {
			case _, ok := <-updates:
				if !ok {
					return
				}
				fresh, err := h.contests.OwnedLeaderboard(ctx, p, contestID)
				if err != nil {
					push(liveMessage{Type: "error", Payload: gin.H{"message": errorMessage(err), "kind": domain.KindOf(err)}})
					return
				}
				if !push(liveMessage{Type: "leaderboard", Payload: leaderboardJSON(fresh, true)}) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	readWait := 2 * h.pingInterval
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func errorMessage(err error) string {
	if domain.KindOf(err) == domain.KindUnexpected {
		return "Server error"
	}
	return err.Error()
}
