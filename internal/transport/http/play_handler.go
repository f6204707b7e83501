package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quizbot/internal/app"
	"quizbot/internal/config"
)

const writeWait = 10 * time.Second

var errConnectionClosed = errors.New("connection closed by participant")

// PlayHandler runs a play session over a WebSocket. The server pushes
// "question", "timeout", "result" and "error" messages; the client answers
// with {"type":"answer","payload":{"token":"..."}}.
type PlayHandler struct {
	service       *app.QuizService
	answerTimeout time.Duration
	upgrader      websocket.Upgrader
}

func NewPlayHandler(service *app.QuizService, answerTimeout time.Duration) *PlayHandler {
	return &PlayHandler{
		service:       service,
		answerTimeout: answerTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Token string `json:"token"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func (h *PlayHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	user := userFrom(r.Context())
	log := config.WithContext(r.Context()).WithField("quiz_id", quizID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	ch := newWSChannel(conn, h.answerTimeout)
	go ch.readLoop()

	result, err := h.service.PlayQuiz(r.Context(), quizID, user, ch)
	if err != nil {
		if errors.Is(err, errConnectionClosed) {
			log.Info("participant left the quiz")
			return
		}
		status, message := statusOf(err)
		if status == http.StatusInternalServerError {
			log.WithError(err).Error("play failed")
		}
		_ = ch.send("error", errorPayload{Message: message})
		return
	}
	_ = ch.send("result", result)
	_ = ch.writeControl(websocket.FormatCloseMessage(websocket.CloseNormalClosure, "quiz completed"))
}

// wsChannel adapts a WebSocket connection to app.Channel.
type wsChannel struct {
	conn    *websocket.Conn
	timeout time.Duration

	// deadline of the current question, shared by every await on it
	deadline time.Time

	writeMu    sync.Mutex
	selections chan string
	done       chan struct{}
}

func newWSChannel(conn *websocket.Conn, timeout time.Duration) *wsChannel {
	return &wsChannel{
		conn:       conn,
		timeout:    timeout,
		selections: make(chan string, 4),
		done:       make(chan struct{}),
	}
}

func (c *wsChannel) PresentQuestion(_ context.Context, prompt app.Prompt) error {
	c.deadline = time.Time{}
	if c.timeout > 0 {
		c.deadline = time.Now().Add(c.timeout)
	}
	return c.send("question", prompt)
}

func (c *wsChannel) AwaitSelection(ctx context.Context) (app.Selection, error) {
	var expired <-chan time.Time
	if !c.deadline.IsZero() {
		timer := time.NewTimer(time.Until(c.deadline))
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case token := <-c.selections:
		return app.Selection{Token: token}, nil
	case <-expired:
		if err := c.send("timeout", nil); err != nil {
			return app.Selection{}, err
		}
		return app.Selection{TimedOut: true}, nil
	case <-c.done:
		return app.Selection{}, errConnectionClosed
	case <-ctx.Done():
		return app.Selection{}, ctx.Err()
	}
}

func (c *wsChannel) readLoop() {
	defer close(c.done)
	for {
		var in inboundMessage
		if err := c.conn.ReadJSON(&in); err != nil {
			return
		}
		switch in.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(in.Payload, &payload); err != nil || payload.Token == "" {
				_ = c.send("error", errorPayload{Message: "invalid answer payload"})
				continue
			}
			select {
			case c.selections <- payload.Token:
			default:
				// the session is not keeping up; extra clicks are dropped
			}
		default:
			_ = c.send("error", errorPayload{Message: "unsupported message type"})
		}
	}
}

func (c *wsChannel) send(kind string, payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(outboundMessage{Type: kind, Payload: payload})
}

func (c *wsChannel) writeControl(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.CloseMessage, data, time.Now().Add(writeWait))
}
