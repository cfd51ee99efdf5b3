package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"narsus/internal/model"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgAttemptSubmitted MessageType = model.EventAttemptSubmitted
	MsgError            MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans submission events out to the teachers watching a survey
type Hub struct {
	// surveyID -> connections
	conns map[string]map[*Connection]struct{}

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	closeOnce  sync.Once

	log *zap.Logger
}

// Connection is one teacher's live feed of a survey
type Connection struct {
	SurveyID string
	UserID   string
	Send     chan []byte
}

// BroadcastMessage is a message for the owner's connections on a survey
type BroadcastMessage struct {
	SurveyID string
	OwnerID  string
	Message  *Message
}

// NewHub creates a new WebSocket hub and starts its loop
func NewHub(log *zap.Logger) *Hub {
	h := &Hub{
		conns:      make(map[string]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		log:        log,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for surveyID, set := range h.conns {
				for conn := range set {
					close(conn.Send)
				}
				delete(h.conns, surveyID)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.SurveyID] == nil {
				h.conns[conn.SurveyID] = make(map[*Connection]struct{})
			}
			h.conns[conn.SurveyID][conn] = struct{}{}
			h.mu.Unlock()
			h.log.Debug("submission feed connected", zap.String("survey_id", conn.SurveyID), zap.String("user_id", conn.UserID))

		case conn := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.conns[conn.SurveyID]; ok {
				if _, ok := set[conn]; ok {
					delete(set, conn)
					close(conn.Send)
					if len(set) == 0 {
						delete(h.conns, conn.SurveyID)
					}
				}
			}
			h.mu.Unlock()
			h.log.Debug("submission feed disconnected", zap.String("survey_id", conn.SurveyID), zap.String("user_id", conn.UserID))

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Message)
			if err != nil {
				h.log.Error("encode ws message", zap.Error(err))
				continue
			}
			h.mu.RLock()
			for conn := range h.conns[msg.SurveyID] {
				if conn.UserID != msg.OwnerID {
					continue
				}
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Connections counts the live feeds of a survey
func (h *Hub) Connections(surveyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[surveyID])
}

// Close stops the hub and closes every connection
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// BroadcastSubmission queues a submission event for the survey owner
// (implements service.Broadcaster). It never blocks the submit path.
func (h *Hub) BroadcastSubmission(ownerID, surveyID string, event *model.AttemptSubmittedEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("encode submission event", zap.Error(err))
		return
	}
	msg := &BroadcastMessage{
		SurveyID: surveyID,
		OwnerID:  ownerID,
		Message:  &Message{Type: MsgAttemptSubmitted, Payload: data},
	}
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("submission event dropped", zap.String("survey_id", surveyID), zap.String("attempt_id", event.AttemptID))
	}
}
