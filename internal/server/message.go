package server

import (
	"encoding/json"
	"time"

	"github.com/cardroomhq/tabled/internal/game"
)

// MessageType discriminates the websocket envelope.
type MessageType string

// Client to server.
const (
	MessageTypeJoin       MessageType = "join"
	MessageTypeLeave      MessageType = "leave"
	MessageTypeAction     MessageType = "action"
	MessageTypeStartHand  MessageType = "start_hand"
	MessageTypeGetState   MessageType = "get_state"
	MessageTypeGetActions MessageType = "get_actions"
)

// Server to client.
const (
	MessageTypeState         MessageType = "state"
	MessageTypeActionResult  MessageType = "action_result"
	MessageTypeActions       MessageType = "actions"
	MessageTypeJoined        MessageType = "joined"
	MessageTypeLeft          MessageType = "left"
	MessageTypeSettlement    MessageType = "settlement"
	MessageTypePlayerTimeout MessageType = "player_timeout"
	MessageTypeError         MessageType = "error"
)

// Message is the websocket envelope.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps data in an envelope with the current timestamp.
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → server payloads. Chip amounts are minor units.

type JoinData struct {
	TableID string `json:"table_id"`
	Seat    int    `json:"seat"`
	BuyIn   int64  `json:"buy_in"`
	Token   string `json:"token,omitempty"`
}

type ActionData struct {
	Action string `json:"action"`
	Amount int64  `json:"amount,omitempty"`
}

// Server → client payloads.

// StateData carries a personalized snapshot; YourSeat is 0 for observers.
type StateData struct {
	*game.View
	YourSeat int `json:"your_seat"`
}

type ActionsData struct {
	TableID string             `json:"table_id"`
	Seat    int                `json:"seat"`
	Actions []game.ValidAction `json:"actions"`
}

type JoinedData struct {
	TableID string `json:"table_id"`
	Seat    int    `json:"seat"`
	Stack   int64  `json:"stack"`
}

// LeftData reports a completed or deferred leave. Pending means the seat is
// folded but its stack is released only when the hand settles; a second
// left message follows then.
type LeftData struct {
	TableID string `json:"table_id"`
	Seat    int    `json:"seat"`
	Stack   int64  `json:"stack"`
	Pending bool   `json:"pending,omitempty"`
}

type PlayerTimeoutData struct {
	TableID string `json:"table_id"`
	Seat    int    `json:"seat"`
	Action  string `json:"action"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
