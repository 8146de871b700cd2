package server

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/cardroomhq/tabled/internal/game"
)

// Hub tracks which connections watch which table and which seat each one
// occupies. It implements the engine's Broadcaster: every state push builds
// one personalized snapshot per recipient, so hole cards never travel to
// the wrong socket.
type Hub struct {
	logger *log.Logger

	mu      sync.RWMutex
	conns   map[string]map[*Connection]bool // table -> connections (seated + observers)
	seats   map[string]map[int]*Connection  // table -> seat -> connection
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		logger: logger.WithPrefix("hub"),
		conns:  make(map[string]map[*Connection]bool),
		seats:  make(map[string]map[int]*Connection),
	}
}

// attach binds a connection to a table, optionally claiming a seat (0 for
// an observer). A seat already held by a live connection is refused.
func (h *Hub) attach(conn *Connection, tableID string, seat int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if seat != 0 {
		if existing, ok := h.seats[tableID][seat]; ok && existing != conn {
			return false
		}
		if h.seats[tableID] == nil {
			h.seats[tableID] = make(map[int]*Connection)
		}
		h.seats[tableID][seat] = conn
	}
	if h.conns[tableID] == nil {
		h.conns[tableID] = make(map[*Connection]bool)
	}
	h.conns[tableID][conn] = true
	conn.setSeat(tableID, seat)
	return true
}

// detach removes a connection from its table and releases its seat, if any.
// It returns the binding that was dropped.
func (h *Hub) detach(conn *Connection) (tableID string, seat int) {
	tableID, seat = conn.seatAt()
	if tableID == "" {
		return "", 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns[tableID], conn)
	if len(h.conns[tableID]) == 0 {
		delete(h.conns, tableID)
	}
	if seat != 0 && h.seats[tableID][seat] == conn {
		delete(h.seats[tableID], seat)
		if len(h.seats[tableID]) == 0 {
			delete(h.seats, tableID)
		}
	}
	conn.setSeat("", 0)
	return tableID, seat
}

// releaseSeat demotes a seated connection to observer, keeping it attached
// to the table. Used when a leave completes.
func (h *Hub) releaseSeat(tableID string, seat int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.seats[tableID][seat]
	if !ok {
		return
	}
	delete(h.seats[tableID], seat)
	if len(h.seats[tableID]) == 0 {
		delete(h.seats, tableID)
	}
	conn.setSeat(tableID, 0)
}

// Broadcast implements game.Broadcaster. It runs on the table worker, so
// snapshots are consistent; sends never block it.
func (h *Hub) Broadcast(tableID string, snap func(viewerSeat int) *game.View) {
	h.mu.RLock()
	recipients := make(map[*Connection]int, len(h.conns[tableID]))
	for conn := range h.conns[tableID] {
		_, seat := conn.seatAt()
		recipients[conn] = seat
	}
	h.mu.RUnlock()

	for conn, seat := range recipients {
		msg, err := NewMessage(MessageTypeState, StateData{View: snap(seat), YourSeat: seat})
		if err != nil {
			h.logger.Error("encoding state broadcast", "table", tableID, "error", err)
			continue
		}
		_ = conn.Send(msg)
	}
}

// BroadcastMessage fans one identical message out to everyone at a table.
func (h *Hub) BroadcastMessage(tableID string, msg *Message) {
	h.mu.RLock()
	recipients := make([]*Connection, 0, len(h.conns[tableID]))
	for conn := range h.conns[tableID] {
		recipients = append(recipients, conn)
	}
	h.mu.RUnlock()

	for _, conn := range recipients {
		_ = conn.Send(msg)
	}
}

// SendToSeat delivers a message to the connection holding one seat.
func (h *Hub) SendToSeat(tableID string, seat int, msg *Message) {
	h.mu.RLock()
	conn, ok := h.seats[tableID][seat]
	h.mu.RUnlock()
	if ok {
		_ = conn.Send(msg)
	}
}

// BroadcastSettlement pushes a hand's settlement to the whole table.
func (h *Hub) BroadcastSettlement(rec game.SettlementRecord) {
	msg, err := NewMessage(MessageTypeSettlement, rec)
	if err != nil {
		h.logger.Error("encoding settlement", "table", rec.TableID, "error", err)
		return
	}
	h.BroadcastMessage(rec.TableID, msg)
}

// BroadcastPlayerTimeout announces a fold forced by the turn clock.
func (h *Hub) BroadcastPlayerTimeout(tableID string, seat int) {
	msg, err := NewMessage(MessageTypePlayerTimeout, PlayerTimeoutData{
		TableID: tableID,
		Seat:    seat,
		Action:  "fold",
	})
	if err != nil {
		return
	}
	h.BroadcastMessage(tableID, msg)
}

// NotifyDeferredLeave completes a deferred leave on the wire: the departing
// seat learns its stack and the seat binding is released.
func (h *Hub) NotifyDeferredLeave(tableID string, seat int, stack game.Chips) {
	msg, err := NewMessage(MessageTypeLeft, LeftData{
		TableID: tableID,
		Seat:    seat,
		Stack:   int64(stack),
	})
	if err != nil {
		return
	}
	h.SendToSeat(tableID, seat, msg)
	h.releaseSeat(tableID, seat)
}
