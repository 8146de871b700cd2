package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cardroomhq/tabled/internal/game"
	"github.com/cardroomhq/tabled/internal/metrics"
	"github.com/cardroomhq/tabled/internal/table"
)

// Server terminates websocket clients and routes their messages to tables.
type Server struct {
	logger   *log.Logger
	registry *table.Registry
	hub      *Hub
	signer   *TokenSigner
	upgrader websocket.Upgrader

	tableCfgs map[string]TableConfig

	httpServer *http.Server

	mu    sync.Mutex
	conns map[*Connection]bool
}

// NewServer wires the websocket layer over a registry and hub. cfg supplies
// the listen address, per-table buy-in bounds and the token secret.
func NewServer(cfg *Config, registry *table.Registry, hub *Hub, logger *log.Logger) *Server {
	tableCfgs := make(map[string]TableConfig, len(cfg.Tables))
	for _, tc := range cfg.Tables {
		tableCfgs[tc.Name] = tc
	}

	s := &Server{
		logger:   logger.WithPrefix("server"),
		registry: registry,
		hub:      hub,
		signer:   NewTokenSigner(cfg.Server.TokenSecret),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		tableCfgs: tableCfgs,
		conns:     make(map[*Connection]bool),
	}
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the HTTP routes: the websocket endpoint plus health and
// metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// ListenAndServe serves until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener and closes every client connection.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"tables": s.registry.IDs(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	conn := newConnection(wsConn, s.logger, s)
	s.mu.Lock()
	s.conns[conn] = true
	total := len(s.conns)
	s.mu.Unlock()
	metrics.ConnectedClients.Inc()
	s.logger.Info("client connected", "remote", wsConn.RemoteAddr(), "total", total)

	conn.start()
}

// disconnected is called by the read pump exactly once per connection. A
// seated client that drops mid-hand is folded and leaves the table the way
// an explicit leave would.
func (s *Server) disconnected(conn *Connection) {
	s.mu.Lock()
	if !s.conns[conn] {
		s.mu.Unlock()
		return
	}
	delete(s.conns, conn)
	total := len(s.conns)
	s.mu.Unlock()
	metrics.ConnectedClients.Dec()

	tableID, seat := s.hub.detach(conn)
	if seat != 0 {
		if tbl, ok := s.registry.Lookup(tableID); ok {
			if _, err := tbl.Leave(seat); err != nil && !errors.Is(err, game.ErrDetachDeferred) {
				s.logger.Error("removing disconnected seat", "table", tableID, "seat", seat, "error", err)
			}
		}
	}
	s.logger.Info("client disconnected", "table", tableID, "seat", seat, "total", total)
}

func (s *Server) handleMessage(conn *Connection, msg *Message) {
	switch msg.Type {
	case MessageTypeJoin:
		s.handleJoin(conn, msg.Data)
	case MessageTypeLeave:
		s.handleLeave(conn)
	case MessageTypeAction:
		s.handleAction(conn, msg.Data)
	case MessageTypeStartHand:
		s.handleStartHand(conn)
	case MessageTypeGetState:
		s.handleGetState(conn)
	case MessageTypeGetActions:
		s.handleGetActions(conn)
	default:
		conn.sendError("bad_request", fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (s *Server) handleJoin(conn *Connection, data json.RawMessage) {
	var join JoinData
	if err := json.Unmarshal(data, &join); err != nil {
		conn.sendError("bad_request", "malformed join")
		return
	}

	tbl, ok := s.registry.Lookup(join.TableID)
	if !ok {
		conn.sendError("table_not_found", fmt.Sprintf("no table %q", join.TableID))
		return
	}

	if join.Seat == 0 {
		// Observer: attached for broadcasts, no seat, no chips.
		s.hub.attach(conn, join.TableID, 0)
		s.reply(conn, MessageTypeJoined, JoinedData{TableID: join.TableID, Seat: 0})
		s.sendState(conn, tbl)
		return
	}

	if !s.signer.Verify(join.TableID, join.Seat, join.Token) {
		conn.sendError("unauthorized", "invalid seat token")
		return
	}
	if tc, ok := s.tableCfgs[join.TableID]; ok {
		min, max := tc.BuyInBounds()
		if game.Chips(join.BuyIn) < min || game.Chips(join.BuyIn) > max {
			conn.sendError("amount_out_of_bounds",
				fmt.Sprintf("buy-in must be within [%d, %d] minor units", min, max))
			return
		}
	}

	if !s.hub.attach(conn, join.TableID, join.Seat) {
		conn.sendError("seat_taken", "seat held by another connection")
		return
	}
	if err := tbl.Join(join.Seat, game.Chips(join.BuyIn)); err != nil {
		s.hub.releaseSeat(join.TableID, join.Seat)
		s.sendGameError(conn, err)
		return
	}

	s.logger.Info("seat joined", "table", join.TableID, "seat", join.Seat, "buy_in", join.BuyIn)
	s.reply(conn, MessageTypeJoined, JoinedData{
		TableID: join.TableID,
		Seat:    join.Seat,
		Stack:   join.BuyIn,
	})
	s.sendState(conn, tbl)
}

func (s *Server) handleLeave(conn *Connection) {
	tableID, seat := conn.seatAt()
	if tableID == "" {
		conn.sendError("bad_request", "not at a table")
		return
	}
	if seat == 0 {
		s.hub.detach(conn)
		s.reply(conn, MessageTypeLeft, LeftData{TableID: tableID})
		return
	}

	tbl, ok := s.registry.Lookup(tableID)
	if !ok {
		s.hub.detach(conn)
		conn.sendError("table_not_found", fmt.Sprintf("no table %q", tableID))
		return
	}

	stack, err := tbl.Leave(seat)
	switch {
	case errors.Is(err, game.ErrDetachDeferred):
		// Folded out; the stack follows when the hand settles.
		s.reply(conn, MessageTypeLeft, LeftData{TableID: tableID, Seat: seat, Pending: true})
	case err != nil:
		s.sendGameError(conn, err)
	default:
		s.hub.releaseSeat(tableID, seat)
		s.reply(conn, MessageTypeLeft, LeftData{TableID: tableID, Seat: seat, Stack: int64(stack)})
	}
}

func (s *Server) handleAction(conn *Connection, data json.RawMessage) {
	var act ActionData
	if err := json.Unmarshal(data, &act); err != nil {
		conn.sendError("bad_request", "malformed action")
		return
	}

	tableID, seat := conn.seatAt()
	if seat == 0 {
		conn.sendError("bad_request", "not seated")
		return
	}
	tbl, ok := s.registry.Lookup(tableID)
	if !ok {
		conn.sendError("table_not_found", fmt.Sprintf("no table %q", tableID))
		return
	}

	kind, ok := game.ParseActionKind(act.Action)
	if !ok {
		conn.sendError("bad_request", fmt.Sprintf("unknown action %q", act.Action))
		return
	}

	res, err := tbl.Act(game.Action{Seat: seat, Kind: kind, Amount: game.Chips(act.Amount)})
	if err != nil {
		s.sendGameError(conn, err)
		return
	}

	msg, err := NewMessage(MessageTypeActionResult, res)
	if err != nil {
		s.logger.Error("encoding action result", "error", err)
		return
	}
	s.hub.BroadcastMessage(tableID, msg)
}

func (s *Server) handleStartHand(conn *Connection) {
	tableID, seat := conn.seatAt()
	if seat == 0 {
		conn.sendError("bad_request", "not seated")
		return
	}
	tbl, ok := s.registry.Lookup(tableID)
	if !ok {
		conn.sendError("table_not_found", fmt.Sprintf("no table %q", tableID))
		return
	}
	if err := tbl.StartHand(); err != nil {
		s.sendGameError(conn, err)
	}
}

func (s *Server) handleGetState(conn *Connection) {
	tableID, _ := conn.seatAt()
	tbl, ok := s.registry.Lookup(tableID)
	if !ok {
		conn.sendError("table_not_found", "not at a table")
		return
	}
	s.sendState(conn, tbl)
}

func (s *Server) handleGetActions(conn *Connection) {
	tableID, seat := conn.seatAt()
	tbl, ok := s.registry.Lookup(tableID)
	if !ok {
		conn.sendError("table_not_found", "not at a table")
		return
	}
	acts, err := tbl.Actions(seat)
	if err != nil {
		s.sendGameError(conn, err)
		return
	}
	s.reply(conn, MessageTypeActions, ActionsData{TableID: tableID, Seat: seat, Actions: acts})
}

func (s *Server) sendState(conn *Connection, tbl *table.Table) {
	_, seat := conn.seatAt()
	view, err := tbl.State(seat)
	if err != nil {
		s.sendGameError(conn, err)
		return
	}
	s.reply(conn, MessageTypeState, StateData{View: view, YourSeat: seat})
}

func (s *Server) reply(conn *Connection, messageType MessageType, data interface{}) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		s.logger.Error("encoding reply", "type", messageType, "error", err)
		return
	}
	_ = conn.Send(msg)
}

// sendGameError maps engine errors to wire error codes.
func (s *Server) sendGameError(conn *Connection, err error) {
	code := "internal"
	switch {
	case errors.Is(err, game.ErrNotYourTurn):
		code = "not_your_turn"
	case errors.Is(err, game.ErrIllegalAction):
		code = "illegal_action"
	case errors.Is(err, game.ErrAmountOutOfBounds):
		code = "amount_out_of_bounds"
	case errors.Is(err, game.ErrNoHandInProgress):
		code = "no_hand_in_progress"
	case errors.Is(err, game.ErrHandInProgress):
		code = "hand_in_progress"
	case errors.Is(err, game.ErrNotEnoughPlayers):
		code = "not_enough_players"
	case errors.Is(err, game.ErrSeatTaken):
		code = "seat_taken"
	case errors.Is(err, game.ErrSeatOutOfRange):
		code = "seat_out_of_range"
	case errors.Is(err, game.ErrUnknownSeat):
		code = "unknown_seat"
	case errors.Is(err, table.ErrTableClosed):
		code = "table_closed"
	}
	conn.sendError(code, err.Error())
}
