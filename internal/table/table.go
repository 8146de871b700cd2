// Package table schedules hands: each Table owns one game engine behind a
// single worker goroutine, a turn timer, and a settlement stream.
package table

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroomhq/tabled/internal/game"
	"github.com/cardroomhq/tabled/internal/metrics"
)

// ErrTableClosed is returned by every operation on a closed table.
var ErrTableClosed = errors.New("table closed")

const (
	settlementBuffer      = 64
	defaultInterHandDelay = 2 * time.Second
)

// Options tune table scheduling beyond the engine configuration.
type Options struct {
	// AutoStart deals the next hand after InterHandDelay whenever at
	// least two funded seats are present.
	AutoStart      bool
	InterHandDelay time.Duration

	// OnTimeout is called from the worker goroutine after a turn expires
	// and the seat has been folded.
	OnTimeout func(seat int)

	// OnDeferredLeave is called when a mid-hand leave completes after
	// settlement, with the stack handed back.
	OnDeferredLeave func(seat int, stack game.Chips)
}

type command struct {
	run  func()
	done chan struct{}
}

// Table serializes all access to one engine through a command mailbox. The
// worker goroutine is the only thing that ever touches the engine, which is
// what lets the engine itself stay lock-free.
type Table struct {
	id     string
	logger *log.Logger
	clock  quartz.Clock
	opts   Options

	engine *game.Engine

	cmds        chan command
	settlements chan game.SettlementRecord

	startPending bool // worker-only: an auto-start is already scheduled

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// New creates a table and starts its worker. sink receives a state
// broadcast after every transition; settlements are read from
// Settlements().
func New(cfg game.Config, sink game.Broadcaster, logger *log.Logger, clock quartz.Clock, opts Options) *Table {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if opts.InterHandDelay <= 0 {
		opts.InterHandDelay = defaultInterHandDelay
	}
	t := &Table{
		id:          cfg.TableID,
		logger:      logger.WithPrefix("table").With("table", cfg.TableID),
		clock:       clock,
		opts:        opts,
		cmds:        make(chan command),
		settlements: make(chan game.SettlementRecord, settlementBuffer),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	t.engine = game.NewEngine(cfg, sink, t.recordSettlement, logger, clock)
	go t.run()
	return t
}

// ID returns the table identifier.
func (t *Table) ID() string {
	return t.id
}

// Settlements streams one record per completed hand. The channel is closed
// when the table closes; slow consumers lose records rather than stall the
// table.
func (t *Table) Settlements() <-chan game.SettlementRecord {
	return t.settlements
}

// Join seats a player with the given stack in minor units.
func (t *Table) Join(seat int, stack game.Chips) error {
	var err error
	if derr := t.do(func() { err = t.engine.Attach(seat, stack) }); derr != nil {
		return derr
	}
	return err
}

// Leave removes a seat and returns its stack. Mid-hand the seat is folded
// and ErrDetachDeferred returned; OnDeferredLeave fires once the hand
// settles and the stack is released.
func (t *Table) Leave(seat int) (game.Chips, error) {
	var (
		stack game.Chips
		err   error
	)
	if derr := t.do(func() { stack, err = t.engine.Detach(seat) }); derr != nil {
		return 0, derr
	}
	return stack, err
}

// Act submits a player action.
func (t *Table) Act(a game.Action) (game.ActionResult, error) {
	var (
		res game.ActionResult
		err error
	)
	if derr := t.do(func() { res, err = t.engine.Submit(a) }); derr != nil {
		return game.ActionResult{}, derr
	}
	if err == nil {
		metrics.Actions.WithLabelValues(res.Action).Inc()
	}
	return res, err
}

// StartHand deals the next hand if one is not already running.
func (t *Table) StartHand() error {
	var err error
	if derr := t.do(func() { err = t.engine.StartHand() }); derr != nil {
		return derr
	}
	return err
}

// State returns a snapshot personalized for viewerSeat (0 for observers).
func (t *Table) State(viewerSeat int) (*game.View, error) {
	var view *game.View
	if derr := t.do(func() { view = t.engine.Snapshot(viewerSeat) }); derr != nil {
		return nil, derr
	}
	return view, nil
}

// Actions returns the legal actions for a seat, empty unless it holds the
// turn.
func (t *Table) Actions(seat int) ([]game.ValidAction, error) {
	var acts []game.ValidAction
	if derr := t.do(func() { acts = t.engine.ValidActions(seat) }); derr != nil {
		return nil, derr
	}
	return acts, nil
}

// Close aborts any hand in progress, refunding wagers, and stops the
// worker. It blocks until the worker has exited; the settlement channel is
// closed last.
func (t *Table) Close() {
	t.closeOnce.Do(func() { close(t.done) })
	<-t.stopped
}

// do runs fn on the worker goroutine and waits for it.
func (t *Table) do(fn func()) error {
	cmd := command{run: fn, done: make(chan struct{})}
	select {
	case t.cmds <- cmd:
	case <-t.done:
		return ErrTableClosed
	}
	select {
	case <-cmd.done:
		return nil
	case <-t.stopped:
		return ErrTableClosed
	}
}

// async enqueues fn without waiting; used by timer callbacks.
func (t *Table) async(fn func()) {
	select {
	case t.cmds <- command{run: fn}:
	case <-t.done:
	}
}

func (t *Table) run() {
	defer close(t.stopped)

	turn := t.clock.NewTimer(time.Hour)
	drainTimer(turn)

	for {
		select {
		case cmd := <-t.cmds:
			t.execute(cmd.run)
			if cmd.done != nil {
				close(cmd.done)
			}

		case <-turn.C:
			t.execute(t.handleTurnTimeout)

		case <-t.done:
			turn.Stop()
			t.engine.Abort(ErrTableClosed)
			close(t.settlements)
			return
		}

		t.afterCommand(turn)
	}
}

// execute runs one command with panic containment: a fault in the engine
// aborts the hand with refunds instead of killing the worker.
func (t *Table) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("worker fault, aborting hand", "panic", r)
			t.engine.Abort(fmt.Errorf("internal fault: %v", r))
		}
	}()
	fn()
}

func (t *Table) handleTurnTimeout() {
	seat := t.engine.OnTimeout()
	if seat == 0 {
		return
	}
	metrics.Actions.WithLabelValues("timeout_fold").Inc()
	if t.opts.OnTimeout != nil {
		t.opts.OnTimeout(seat)
	}
}

// afterCommand runs the between-command housekeeping: deferred leaves,
// auto-start scheduling and the turn timer, all still on the worker.
func (t *Table) afterCommand(turn *quartz.Timer) {
	if !t.engine.HandInProgress() {
		t.completeDeferredLeaves()
		t.maybeScheduleStart()
	}
	t.rearmTurnTimer(turn)
}

func (t *Table) completeDeferredLeaves() {
	for _, seat := range t.engine.PendingDetaches() {
		stack, err := t.engine.Detach(seat)
		if err != nil {
			t.logger.Error("deferred leave failed", "seat", seat, "error", err)
			continue
		}
		if t.opts.OnDeferredLeave != nil {
			t.opts.OnDeferredLeave(seat, stack)
		}
	}
}

func (t *Table) maybeScheduleStart() {
	if !t.opts.AutoStart || t.startPending || t.engine.FundedSeats() < 2 {
		return
	}
	t.startPending = true
	t.clock.AfterFunc(t.opts.InterHandDelay, func() {
		t.async(func() {
			t.startPending = false
			err := t.engine.StartHand()
			if err != nil && !errors.Is(err, game.ErrHandInProgress) {
				t.logger.Debug("auto-start skipped", "error", err)
			}
		})
	})
}

// rearmTurnTimer tracks the engine's actor deadline: armed exactly when an
// actor is on the clock.
func (t *Table) rearmTurnTimer(turn *quartz.Timer) {
	drainTimer(turn)
	if deadline, ok := t.engine.TurnDeadline(); ok {
		d := deadline.Sub(t.clock.Now())
		if d < 0 {
			d = 0
		}
		turn.Reset(d)
	}
}

func drainTimer(timer *quartz.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}

// recordSettlement is the engine's settle callback; it always runs on the
// worker goroutine.
func (t *Table) recordSettlement(rec game.SettlementRecord) {
	metrics.HandsCompleted.Inc()
	if rec.Rake > 0 {
		metrics.RakeMinorUnits.Add(float64(rec.Rake))
	}
	select {
	case t.settlements <- rec:
	default:
		t.logger.Warn("settlement stream full, dropping record", "hand", rec.HandID)
	}
}
