package table

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroomhq/tabled/internal/game"
)

type sinkStub struct {
	mu    sync.Mutex
	count int
}

func (s *sinkStub) Broadcast(_ string, _ func(viewerSeat int) *game.View) {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
}

func (s *sinkStub) broadcasts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func testTableConfig() game.Config {
	return game.Config{
		TableID:     "t1",
		SmallBlind:  50,
		BigBlind:    100,
		TurnTimeout: 30 * time.Second,
		MaxSeats:    6,
	}
}

func newTestTable(t *testing.T, opts Options) (*Table, *sinkStub, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	sink := &sinkStub{}
	logger := log.New(io.Discard)
	tbl := New(testTableConfig(), sink, logger, clock, opts)
	t.Cleanup(tbl.Close)
	return tbl, sink, clock
}

func viewSeat(t *testing.T, view *game.View, seat int) game.PlayerView {
	t.Helper()
	for _, pv := range view.Players {
		if pv.Seat == seat {
			return pv
		}
	}
	t.Fatalf("seat %d not in view", seat)
	return game.PlayerView{}
}

func TestTableHandLifecycle(t *testing.T) {
	t.Parallel()
	tbl, sink, _ := newTestTable(t, Options{})

	require.NoError(t, tbl.Join(1, 1000))
	require.NoError(t, tbl.Join(2, 1000))
	require.NoError(t, tbl.Join(3, 1000))
	require.ErrorIs(t, tbl.Join(3, 1000), game.ErrSeatTaken)

	require.NoError(t, tbl.StartHand())
	require.ErrorIs(t, tbl.StartHand(), game.ErrHandInProgress)

	view, err := tbl.State(0)
	require.NoError(t, err)
	assert.True(t, view.HandInProgress)
	assert.Equal(t, 1, view.ActorSeat)
	assert.Positive(t, sink.broadcasts())

	acts, err := tbl.Actions(1)
	require.NoError(t, err)
	assert.NotEmpty(t, acts)
	acts, err = tbl.Actions(2)
	require.NoError(t, err)
	assert.Empty(t, acts)

	res, err := tbl.Act(game.Action{Seat: 1, Kind: game.Fold})
	require.NoError(t, err)
	assert.Equal(t, "fold", res.Action)
	_, err = tbl.Act(game.Action{Seat: 1, Kind: game.Fold})
	require.ErrorIs(t, err, game.ErrNotYourTurn)

	_, err = tbl.Act(game.Action{Seat: 2, Kind: game.Fold})
	require.NoError(t, err)

	select {
	case rec := <-tbl.Settlements():
		assert.Equal(t, "t1", rec.TableID)
		require.Len(t, rec.Winners, 1)
		assert.Equal(t, 3, rec.Winners[0].Seat)
	case <-time.After(5 * time.Second):
		t.Fatal("no settlement record")
	}
}

func TestTurnTimeoutAutoFold(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	timedOut := make(chan int, 1)
	tbl, _, clock := newTestTable(t, Options{
		OnTimeout: func(seat int) { timedOut <- seat },
	})

	require.NoError(t, tbl.Join(1, 1000))
	require.NoError(t, tbl.Join(2, 1000))
	require.NoError(t, tbl.Join(3, 1000))
	require.NoError(t, tbl.StartHand())

	// Not yet: the actor still has time on the clock.
	clock.Advance(29 * time.Second).MustWait(ctx)
	view, err := tbl.State(0)
	require.NoError(t, err)
	assert.Equal(t, 1, view.ActorSeat)

	clock.Advance(time.Second).MustWait(ctx)
	clock.Advance(time.Second).MustWait(ctx)

	select {
	case seat := <-timedOut:
		assert.Equal(t, 1, seat)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout notification never arrived")
	}

	view, err = tbl.State(0)
	require.NoError(t, err)
	assert.Equal(t, "folded", viewSeat(t, view, 1).Status)
	assert.Equal(t, 2, view.ActorSeat)
}

func TestTurnTimerFollowsActor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	timedOut := make(chan int, 2)
	tbl, _, clock := newTestTable(t, Options{
		OnTimeout: func(seat int) { timedOut <- seat },
	})

	require.NoError(t, tbl.Join(1, 1000))
	require.NoError(t, tbl.Join(2, 1000))
	require.NoError(t, tbl.Join(3, 1000))
	require.NoError(t, tbl.StartHand())

	// Seat 1 acts with 5 seconds left; seat 2's clock starts fresh.
	clock.Advance(25 * time.Second).MustWait(ctx)
	_, err := tbl.Act(game.Action{Seat: 1, Kind: game.Call})
	require.NoError(t, err)

	clock.Advance(29 * time.Second).MustWait(ctx)
	view, err := tbl.State(0)
	require.NoError(t, err)
	assert.Equal(t, 2, view.ActorSeat)
	assert.Empty(t, timedOut)

	clock.Advance(time.Second).MustWait(ctx)
	clock.Advance(time.Second).MustWait(ctx)
	assert.Equal(t, 2, <-timedOut)
}

func TestAutoStartDealsWhenTableFills(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tbl, _, clock := newTestTable(t, Options{
		AutoStart:      true,
		InterHandDelay: time.Second,
	})

	require.NoError(t, tbl.Join(1, 1000))
	view, err := tbl.State(0)
	require.NoError(t, err)
	require.False(t, view.HandInProgress)

	// One player is not a game; the second join arms the start timer.
	clock.Advance(time.Second).MustWait(ctx)
	view, err = tbl.State(0)
	require.NoError(t, err)
	require.False(t, view.HandInProgress)

	require.NoError(t, tbl.Join(2, 1000))
	clock.Advance(time.Second).MustWait(ctx)

	view, err = tbl.State(0)
	require.NoError(t, err)
	assert.True(t, view.HandInProgress)
}

func TestLeaveMidHandIsDeferred(t *testing.T) {
	t.Parallel()

	left := make(chan game.Chips, 1)
	tbl, _, _ := newTestTable(t, Options{
		OnDeferredLeave: func(seat int, stack game.Chips) {
			if seat == 2 {
				left <- stack
			}
		},
	})

	require.NoError(t, tbl.Join(1, 1000))
	require.NoError(t, tbl.Join(2, 1000))
	require.NoError(t, tbl.Join(3, 1000))
	require.NoError(t, tbl.StartHand())

	// Seat 2 posted the small blind; its leave waits for the hand.
	_, err := tbl.Leave(2)
	require.ErrorIs(t, err, game.ErrDetachDeferred)

	_, err = tbl.Act(game.Action{Seat: 1, Kind: game.Fold})
	require.NoError(t, err)

	select {
	case stack := <-left:
		assert.Equal(t, game.Chips(950), stack)
	case <-time.After(5 * time.Second):
		t.Fatal("deferred leave never completed")
	}

	// The seat is free again.
	require.NoError(t, tbl.Join(2, 500))
}

func TestLeaveBetweenHands(t *testing.T) {
	t.Parallel()
	tbl, _, _ := newTestTable(t, Options{})

	require.NoError(t, tbl.Join(4, 750))
	stack, err := tbl.Leave(4)
	require.NoError(t, err)
	assert.Equal(t, game.Chips(750), stack)

	_, err = tbl.Leave(4)
	require.ErrorIs(t, err, game.ErrUnknownSeat)
}

func TestCloseAbortsHandAndRefunds(t *testing.T) {
	t.Parallel()
	clock := quartz.NewMock(t)
	sink := &sinkStub{}
	tbl := New(testTableConfig(), sink, log.New(io.Discard), clock, Options{})

	require.NoError(t, tbl.Join(1, 1000))
	require.NoError(t, tbl.Join(2, 1000))
	require.NoError(t, tbl.StartHand())

	tbl.Close()

	var aborted bool
	for rec := range tbl.Settlements() {
		if rec.Aborted {
			aborted = true
			assert.NotEmpty(t, rec.Refunds)
		}
	}
	assert.True(t, aborted, "closing mid-hand should abort with refunds")

	// Every operation on a closed table fails the same way.
	require.ErrorIs(t, tbl.Join(3, 100), ErrTableClosed)
	_, err := tbl.State(0)
	require.ErrorIs(t, err, ErrTableClosed)
	_, err = tbl.Act(game.Action{Seat: 1, Kind: game.Fold})
	require.ErrorIs(t, err, ErrTableClosed)

	// Close is idempotent.
	tbl.Close()
}

func TestWorkerPanicAbortsHand(t *testing.T) {
	t.Parallel()
	tbl, _, _ := newTestTable(t, Options{})

	require.NoError(t, tbl.Join(1, 1000))
	require.NoError(t, tbl.Join(2, 1000))
	require.NoError(t, tbl.StartHand())

	// A faulting command must not kill the worker; the hand aborts with
	// refunds and the table keeps serving.
	require.NoError(t, tbl.do(func() { panic("boom") }))

	select {
	case rec := <-tbl.Settlements():
		assert.True(t, rec.Aborted)
	case <-time.After(5 * time.Second):
		t.Fatal("no abort settlement after worker fault")
	}

	view, err := tbl.State(0)
	require.NoError(t, err)
	assert.False(t, view.HandInProgress)
	assert.Equal(t, game.Chips(1000), viewSeat(t, view, 1).Stack)

	require.NoError(t, tbl.StartHand())
}
