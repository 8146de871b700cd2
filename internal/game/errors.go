package game

import "errors"

// Client errors: recoverable, reported to the submitter, never mutate state.
var (
	ErrIllegalAction     = errors.New("illegal action")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrNoHandInProgress  = errors.New("no hand in progress")
	ErrUnknownSeat       = errors.New("unknown seat")
	ErrAmountOutOfBounds = errors.New("amount out of bounds")
)

// Seat management errors.
var (
	ErrSeatTaken      = errors.New("seat taken")
	ErrSeatOutOfRange = errors.New("seat out of range")
)

// Hand trigger errors.
var (
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrHandInProgress   = errors.New("hand in progress")
)

// ErrDetachDeferred signals that a seat cannot leave until the current hand
// settles; the seat has been folded and will be released at hand end.
var ErrDetachDeferred = errors.New("detach deferred until hand end")
