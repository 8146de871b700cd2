package game

import (
	"github.com/cardroomhq/tabled/internal/deck"
)

// View is the wire-stable state snapshot sent to clients. Chip amounts are
// minor units; the deadline is unix milliseconds.
type View struct {
	TableID            string       `json:"table_id"`
	Street             string       `json:"street"`
	CommunityCards     []deck.Card  `json:"community_cards"`
	Pot                Chips        `json:"pot"`
	Pots               []PotView    `json:"pots"`
	CurrentBet         Chips        `json:"current_bet"`
	MinRaise           Chips        `json:"min_raise"`
	ActorSeat          int          `json:"actor_seat"`
	TurnDeadlineUnixMS int64        `json:"turn_deadline_unix_ms"`
	Players            []PlayerView `json:"players"`
	HandInProgress     bool         `json:"hand_in_progress"`
}

// PotView is one pot's public shape
type PotView struct {
	Amount   Chips `json:"amount"`
	Eligible []int `json:"eligible"`
}

// PlayerView is one seat's public shape; Cards is empty unless the viewer
// owns the seat or the hand reached showdown.
type PlayerView struct {
	Seat       int         `json:"seat"`
	Stack      Chips       `json:"stack"`
	Status     string      `json:"status"`
	CurrentBet Chips       `json:"current_bet"`
	Cards      []deck.Card `json:"cards"`
}

// Snapshot builds a state view personalized for viewerSeat (0 for an
// observer). Hole cards of other seats are elided until showdown. The
// snapshot copies everything it exposes; it never aliases engine state.
func (e *Engine) Snapshot(viewerSeat int) *View {
	reveal := e.street == Showdown

	players := make([]PlayerView, 0, len(e.players))
	for _, seat := range e.seatsSorted() {
		p := e.players[seat]
		cards := []deck.Card{}
		if (seat == viewerSeat || reveal) && len(p.HoleCards) > 0 {
			cards = append(cards, p.HoleCards...)
		}
		players = append(players, PlayerView{
			Seat:       seat,
			Stack:      p.Stack,
			Status:     p.Status.String(),
			CurrentBet: p.CurrentBet,
			Cards:      cards,
		})
	}

	pots := e.pots.Pots()
	potViews := make([]PotView, 0, len(pots))
	for _, p := range pots {
		potViews = append(potViews, PotView{
			Amount:   p.Amount,
			Eligible: append([]int{}, p.Eligible...),
		})
	}

	var deadlineMS int64
	if e.actorSeat != 0 {
		deadlineMS = e.turnDeadline.UnixMilli()
	}

	community := make([]deck.Card, len(e.community))
	copy(community, e.community)

	return &View{
		TableID:            e.cfg.TableID,
		Street:             e.street.String(),
		CommunityCards:     community,
		Pot:                e.pots.Total() + e.pots.RoundTotal(),
		Pots:               potViews,
		CurrentBet:         e.currentBet,
		MinRaise:           e.minRaise,
		ActorSeat:          e.actorSeat,
		TurnDeadlineUnixMS: deadlineMS,
		Players:            players,
		HandInProgress:     e.handInProgress,
	}
}
