package game

import "github.com/cardroomhq/tabled/internal/deck"

// Winner is one seat's share of one pot at settlement
type Winner struct {
	Seat      int         `json:"seat"`
	Amount    Chips       `json:"amount"`
	Rank      string      `json:"rank,omitempty"`
	HoleCards []deck.Card `json:"hole_cards,omitempty"`
}

// Refund is a returned wager from an aborted hand
type Refund struct {
	Seat   int   `json:"seat"`
	Amount Chips `json:"amount"`
}

// PotBreakdown is a settled pot and the seats that were eligible for it
type PotBreakdown struct {
	Amount   Chips `json:"amount"`
	Eligible []int `json:"eligible"`
}

// SettlementRecord is the sole output persisted by external collaborators:
// emitted exactly once per completed hand.
type SettlementRecord struct {
	TableID        string         `json:"table_id"`
	HandID         uint64         `json:"hand_id"`
	Winners        []Winner       `json:"winners"`
	Pots           []PotBreakdown `json:"pots"`
	Rake           Chips          `json:"rake"`
	CommunityCards []deck.Card    `json:"community_cards"`
	Refunds        []Refund       `json:"refunds,omitempty"`
	Aborted        bool           `json:"aborted,omitempty"`
}
