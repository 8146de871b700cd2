package table

import (
	"github.com/charmbracelet/log"

	"github.com/cardroomhq/tabled/internal/game"
)

// Ledger receives every hand's settlement. The durable backend lives
// outside this process; only settlements cross the boundary.
type Ledger interface {
	Record(rec game.SettlementRecord)
}

// LogLedger writes settlements to the log, enough to reconcile against
// until a real backend is attached.
type LogLedger struct {
	logger *log.Logger
}

// NewLogLedger creates a logging ledger.
func NewLogLedger(logger *log.Logger) *LogLedger {
	return &LogLedger{logger: logger.WithPrefix("ledger")}
}

// Record implements Ledger.
func (l *LogLedger) Record(rec game.SettlementRecord) {
	if rec.Aborted {
		l.logger.Warn("hand aborted",
			"table", rec.TableID, "hand", rec.HandID, "refunds", len(rec.Refunds))
		return
	}
	for _, w := range rec.Winners {
		l.logger.Info("hand settled",
			"table", rec.TableID, "hand", rec.HandID,
			"seat", w.Seat, "amount", w.Amount, "rank", w.Rank, "rake", rec.Rake)
	}
}
