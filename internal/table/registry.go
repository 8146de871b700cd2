package table

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroomhq/tabled/internal/game"
)

// ErrTableExists is returned when creating a table with a taken identifier.
var ErrTableExists = errors.New("table already exists")

// Registry owns the live tables by identifier.
type Registry struct {
	logger *log.Logger
	clock  quartz.Clock

	mu     sync.Mutex
	tables map[string]*Table
}

// NewRegistry creates an empty registry. clock is shared by every table it
// creates; nil means the real clock.
func NewRegistry(logger *log.Logger, clock quartz.Clock) *Registry {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Registry{
		logger: logger.WithPrefix("registry"),
		clock:  clock,
		tables: make(map[string]*Table),
	}
}

// Create starts a table under cfg.TableID.
func (r *Registry) Create(cfg game.Config, sink game.Broadcaster, opts Options) (*Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[cfg.TableID]; ok {
		return nil, fmt.Errorf("table %q: %w", cfg.TableID, ErrTableExists)
	}
	t := New(cfg, sink, r.logger, r.clock, opts)
	r.tables[cfg.TableID] = t
	r.logger.Info("table created", "table", cfg.TableID,
		"small_blind", cfg.SmallBlind, "big_blind", cfg.BigBlind, "max_seats", cfg.MaxSeats)
	return t, nil
}

// Lookup finds a table by identifier.
func (r *Registry) Lookup(id string) (*Table, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[id]
	return t, ok
}

// Remove closes and drops a table; it reports whether the table existed.
// The close blocks until the table's worker has exited.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	t, ok := r.tables[id]
	delete(r.tables, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	t.Close()
	r.logger.Info("table removed", "table", id)
	return true
}

// IDs lists the registered table identifiers, sorted.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.tables))
	for id := range r.tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Tables returns the live tables.
func (r *Registry) Tables() []*Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Table, 0, len(r.tables))
	for _, t := range r.tables {
		out = append(out, t)
	}
	return out
}

// CloseAll closes every table and empties the registry.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	tables := make([]*Table, 0, len(r.tables))
	for _, t := range r.tables {
		tables = append(tables, t)
	}
	r.tables = make(map[string]*Table)
	r.mu.Unlock()

	for _, t := range tables {
		t.Close()
	}
}
