package kb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/signalsfoundry/propagation-tool/model"
)

// ErrGroundNotFound is returned by Lookup for an unknown ground name.
var ErrGroundNotFound = errors.New("ground type not found")

// Ground is a named pair of ground electrical constants.
type Ground struct {
	Name         string  `json:"name"`
	Conductivity float64 `json:"conductivity"`
	Permittivity float64 `json:"permittivity"`
	Description  string  `json:"description,omitempty"`
}

// Validate checks the ground constants against the same domain as
// model.LinkConfig.
func (g Ground) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("%w: ground name is required", model.ErrInvalidParameter)
	}
	if math.IsNaN(g.Conductivity) || math.IsInf(g.Conductivity, 0) || g.Conductivity < 0 {
		return fmt.Errorf("%w: ground %q conductivity must be >= 0, got %v", model.ErrInvalidParameter, g.Name, g.Conductivity)
	}
	if math.IsNaN(g.Permittivity) || math.IsInf(g.Permittivity, 0) || g.Permittivity <= 0 {
		return fmt.Errorf("%w: ground %q permittivity must be > 0, got %v", model.ErrInvalidParameter, g.Name, g.Permittivity)
	}
	return nil
}

// Apply copies the ground constants into cfg.
func (g Ground) Apply(cfg *model.LinkConfig) {
	cfg.Conductivity = g.Conductivity
	cfg.Permittivity = g.Permittivity
}

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventGroundAdded EventType = iota
	EventGroundReplaced
)

// Event is emitted to subscribers when the catalog changes.
type Event struct {
	Type   EventType
	Ground Ground
}

// GroundCatalog is an in-memory, thread-safe set of named ground types.
type GroundCatalog struct {
	mu sync.RWMutex

	grounds map[string]Ground
	subs    map[int]func(Event)
	nextSub int
}

// NewGroundCatalog constructs an empty catalog.
func NewGroundCatalog() *GroundCatalog {
	return &GroundCatalog{grounds: make(map[string]Ground), subs: make(map[int]func(Event))}
}

// DefaultGrounds returns the built-in presets.
func DefaultGrounds() []Ground {
	return []Ground{
		{Name: "sea-water", Conductivity: 5, Permittivity: 80, Description: "average salinity sea water"},
		{Name: "fresh-water", Conductivity: 0.005, Permittivity: 80},
		{Name: "wet-ground", Conductivity: 0.01, Permittivity: 30},
		{Name: "average-ground", Conductivity: 0.005, Permittivity: 15},
		{Name: "medium-dry-ground", Conductivity: 0.001, Permittivity: 15},
		{Name: "very-dry-ground", Conductivity: 0.0001, Permittivity: 3},
	}
}

// NewDefaultCatalog returns a catalog preloaded with DefaultGrounds.
func NewDefaultCatalog() *GroundCatalog {
	c := NewGroundCatalog()
	for _, g := range DefaultGrounds() {
		c.grounds[key(g.Name)] = g
	}
	return c
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Add inserts a new ground. It returns an error if the name already exists.
func (c *GroundCatalog) Add(g Ground) error {
	if err := g.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	if _, exists := c.grounds[key(g.Name)]; exists {
		c.mu.Unlock()
		return fmt.Errorf("ground %q already exists", g.Name)
	}
	c.grounds[key(g.Name)] = g
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event{Type: EventGroundAdded, Ground: g})
	return nil
}

// Put inserts or replaces a ground.
func (c *GroundCatalog) Put(g Ground) error {
	if err := g.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	typ := EventGroundAdded
	if _, exists := c.grounds[key(g.Name)]; exists {
		typ = EventGroundReplaced
	}
	c.grounds[key(g.Name)] = g
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event{Type: typ, Ground: g})
	return nil
}

// Get returns the ground with the given name (case-insensitive).
func (c *GroundCatalog) Get(name string) (Ground, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.grounds[key(name)]
	return g, ok
}

// Lookup is Get with an ErrGroundNotFound error for unknown names.
func (c *GroundCatalog) Lookup(name string) (Ground, error) {
	g, ok := c.Get(name)
	if !ok {
		return Ground{}, fmt.Errorf("%w: %q", ErrGroundNotFound, name)
	}
	return g, nil
}

// List returns a snapshot of all grounds sorted by name.
func (c *GroundCatalog) List() []Ground {
	c.mu.RLock()
	res := make([]Ground, 0, len(c.grounds))
	for _, g := range c.grounds {
		res = append(res, g)
	}
	c.mu.RUnlock()

	slices.SortFunc(res, func(a, b Ground) int { return strings.Compare(a.Name, b.Name) })
	return res
}

// Load reads a JSON array of grounds and Puts each one. Entries are validated
// before any is stored, so a bad file leaves the catalog unchanged.
func (c *GroundCatalog) Load(r io.Reader) (int, error) {
	var grounds []Ground
	if err := json.NewDecoder(r).Decode(&grounds); err != nil {
		return 0, fmt.Errorf("decode grounds: %w", err)
	}
	for _, g := range grounds {
		if err := g.Validate(); err != nil {
			return 0, err
		}
	}
	for _, g := range grounds {
		if err := c.Put(g); err != nil {
			return 0, err
		}
	}
	return len(grounds), nil
}

// Subscribe registers a callback for catalog events. It returns an
// unsubscribe function.
func (c *GroundCatalog) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// snapshotSubs must be called with mu held.
func (c *GroundCatalog) snapshotSubs() []func(Event) {
	subs := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return subs
}

// Subscribers are called outside the lock.
func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}
