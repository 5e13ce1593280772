// Package calendar keeps calendar and task entries addressable both by id
// and by position in time.
//
// Every entry is published through a Store handle. Entries that declare a
// start date also get a node in a singly linked chain ordered by start date,
// latest first. Nodes live in a map keyed by id and link to their successor
// by id, so the chain is an index over the map rather than a pointer
// structure. Range queries and insert position search walk the chain
// linearly.
//
// An Index has a single owner. Reads may run alongside other reads but not
// alongside Add, Update or Delete; callers serialize writers.
package calendar

import (
	"errors"
	"fmt"

	"calstate/internal/datetime"
	appLog "calstate/internal/log"
	"calstate/internal/model"
	"calstate/internal/store"
)

var (
	ErrDuplicateID = errors.New("duplicated id")
	ErrNotFound    = errors.New("entry not found")
	// ErrInconsistent means the chain references an id with no node. It
	// signals a programming error, not bad input.
	ErrInconsistent = errors.New("calendar index is inconsistent")
)

// Store publishes entry values to subscribers. The index only needs
// handle-based access.
type Store interface {
	Create(e model.Entry) store.Handle
	Get(h store.Handle) (model.Entry, bool)
	Set(h store.Handle, e model.Entry) bool
	Release(h store.Handle)
}

// Index is the time-ordered entry collection.
type Index struct {
	store   Store
	handles map[string]store.Handle
	nodes   map[string]*node
	head    string
}

// New builds an index from configs that are already sorted by start date
// descending, then end date descending (see SortConfigs). The order is
// trusted, not checked: nodes are linked exactly as given. A nil store
// gets an in-memory one.
func New(s Store, configs []model.Config) (*Index, error) {
	if s == nil {
		s = store.New[model.Entry]()
	}

	entries := make([]model.Entry, 0, len(configs))
	seen := make(map[string]struct{}, len(configs))
	for _, cfg := range configs {
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, cfg.ID)
		}
		seen[cfg.ID] = struct{}{}

		e, err := model.NewEntry(cfg)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	x := &Index{
		store:   s,
		handles: make(map[string]store.Handle, len(entries)),
		nodes:   make(map[string]*node),
	}

	var tail *node
	for _, e := range entries {
		x.handles[e.ID()] = s.Create(e)

		n := newNode(e)
		if n == nil {
			continue
		}
		x.nodes[n.id] = n
		if tail == nil {
			x.head = n.id
		} else {
			tail.next = n.id
		}
		tail = n
	}

	appLog.Debug("calendar: index seeded", "entries", len(x.handles), "chained", len(x.nodes))
	return x, nil
}

// Len returns the number of stored entries, dated or not.
func (x *Index) Len() int { return len(x.handles) }

// Chained returns the number of entries in the time-ordered chain.
func (x *Index) Chained() int { return len(x.nodes) }

// Add stores a new entry and, when it has a start date, links it into the
// chain after every node starting at or after it. An existing id fails
// with ErrDuplicateID and an invalid config with model.ErrInvalidEntry;
// either way nothing changes.
func (x *Index) Add(cfg model.Config) (model.Entry, error) {
	if _, ok := x.handles[cfg.ID]; ok {
		return model.Entry{}, fmt.Errorf("%w: %s", ErrDuplicateID, cfg.ID)
	}

	e, err := model.NewEntry(cfg)
	if err != nil {
		return model.Entry{}, err
	}

	n := newNode(e)
	var prev string
	if n != nil {
		if prev, err = x.insertAfter(n.start, ""); err != nil {
			return model.Entry{}, err
		}
	}

	x.handles[e.ID()] = x.store.Create(e)
	if n != nil {
		x.link(n, prev)
	}

	appLog.Debug("calendar: entry added", "id", e.ID(), "chained", n != nil, "size", len(x.handles))
	return e, nil
}

// Delete removes the entry with the given id. It reports false when the id
// is unknown. Entries without a start date are removed by id alone.
func (x *Index) Delete(id string) (bool, error) {
	h, ok := x.handles[id]
	if !ok {
		return false, nil
	}

	if n, chained := x.nodes[id]; chained {
		prev, err := x.predecessor(id)
		if err != nil {
			return false, err
		}
		x.unlink(n, prev)
	}

	delete(x.handles, id)
	x.store.Release(h)

	appLog.Debug("calendar: entry deleted", "id", id, "size", len(x.handles))
	return true, nil
}

// FindByID returns the current value of the entry, or false if absent.
func (x *Index) FindByID(id string) (model.Entry, bool) {
	h, ok := x.handles[id]
	if !ok {
		return model.Entry{}, false
	}
	return x.store.Get(h)
}

// FindInInterval returns every chained entry whose start or end date lies
// in iv (endpoints included), latest start first.
func (x *Index) FindInInterval(iv datetime.Interval) ([]model.Entry, error) {
	var ids []string
	err := x.walk(func(n *node) bool {
		if n.within(iv) {
			ids = append(ids, n.id)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.Entry, 0, len(ids))
	for _, id := range ids {
		e, err := x.entry(id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Walk calls fn for each chained entry, latest start first, until fn
// returns false.
func (x *Index) Walk(fn func(model.Entry) bool) error {
	var lookupErr error
	err := x.walk(func(n *node) bool {
		e, err := x.entry(n.id)
		if err != nil {
			lookupErr = err
			return false
		}
		return fn(e)
	})
	if err != nil {
		return err
	}
	return lookupErr
}

// Update replaces the entry with e.Update(p) and publishes it under the
// same handle. When the start or end date changes the node is moved as if
// the entry had just been added. Unknown ids fail with ErrNotFound; on any
// error the index is unchanged.
func (x *Index) Update(id string, p model.Patch) (model.Entry, error) {
	h, ok := x.handles[id]
	if !ok {
		return model.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cur, err := x.entry(id)
	if err != nil {
		return model.Entry{}, err
	}
	next, err := cur.Update(p)
	if err != nil {
		return model.Entry{}, err
	}

	old := x.nodes[id]
	if !p.TouchesDates() || (old != nil && old.sameDates(next)) {
		x.store.Set(h, next)
		return next, nil
	}

	// Resolve both chain positions before touching anything.
	var oldPrev string
	if old != nil {
		if oldPrev, err = x.predecessor(id); err != nil {
			return model.Entry{}, err
		}
	}
	n := newNode(next)
	var prev string
	if n != nil {
		if prev, err = x.insertAfter(n.start, id); err != nil {
			return model.Entry{}, err
		}
	}

	if old != nil {
		x.unlink(old, oldPrev)
	}
	if n != nil {
		x.link(n, prev)
	}
	x.store.Set(h, next)

	appLog.Debug("calendar: entry moved", "id", id, "chained", n != nil)
	return next, nil
}

func (x *Index) entry(id string) (model.Entry, error) {
	h, ok := x.handles[id]
	if !ok {
		return model.Entry{}, x.inconsistent(id, "no handle")
	}
	e, ok := x.store.Get(h)
	if !ok {
		return model.Entry{}, x.inconsistent(id, "no stored value")
	}
	return e, nil
}

// walk visits nodes from head until fn returns false.
func (x *Index) walk(fn func(*node) bool) error {
	for cursor := x.head; cursor != ""; {
		n, ok := x.nodes[cursor]
		if !ok {
			return x.inconsistent(cursor, "no node")
		}
		if !fn(n) {
			return nil
		}
		cursor = n.next
	}
	return nil
}

// insertAfter returns the id of the node a new node starting at start must
// follow, or "" if it becomes the head. It skips past every node whose
// start is on or after start, so equal starts keep insertion order. The
// node named skip is treated as already removed.
func (x *Index) insertAfter(start datetime.Instant, skip string) (string, error) {
	var prev string
	err := x.walk(func(n *node) bool {
		if n.id == skip {
			return true
		}
		if start.IsAfter(n.start) {
			return false
		}
		prev = n.id
		return true
	})
	return prev, err
}

// predecessor returns the id of the node whose successor is id, or "" when
// id is the head.
func (x *Index) predecessor(id string) (string, error) {
	if x.head == id {
		return "", nil
	}
	var prev string
	found := false
	err := x.walk(func(n *node) bool {
		if n.next == id {
			prev, found = n.id, true
			return false
		}
		return true
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", x.inconsistent(id, "node not reachable from head")
	}
	return prev, nil
}

func (x *Index) link(n *node, prev string) {
	if prev == "" {
		n.next = x.head
		x.head = n.id
	} else {
		p := x.nodes[prev]
		n.next = p.next
		p.next = n.id
	}
	x.nodes[n.id] = n
}

func (x *Index) unlink(n *node, prev string) {
	if prev == "" {
		x.head = n.next
	} else {
		x.nodes[prev].next = n.next
	}
	delete(x.nodes, n.id)
}

func (x *Index) inconsistent(id, reason string) error {
	err := fmt.Errorf("%w: %s: %s", ErrInconsistent, id, reason)
	appLog.Error("calendar: broken chain", err, "id", id, "head", x.head)
	return err
}
