package registry

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/kanalhq/kanal/internal/channel"
)

var (
	// ErrNotFound indicates an unknown channel id or handle.
	ErrNotFound = errors.New("registry: channel not found")

	// ErrBusy indicates an open refused by access policy.
	ErrBusy = errors.New("registry: channel busy")

	// ErrInvalidMode indicates an unknown open mode string.
	ErrInvalidMode = errors.New("registry: invalid open mode")

	// ErrInvalidLimit indicates a negative opener limit.
	ErrInvalidLimit = errors.New("registry: invalid opener limit")

	// ErrAccess indicates an operation not permitted by the handle's mode.
	ErrAccess = errors.New("registry: operation not permitted by open mode")
)

// Mode is the access mode a handle was opened with.
type Mode int

const (
	// ReadOnly permits reads only.
	ReadOnly Mode = iota
	// WriteOnly permits writes only.
	WriteOnly
	// ReadWrite permits both.
	ReadWrite
)

// ParseMode maps a wire name to a Mode.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "r", "read", "ro":
		return ReadOnly, nil
	case "w", "write", "wo":
		return WriteOnly, nil
	case "rw", "readwrite":
		return ReadWrite, nil
	}
	return 0, ErrInvalidMode
}

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "read"
	case WriteOnly:
		return "write"
	case ReadWrite:
		return "readwrite"
	}
	return "unknown"
}

// CanRead reports whether the mode permits reading.
func (m Mode) CanRead() bool { return m == ReadOnly || m == ReadWrite }

// CanWrite reports whether the mode permits writing.
func (m Mode) CanWrite() bool { return m == WriteOnly || m == ReadWrite }

// Policy configures open-time access enforcement. The zero value applies no
// limits.
type Policy struct {
	// SingleWriter refuses a second concurrently open writing handle per
	// channel.
	SingleWriter bool
	// MaxOpeners caps concurrently open handles per channel; 0 is
	// unlimited. Adjustable per channel at runtime.
	MaxOpeners int
}

// Handle is one open reference to a channel.
type Handle struct {
	ID      string
	Channel int
	Mode    Mode
	ch      *channel.Channel
}

// Chan returns the channel the handle is open on.
func (h *Handle) Chan() *channel.Channel { return h.ch }

type entry struct {
	ch         *channel.Channel
	readers    int
	writers    int
	maxOpeners int
}

// Table is the fixed-length channel table. Channels are created once at
// construction and live until the table is discarded; handles come and go.
type Table struct {
	mu           sync.Mutex
	entries      []*entry
	handles      map[string]*Handle
	singleWriter bool
}

// ChannelStat describes one channel for introspection endpoints.
type ChannelStat struct {
	ID         int `json:"id"`
	Capacity   int `json:"capacity"`
	Used       int `json:"used"`
	Free       int `json:"free"`
	Readers    int `json:"readers"`
	Writers    int `json:"writers"`
	MaxOpeners int `json:"max_openers"`
}

// New builds a table of count channels, each with the given initial buffer
// capacity.
func New(count, capacity int, policy Policy) (*Table, error) {
	if count < 1 {
		return nil, errors.New("registry: channel count must be at least 1")
	}
	if policy.MaxOpeners < 0 {
		return nil, ErrInvalidLimit
	}
	entries := make([]*entry, count)
	for i := range entries {
		ch, err := channel.New(capacity)
		if err != nil {
			return nil, err
		}
		entries[i] = &entry{ch: ch, maxOpeners: policy.MaxOpeners}
	}
	return &Table{
		entries:      entries,
		handles:      make(map[string]*Handle),
		singleWriter: policy.SingleWriter,
	}, nil
}

// Len returns the number of channels in the table.
func (t *Table) Len() int { return len(t.entries) }

// Get returns the channel with the given id.
func (t *Table) Get(id int) (*channel.Channel, error) {
	if id < 0 || id >= len(t.entries) {
		return nil, ErrNotFound
	}
	return t.entries[id].ch, nil
}

// Open creates a handle on a channel, enforcing access policy. A refused
// open returns ErrBusy and changes nothing.
func (t *Table) Open(id int, mode Mode) (*Handle, error) {
	if id < 0 || id >= len(t.entries) {
		return nil, ErrNotFound
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[id]
	if e.maxOpeners > 0 && e.readers+e.writers >= e.maxOpeners {
		return nil, ErrBusy
	}
	if t.singleWriter && mode.CanWrite() && e.writers > 0 {
		return nil, ErrBusy
	}

	h := &Handle{
		ID:      uuid.New().String(),
		Channel: id,
		Mode:    mode,
		ch:      e.ch,
	}
	if mode.CanWrite() {
		e.writers++
	} else {
		e.readers++
	}
	t.handles[h.ID] = h
	return h, nil
}

// Resolve returns the handle with the given id.
func (t *Table) Resolve(handleID string) (*Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handles[handleID]
	if !ok {
		return nil, ErrNotFound
	}
	return h, nil
}

// Close releases a handle and its policy slot.
func (t *Table) Close(handleID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handles[handleID]
	if !ok {
		return ErrNotFound
	}
	delete(t.handles, handleID)
	e := t.entries[h.Channel]
	if h.Mode.CanWrite() {
		e.writers--
	} else {
		e.readers--
	}
	return nil
}

// SetMaxOpeners adjusts one channel's opener limit; 0 removes it. Already
// open handles are unaffected.
func (t *Table) SetMaxOpeners(id, n int) error {
	if id < 0 || id >= len(t.entries) {
		return ErrNotFound
	}
	if n < 0 {
		return ErrInvalidLimit
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id].maxOpeners = n
	return nil
}

// MaxOpeners returns one channel's opener limit.
func (t *Table) MaxOpeners(id int) (int, error) {
	if id < 0 || id >= len(t.entries) {
		return 0, ErrNotFound
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[id].maxOpeners, nil
}

// Stats snapshots every channel's fill level and opener counts.
func (t *Table) Stats() []ChannelStat {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := make([]ChannelStat, len(t.entries))
	for i, e := range t.entries {
		s := e.ch.Stats()
		stats[i] = ChannelStat{
			ID:         i,
			Capacity:   s.Capacity,
			Used:       s.Used,
			Free:       s.Free,
			Readers:    e.readers,
			Writers:    e.writers,
			MaxOpeners: e.maxOpeners,
		}
	}
	return stats
}
