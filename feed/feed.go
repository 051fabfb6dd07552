// ABOUTME: Recent activity feed shared by every view in the process
// ABOUTME: Newest-first, capped, and guarded against out-of-order load completion
package feed

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/harperreed/crmdeck/models"
)

// DefaultCap is the number of activities the feed retains.
const DefaultCap = 50

// Source supplies the newest activities, at most limit of them.
type Source interface {
	Recent(ctx context.Context, limit int) ([]models.Activity, error)
}

// State is a point-in-time copy of the feed.
type State struct {
	Activities  []models.Activity `json:"activities"`
	LastUpdated time.Time         `json:"last_updated"`
	Loading     bool              `json:"loading"`
	Err         error             `json:"-"`
}

// Feed holds the recent activities. Each load takes a token when issued;
// a completed load is applied only if no later-issued load has already
// been applied.
type Feed struct {
	mu          sync.RWMutex
	items       []models.Activity
	capacity    int
	lastUpdated time.Time
	err         error
	pending     int
	issued      uint64
	applied     uint64
	now         func() time.Time
}

func New(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Feed{capacity: capacity, now: time.Now}
}

func (f *Feed) Cap() int { return f.capacity }

func (f *Feed) Snapshot() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	items := make([]models.Activity, len(f.items))
	copy(items, f.items)
	return State{
		Activities:  items,
		LastUpdated: f.lastUpdated,
		Loading:     f.pending > 0,
		Err:         f.err,
	}
}

// Top returns up to n of the newest activities.
func (f *Feed) Top(n int) []models.Activity {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if n > len(f.items) {
		n = len(f.items)
	}
	out := make([]models.Activity, n)
	copy(out, f.items[:n])
	return out
}

// Set replaces the contents wholesale, sorting newest first.
func (f *Feed) Set(list []models.Activity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replace(list)
}

func (f *Feed) replace(list []models.Activity) {
	items := make([]models.Activity, len(list))
	copy(items, list)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Timestamp.After(items[j].Timestamp) })
	if len(items) > f.capacity {
		items = items[:f.capacity]
	}
	f.items = items
	f.lastUpdated = f.now()
	f.err = nil
}

// Append inserts a just-created activity at its newest-first position,
// ahead of entries with the same timestamp, and evicts the oldest entries
// beyond the cap. An activity older than a full feed is dropped.
func (f *Feed) Append(a models.Activity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at := sort.Search(len(f.items), func(i int) bool {
		return !f.items[i].Timestamp.After(a.Timestamp)
	})
	items := make([]models.Activity, 0, len(f.items)+1)
	items = append(items, f.items[:at]...)
	items = append(items, a)
	items = append(items, f.items[at:]...)
	if len(items) > f.capacity {
		items = items[:f.capacity]
	}
	f.items = items
	f.lastUpdated = f.now()
}

// Begin issues a load token. Visible loads raise the loading flag until
// their Complete call.
func (f *Feed) Begin(visible bool) Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued++
	if visible {
		f.pending++
	}
	return Token{seq: f.issued, visible: visible}
}

// Token identifies one issued load.
type Token struct {
	seq     uint64
	visible bool
}

// Complete applies a load result. It returns false when the result was
// discarded because a later-issued load already landed. A failed load
// records the error but keeps the current contents.
func (f *Feed) Complete(tok Token, list []models.Activity, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tok.visible && f.pending > 0 {
		f.pending--
	}
	if tok.seq <= f.applied {
		return false
	}
	if err != nil {
		f.err = err
		return true
	}
	f.applied = tok.seq
	f.replace(list)
	return true
}

// Abandon releases a token whose result will never be applied.
func (f *Feed) Abandon(tok Token) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tok.visible && f.pending > 0 {
		f.pending--
	}
}

// Load fetches from src and applies the result under a fresh token.
func (f *Feed) Load(ctx context.Context, src Source, visible bool) error {
	tok := f.Begin(visible)
	list, err := src.Recent(ctx, f.capacity)
	f.Complete(tok, list, err)
	return err
}
