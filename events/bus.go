// ABOUTME: In-process publish/subscribe channel for cross-view signals
// ABOUTME: Carries typed activityCreated and dataChanged notifications to mounted listeners
package events

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/harperreed/crmdeck/models"
)

// ActivityCreated is published after any component persists a new activity.
type ActivityCreated struct {
	Seq      uint64
	Activity models.Activity
	Deal     *models.Deal
}

// DataChanged is published after a create, update or delete of any entity.
type DataChanged struct {
	Seq    uint64
	Entity string
}

type subscription[T any] struct {
	id string
	fn func(T)
}

// topic keeps subscribers in registration order.
type topic[T any] struct {
	mu   sync.RWMutex
	subs []subscription[T]
}

func (t *topic[T]) subscribe(fn func(T)) func() {
	id := uuid.NewString()
	t.mu.Lock()
	t.subs = append(t.subs, subscription[T]{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for i, s := range t.subs {
				if s.id == id {
					t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// publish calls a snapshot of the current subscribers outside the lock so
// handlers may subscribe, unsubscribe or publish again.
func (t *topic[T]) publish(ev T) {
	t.mu.RLock()
	subs := make([]subscription[T], len(t.subs))
	copy(subs, t.subs)
	t.mu.RUnlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

func (t *topic[T]) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// Bus delivers each published signal synchronously to every listener that is
// subscribed at publish time. There is no acknowledgement and no replay.
type Bus struct {
	activity topic[ActivityCreated]
	changed  topic[DataChanged]
	sequence atomic.Uint64
}

func NewBus() *Bus {
	return &Bus{}
}

// OnActivityCreated registers fn and returns its unsubscribe function.
func (b *Bus) OnActivityCreated(fn func(ActivityCreated)) func() {
	return b.activity.subscribe(fn)
}

// OnDataChanged registers fn and returns its unsubscribe function.
func (b *Bus) OnDataChanged(fn func(DataChanged)) func() {
	return b.changed.subscribe(fn)
}

func (b *Bus) PublishActivityCreated(activity models.Activity, deal *models.Deal) {
	b.activity.publish(ActivityCreated{
		Seq:      b.sequence.Add(1),
		Activity: activity,
		Deal:     deal,
	})
}

func (b *Bus) PublishDataChanged(entity string) {
	b.changed.publish(DataChanged{Seq: b.sequence.Add(1), Entity: entity})
}

// Listeners reports the number of subscribers per topic.
func (b *Bus) Listeners() (activity, changed int) {
	return b.activity.count(), b.changed.count()
}
