// ABOUTME: Tests for the in-process signal bus
// ABOUTME: Verifies synchronous delivery, ordering and unsubscribe behavior
package events

import (
	"testing"

	"github.com/harperreed/crmdeck/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishActivityCreatedIsSynchronous(t *testing.T) {
	bus := NewBus()

	var got []ActivityCreated
	unsub := bus.OnActivityCreated(func(ev ActivityCreated) {
		got = append(got, ev)
	})
	defer unsub()

	deal := &models.Deal{ID: 7, Title: "Renewal"}
	bus.PublishActivityCreated(models.Activity{ID: 1, Type: models.ActivityNote}, deal)

	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].Activity.ID)
	assert.Same(t, deal, got[0].Deal)
	assert.NotZero(t, got[0].Seq)
}

func TestSubscribersCalledInRegistrationOrder(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.OnDataChanged(func(DataChanged) { order = append(order, "first") })
	bus.OnDataChanged(func(DataChanged) { order = append(order, "second") })

	bus.PublishDataChanged("contacts")
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsub := bus.OnDataChanged(func(DataChanged) { calls++ })
	bus.PublishDataChanged("deals")
	unsub()
	unsub()
	bus.PublishDataChanged("deals")

	assert.Equal(t, 1, calls)
	_, changed := bus.Listeners()
	assert.Zero(t, changed)
}

func TestHandlerMayUnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()

	var unsub func()
	calls := 0
	unsub = bus.OnActivityCreated(func(ActivityCreated) {
		calls++
		unsub()
	})
	other := 0
	bus.OnActivityCreated(func(ActivityCreated) { other++ })

	bus.PublishActivityCreated(models.Activity{}, nil)
	bus.PublishActivityCreated(models.Activity{}, nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, other)
}

func TestSequenceIncreasesAcrossTopics(t *testing.T) {
	bus := NewBus()

	var seqs []uint64
	bus.OnActivityCreated(func(ev ActivityCreated) { seqs = append(seqs, ev.Seq) })
	bus.OnDataChanged(func(ev DataChanged) { seqs = append(seqs, ev.Seq) })

	bus.PublishActivityCreated(models.Activity{}, nil)
	bus.PublishDataChanged("activities")

	require.Len(t, seqs, 2)
	assert.Less(t, seqs[0], seqs[1])
}
