// ABOUTME: Generic ordered in-memory record table keyed by integer id
// ABOUTME: Backs the mock gateway; rows are cloned on the way in and out
package gateway

import "sync"

type table[T any] struct {
	mu     sync.RWMutex
	rows   []T
	nextID int64
	id     func(*T) int64
	setID  func(*T, int64)
	clone  func(T) T
}

func newTable[T any](id func(*T) int64, setID func(*T, int64), clone func(T) T) *table[T] {
	return &table[T]{id: id, setID: setID, clone: clone, nextID: 1}
}

func (t *table[T]) all() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, len(t.rows))
	for i, r := range t.rows {
		out[i] = t.clone(r)
	}
	return out
}

func (t *table[T]) indexOf(id int64) int {
	for i := range t.rows {
		if t.id(&t.rows[i]) == id {
			return i
		}
	}
	return -1
}

func (t *table[T]) get(id int64) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.indexOf(id); i >= 0 {
		return t.clone(t.rows[i]), true
	}
	var zero T
	return zero, false
}

// insert assigns the next id when the row has none.
func (t *table[T]) insert(row T) T {
	t.mu.Lock()
	defer t.mu.Unlock()
	row = t.clone(row)
	if id := t.id(&row); id == 0 {
		t.setID(&row, t.nextID)
	} else if i := t.indexOf(id); i >= 0 {
		t.rows[i] = row
		return t.clone(row)
	}
	if id := t.id(&row); id >= t.nextID {
		t.nextID = id + 1
	}
	t.rows = append(t.rows, row)
	return t.clone(row)
}

// mutate applies fn to a copy and stores it only when fn succeeds.
func (t *table[T]) mutate(id int64, fn func(*T) error) (T, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero T
	i := t.indexOf(id)
	if i < 0 {
		return zero, false, nil
	}
	row := t.clone(t.rows[i])
	if err := fn(&row); err != nil {
		return zero, true, err
	}
	t.setID(&row, id)
	t.rows[i] = row
	return t.clone(row), true, nil
}

func (t *table[T]) remove(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOf(id)
	if i < 0 {
		return false
	}
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return true
}
