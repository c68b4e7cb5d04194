package store

import (
	"context"
	"encoding/json"
	"sync"

	"time"

	"github.com/google/uuid"

	"github.com/Avenger11764/duo-learning/internal/clock"
)

// Memory is an in-process Store for tests and single-node runs. It keeps
// the same snapshot-on-every-mutation contract as the remote backend.
type Memory struct {
	mu    sync.RWMutex
	clock clock.Clock
	data  map[string]map[string]Fields
	subs  map[string][]chan Snapshot
}

func NewMemory(c clock.Clock) *Memory {
	if c == nil {
		c = clock.RealClock{}
	}
	return &Memory{
		clock: c,
		data:  map[string]map[string]Fields{},
		subs:  map[string][]chan Snapshot{},
	}
}

func cloneFields(f Fields) Fields {
	b, err := json.Marshal(f)
	if err != nil {
		return Fields{}
	}
	var out Fields
	if err := json.Unmarshal(b, &out); err != nil {
		return Fields{}
	}
	return out
}

func (m *Memory) collectionLocked(name string) map[string]Fields {
	c, ok := m.data[name]
	if !ok {
		c = map[string]Fields{}
		m.data[name] = c
	}
	return c
}

func (m *Memory) snapshotLocked(collection string) Snapshot {
	snap := Snapshot{}
	for id, doc := range m.collectionLocked(collection) {
		snap[id] = cloneFields(doc)
	}
	return snap
}

// notifyLocked fans the current snapshot out to subscribers, replacing any
// undelivered older snapshot so writers never block on slow consumers.
func (m *Memory) notifyLocked(collection string) {
	subs := m.subs[collection]
	if len(subs) == 0 {
		return
	}
	snap := m.snapshotLocked(collection)
	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Fields, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneFields(doc), nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, doc Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collectionLocked(collection)[id] = cloneFields(resolveTimestamps(doc, m.clock.Now()))
	m.notifyLocked(collection)
	return nil
}

func (m *Memory) UpdateFields(ctx context.Context, collection, id string, fields Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	merged := cloneFields(doc)
	for k, v := range cloneFields(resolveTimestamps(fields, m.clock.Now())) {
		merged[k] = v
	}
	m.data[collection][id] = merged
	m.notifyLocked(collection)
	return nil
}

func (m *Memory) Append(ctx context.Context, collection string, doc Fields) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.collectionLocked(collection)[id] = cloneFields(resolveTimestamps(doc, m.clock.Now()))
	m.notifyLocked(collection)
	return id, nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data[collection]
	if !ok {
		return ErrNotFound
	}
	if _, ok := c[id]; !ok {
		return ErrNotFound
	}
	delete(c, id)
	m.notifyLocked(collection)
	return nil
}

func (m *Memory) List(ctx context.Context, collection string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := Snapshot{}
	for id, doc := range m.data[collection] {
		snap[id] = cloneFields(doc)
	}
	return snap, nil
}

func (m *Memory) Subscribe(ctx context.Context, collection string) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	m.mu.Lock()
	m.subs[collection] = append(m.subs[collection], ch)
	ch <- m.snapshotLocked(collection)
	m.mu.Unlock()

	stop := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		subs := m.subs[collection]
		for i, c := range subs {
			if c == ch {
				m.subs[collection] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
	return ch, stop
}

func (m *Memory) Now(ctx context.Context) time.Time {
	return m.clock.Now()
}
