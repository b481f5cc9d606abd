package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Backend. Contents are lost on exit.
type Memory struct {
	mu   sync.RWMutex
	seq  uint64
	data map[string]map[string]memoryDoc
}

type memoryDoc struct {
	doc Document
	seq uint64
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]memoryDoc)}
}

func (m *Memory) Get(_ context.Context, collection, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.data[collection][id]
	if !ok {
		return nil, notFound(collection, id)
	}
	doc := clone(d.doc)
	return &doc, nil
}

func (m *Memory) Create(_ context.Context, collection string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.data[collection]
	if !ok {
		c = make(map[string]memoryDoc)
		m.data[collection] = c
	}
	if _, exists := c[doc.ID]; exists {
		return conflict(collection, doc.ID)
	}
	m.seq++
	doc.Rev = 1
	c[doc.ID] = memoryDoc{doc: clone(doc), seq: m.seq}
	return nil
}

func (m *Memory) Update(_ context.Context, collection string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.data[collection][doc.ID]
	if !ok {
		return notFound(collection, doc.ID)
	}
	if doc.Rev != 0 && doc.Rev != d.doc.Rev {
		return stale(collection, doc.ID, doc.Rev)
	}
	doc.Rev = d.doc.Rev + 1
	d.doc = clone(doc)
	m.data[collection][doc.ID] = d
	return nil
}

func (m *Memory) Upsert(_ context.Context, collection string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.data[collection]
	if !ok {
		c = make(map[string]memoryDoc)
		m.data[collection] = c
	}
	d, ok := c[doc.ID]
	if !ok {
		m.seq++
		d.seq = m.seq
	}
	doc.Rev = d.doc.Rev + 1
	d.doc = clone(doc)
	c[doc.ID] = d
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[collection][id]; !ok {
		return notFound(collection, id)
	}
	delete(m.data[collection], id)
	return nil
}

func (m *Memory) List(_ context.Context, collection, owner string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found []memoryDoc
	for _, d := range m.data[collection] {
		if owner == "" || d.doc.Owner == owner {
			found = append(found, d)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })

	out := make([]Document, len(found))
	for i, d := range found {
		out[i] = clone(d.doc)
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func clone(d Document) Document {
	d.Body = append([]byte(nil), d.Body...)
	return d
}
