package docstore

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"sync"

	"github.com/gestaozabele/igreja/internal/util"
)

// Memory mantém coleções em memória. Os dados passam por JSON na entrada e na
// saída, reproduzindo os tipos devolvidos pelo backend jsonb.
type Memory struct {
	mu    sync.RWMutex
	seq   int64
	colls map[string]map[string]*memEntry
}

type memEntry struct {
	seq  int64
	data map[string]any
}

// NewMemory cria store vazio.
func NewMemory() *Memory {
	return &Memory{colls: make(map[string]map[string]*memEntry)}
}

func (m *Memory) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := util.NewID()
	return id, m.Set(ctx, collection, id, data)
}

func (m *Memory) Set(_ context.Context, collection, id string, data map[string]any) error {
	doc, err := normalize(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	coll := m.coll(collection)
	if existing, ok := coll[id]; ok {
		existing.data = doc
		return nil
	}
	m.seq++
	coll[id] = &memEntry{seq: m.seq, data: doc}
	return nil
}

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.colls[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	data, err := normalize(entry.data)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Data: data}, nil
}

func (m *Memory) List(_ context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type item struct {
		id    string
		entry *memEntry
	}
	items := make([]item, 0, len(m.colls[collection]))
	for id, entry := range m.colls[collection] {
		items = append(items, item{id: id, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].entry.seq < items[j].entry.seq })

	docs := make([]Document, 0, len(items))
	for _, it := range items {
		ok, err := matchAll(it.entry.data, filters)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		data, err := normalize(it.entry.data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: it.id, Data: data})
	}
	return docs, nil
}

func (m *Memory) Count(ctx context.Context, collection string, filters ...Filter) (int, error) {
	docs, err := m.List(ctx, collection, filters...)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (m *Memory) Update(_ context.Context, collection, id string, fields map[string]any) error {
	patch, err := normalize(fields)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.colls[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range patch {
		entry.data[k] = v
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.colls[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.colls[collection], id)
	return nil
}

func (m *Memory) AddToSet(_ context.Context, collection, id, field, value string, extra map[string]any) (bool, error) {
	patch, err := normalize(extra)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.colls[collection][id]
	if !ok {
		return false, ErrNotFound
	}
	arr, _ := entry.data[field].([]any)
	for _, v := range arr {
		if v == value {
			return false, nil
		}
	}
	entry.data[field] = append(append([]any{}, arr...), value)
	for k, v := range patch {
		entry.data[k] = v
	}
	return true, nil
}

func (m *Memory) Append(_ context.Context, collection, id, field string, value any) error {
	wrapped, err := normalize(map[string]any{"v": value})
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.colls[collection][id]
	if !ok {
		return ErrNotFound
	}
	arr, _ := entry.data[field].([]any)
	entry.data[field] = append(append([]any{}, arr...), wrapped["v"])
	return nil
}

func (m *Memory) coll(name string) map[string]*memEntry {
	c, ok := m.colls[name]
	if !ok {
		c = make(map[string]*memEntry)
		m.colls[name] = c
	}
	return c
}

func normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func matchAll(data map[string]any, filters []Filter) (bool, error) {
	for _, f := range filters {
		wrapped, err := normalize(map[string]any{"v": f.Value})
		if err != nil {
			return false, err
		}
		want := wrapped["v"]
		got, present := data[f.Field]
		if !present || got == nil {
			return false, nil
		}

		switch f.Op {
		case OpEq:
			if !reflect.DeepEqual(got, want) {
				return false, nil
			}
		case OpArrayContains:
			arr, ok := got.([]any)
			if !ok {
				return false, nil
			}
			found := false
			for _, v := range arr {
				if reflect.DeepEqual(v, want) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		case OpGte, OpLt:
			cmp, ok := compare(got, want)
			if !ok {
				return false, nil
			}
			if f.Op == OpGte && cmp < 0 {
				return false, nil
			}
			if f.Op == OpLt && cmp >= 0 {
				return false, nil
			}
		}
	}
	return true, nil
}

func compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
