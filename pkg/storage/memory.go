package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryKV is an in-memory KVStore used by tests and local development.
// It mirrors the single-partition query semantics of the DynamoDB adapter,
// including index projections and descending sort-key order.
type MemoryKV struct {
	mu    sync.RWMutex
	items map[string]Item // "PK|SK" -> item
}

// NewMemoryKV creates an empty in-memory KV store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: map[string]Item{}}
}

func memKey(pk, sk string) string { return pk + "|" + sk }

// Put stores a deep copy of the item.
func (m *MemoryKV) Put(_ context.Context, item Item) error {
	pk, _ := item["PK"].(string)
	sk, _ := item["SK"].(string)
	if pk == "" || sk == "" {
		return fmt.Errorf("item missing PK or SK")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[memKey(pk, sk)] = copyItem(item)
	return nil
}

// Get returns a copy of the item at the key, or nil.
func (m *MemoryKV) Get(_ context.Context, pk, sk string) (Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[memKey(pk, sk)]
	if !ok {
		return nil, nil
	}
	return copyItem(item), nil
}

// Query scans the partition, applying sort-key prefix, order, filter and
// limit the way the DynamoDB adapter does.
func (m *MemoryKV) Query(_ context.Context, in QueryInput) ([]Item, error) {
	pkAttr, skAttr := indexKeyAttrs(in.Index)

	m.mu.RLock()
	var matched []Item
	for _, item := range m.items {
		pk, _ := item[pkAttr].(string)
		if pk != in.PartitionKey {
			continue
		}
		sk, _ := item[skAttr].(string)
		if in.SortKeyPrefix != "" && !strings.HasPrefix(sk, in.SortKeyPrefix) {
			continue
		}
		if !matchesFilter(item, in.Filter) {
			continue
		}
		matched = append(matched, copyItem(item))
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		si, _ := matched[i][skAttr].(string)
		sj, _ := matched[j][skAttr].(string)
		if in.ScanForward {
			return si < sj
		}
		return si > sj
	})
	if in.Limit > 0 && len(matched) > in.Limit {
		matched = matched[:in.Limit]
	}
	return matched, nil
}

// Update applies SET/ADD/REMOVE semantics to a single item atomically.
func (m *MemoryKV) Update(_ context.Context, in UpdateInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[memKey(in.PK, in.SK)]
	if !ok {
		return fmt.Errorf("item not found: %s %s", in.PK, in.SK)
	}
	for attr, val := range in.Set {
		item[attr] = normalize(val)
	}
	for attr, delta := range in.Add {
		current, _ := item[attr].(float64)
		item[attr] = current + delta
	}
	for _, attr := range in.Remove {
		delete(item, attr)
	}
	return nil
}

// BatchDelete removes every listed key; missing keys are ignored.
func (m *MemoryKV) BatchDelete(_ context.Context, keys []Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.items, memKey(key.PK, key.SK))
	}
	return nil
}

// Len returns the number of stored items, for test assertions.
func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func matchesFilter(item Item, filter map[string]interface{}) bool {
	for attr, want := range filter {
		if normalize(item[attr]) != normalize(want) {
			return false
		}
	}
	return true
}

// normalize coerces values into the JSON type system (string, float64,
// bool) so filters compare the way they would against the wire form.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case nil, string, bool, float64:
		return val
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func copyItem(item Item) Item {
	data, err := json.Marshal(item)
	if err != nil {
		return Item{}
	}
	out := Item{}
	_ = json.Unmarshal(data, &out)
	return out
}

// MemoryBlob is an in-memory BlobStore for tests and local development.
type MemoryBlob struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	types map[string]string
}

// NewMemoryBlob creates an empty in-memory blob store.
func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{blobs: map[string][]byte{}, types: map[string]string{}}
}

// Put stores a copy of data under key.
func (m *MemoryBlob) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.blobs[key] = buf
	m.types[key] = contentType
	return nil
}

// Get returns the blob under key or an error when absent.
func (m *MemoryBlob) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", key)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

// Delete removes the blob under key; deleting a missing key is not an error.
func (m *MemoryBlob) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	delete(m.types, key)
	return nil
}

// List returns all keys under prefix in lexicographic order.
func (m *MemoryBlob) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for key := range m.blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
