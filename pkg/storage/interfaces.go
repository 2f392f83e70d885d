// Package storage defines the blob-store and key-value-store capabilities
// the service is built on, plus adapters for S3 and DynamoDB and in-memory
// implementations for tests and local development.
//
// Adapters perform no access control; callers construct the access
// predicate and pass it as a filter or apply it in memory.
package storage

import (
	"context"
)

// Item is one record of the wide table: entity attributes plus the
// composite key and index projections.
type Item = map[string]interface{}

// Key addresses one item in the base table.
type Key struct {
	PK string
	SK string
}

// QueryInput describes a single-partition query against the base table or
// one of the named secondary indexes.
type QueryInput struct {
	// Index is "" for the base table, or "GSI1"/"GSI2".
	Index string
	// PartitionKey is the full partition key value.
	PartitionKey string
	// SortKeyPrefix restricts results to sort keys with this prefix.
	SortKeyPrefix string
	// ScanForward is false for descending sort-key order.
	ScanForward bool
	// Limit caps the number of returned items; 0 means no cap.
	Limit int
	// Filter keeps only items whose attributes equal the given values,
	// applied after the key condition.
	Filter map[string]interface{}
}

// UpdateInput mutates a single item. Atomicity is bounded to that item.
type UpdateInput struct {
	PK string
	SK string
	// Set assigns attribute values.
	Set map[string]interface{}
	// Add increments numeric attributes, creating them at the delta when
	// absent. Concurrent adds interleave but converge to the correct sum.
	Add map[string]float64
	// Remove deletes attributes, e.g. dropping an index projection.
	Remove []string
}

// KVStore is the key-value capability over the single wide table.
type KVStore interface {
	Put(ctx context.Context, item Item) error
	// Get returns nil when no item exists at the key.
	Get(ctx context.Context, pk, sk string) (Item, error)
	Query(ctx context.Context, in QueryInput) ([]Item, error)
	Update(ctx context.Context, in UpdateInput) error
	BatchDelete(ctx context.Context, keys []Key) error
}

// BlobStore is the flat-namespace blob capability. Keys are chosen by
// callers.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// List returns every key under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// indexKeyAttrs maps an index name to its partition/sort attribute names.
func indexKeyAttrs(index string) (pkAttr, skAttr string) {
	switch index {
	case "GSI1":
		return "GSI1PK", "GSI1SK"
	case "GSI2":
		return "GSI2PK", "GSI2SK"
	default:
		return "PK", "SK"
	}
}
