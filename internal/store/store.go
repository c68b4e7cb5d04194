package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrUnavailable = errors.New("store unavailable")
)

// Fields is one document's contents. Values must survive a JSON round trip;
// numbers read back from a snapshot may arrive as float64.
type Fields map[string]any

// Snapshot is the full current contents of one collection, keyed by doc id.
type Snapshot map[string]Fields

type serverTimestamp struct{}

// ServerTimestamp is a sentinel field value replaced with store-resolved
// time at write time, so all clients agree on ordering regardless of their
// local clocks.
var ServerTimestamp = serverTimestamp{}

// Store is the shared document store capability: keyed collections of
// mutable documents, point writes, and full-collection snapshot
// subscriptions. There are no transactions and no locks across documents;
// field-level updates are last-write-wins.
type Store interface {
	Get(ctx context.Context, collection, id string) (Fields, error)
	Set(ctx context.Context, collection, id string, doc Fields) error

	// UpdateFields merges the given fields into an existing document.
	// It is a non-transactional read-modify-write on some backends.
	UpdateFields(ctx context.Context, collection, id string, fields Fields) error

	// Append writes a new document under a server-assigned id.
	Append(ctx context.Context, collection string, doc Fields) (string, error)

	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) (Snapshot, error)

	// Subscribe delivers the full collection snapshot after every mutation.
	// Delivery is latest-wins: a slow consumer sees the newest snapshot,
	// never a backlog, and never blocks a writer. The returned stop func
	// releases the subscription.
	Subscribe(ctx context.Context, collection string) (<-chan Snapshot, func())

	// Now returns store-resolved time, the same source ServerTimestamp
	// sentinels resolve against.
	Now(ctx context.Context) time.Time
}

// Encode converts a typed document into Fields via a JSON round trip.
func Encode(v any) (Fields, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var f Fields
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// Decode converts Fields back into a typed document.
func Decode(f Fields, out any) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// Int reads a numeric field that may have been decoded as float64.
func Int(f Fields, key string) int {
	switch v := f[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func resolveTimestamps(f Fields, now time.Time) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		switch tv := v.(type) {
		case serverTimestamp:
			out[k] = now.UTC().Format(time.RFC3339Nano)
		case Fields:
			out[k] = resolveTimestamps(tv, now)
		case map[string]any:
			out[k] = resolveTimestamps(Fields(tv), now)
		default:
			out[k] = v
		}
	}
	return out
}
