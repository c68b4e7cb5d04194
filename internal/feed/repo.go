package feed

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Avenger11764/duo-learning/internal/model"
	"github.com/Avenger11764/duo-learning/internal/store"
)

// Collection is the wire name shared with existing stored data.
const Collection = "duo_logs"

var ErrNotFound = errors.New("log entry not found")

// Repo is the append-only activity feed over duo_logs. Entries are
// immutable except the like counter.
type Repo struct {
	store store.Store
}

func NewRepo(s store.Store) *Repo {
	return &Repo{store: s}
}

// Append writes one session entry with a server-assigned timestamp and a
// zero like count.
func (r *Repo) Append(ctx context.Context, e model.LogEntry) (model.LogID, error) {
	f, err := store.Encode(e)
	if err != nil {
		return "", err
	}
	delete(f, "id")
	f["likes"] = 0
	f["timestamp"] = store.ServerTimestamp
	id, err := r.store.Append(ctx, Collection, f)
	if err != nil {
		return "", err
	}
	return model.LogID(id), nil
}

// Like bumps an entry's like counter. This is a deliberate non-transactional
// read-modify-write: two concurrent likers who both read the same count
// produce a single increment (lost update), accepted by design.
func (r *Repo) Like(ctx context.Context, id model.LogID) (int, error) {
	f, err := r.store.Get(ctx, Collection, string(id))
	if err == store.ErrNotFound {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	next := store.Int(f, "likes") + 1
	if err := r.store.UpdateFields(ctx, Collection, string(id), store.Fields{"likes": next}); err != nil {
		return 0, err
	}
	return next, nil
}

func (r *Repo) Get(ctx context.Context, id model.LogID) (model.LogEntry, error) {
	f, err := r.store.Get(ctx, Collection, string(id))
	if err == store.ErrNotFound {
		return model.LogEntry{}, ErrNotFound
	}
	if err != nil {
		return model.LogEntry{}, err
	}
	var e model.LogEntry
	if err := store.Decode(f, &e); err != nil {
		return model.LogEntry{}, err
	}
	e.ID = model.LogID(id)
	return e, nil
}

// List returns the feed newest-first. Entries whose timestamp has not been
// acknowledged yet sort as "now", i.e. to the top.
func (r *Repo) List(ctx context.Context) ([]model.LogEntry, error) {
	snap, err := r.store.List(ctx, Collection)
	if err != nil {
		return nil, err
	}
	return r.decodeSnapshot(snap, r.store.Now(ctx)), nil
}

// decodeSnapshot orders against store-resolved time, the same source the
// timestamps were assigned from.
func (r *Repo) decodeSnapshot(snap store.Snapshot, now time.Time) []model.LogEntry {
	out := make([]model.LogEntry, 0, len(snap))
	for id, f := range snap {
		var e model.LogEntry
		if err := store.Decode(f, &e); err != nil {
			continue
		}
		e.ID = model.LogID(id)
		out = append(out, e)
	}
	at := func(e model.LogEntry) time.Time {
		if e.Timestamp.IsZero() {
			return now
		}
		return e.Timestamp
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := at(out[i]), at(out[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Watch delivers the decoded, ordered feed after every collection change.
func (r *Repo) Watch(ctx context.Context) (<-chan []model.LogEntry, func()) {
	raw, stop := r.store.Subscribe(ctx, Collection)
	out := make(chan []model.LogEntry, 1)
	go func() {
		defer close(out)
		for snap := range raw {
			entries := r.decodeSnapshot(snap, r.store.Now(ctx))
			select {
			case out <- entries:
			default:
				select {
				case <-out:
				default:
				}
				select {
				case out <- entries:
				default:
				}
			}
		}
	}()
	return out, stop
}
