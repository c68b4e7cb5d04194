package profile

import (
	"context"
	"errors"
	"sort"

	"github.com/Avenger11764/duo-learning/internal/model"
	"github.com/Avenger11764/duo-learning/internal/store"
)

// Collection is the wire name shared with existing stored data.
const Collection = "duo_users"

var (
	ErrNotFound           = errors.New("profile not found")
	ErrCredentialMismatch = errors.New("credential mismatch")
	ErrSubjectNotFound    = errors.New("subject not found")
	ErrGoalNotFound       = errors.New("goal not found")
)

// Repo reads and writes duo_users documents. Field-level updates are
// last-write-wins; each profile is mutated by its owning user (or the focus
// controller acting for them), never cross-user.
type Repo struct {
	store store.Store
}

func NewRepo(s store.Store) *Repo {
	return &Repo{store: s}
}

func normalize(p *model.Profile) {
	if p.Level < 1 {
		p.Level = 1
	}
	if p.MaxXP <= 0 {
		p.MaxXP = 500
	}
	if p.Badges == nil {
		p.Badges = []model.BadgeID{}
	}
	if p.Subjects == nil {
		p.Subjects = []model.Subject{}
	}
	if p.Goals == nil {
		p.Goals = []model.Goal{}
	}
}

func (r *Repo) Get(ctx context.Context, id model.ProfileID) (model.Profile, error) {
	f, err := r.store.Get(ctx, Collection, string(id))
	if err == store.ErrNotFound {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, err
	}
	var p model.Profile
	if err := store.Decode(f, &p); err != nil {
		return model.Profile{}, err
	}
	p.ID = id
	normalize(&p)
	return p, nil
}

func (r *Repo) List(ctx context.Context) ([]model.Profile, error) {
	snap, err := r.store.List(ctx, Collection)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(snap), nil
}

func decodeSnapshot(snap store.Snapshot) []model.Profile {
	out := make([]model.Profile, 0, len(snap))
	for id, f := range snap {
		var p model.Profile
		if err := store.Decode(f, &p); err != nil {
			continue
		}
		p.ID = model.ProfileID(id)
		normalize(&p)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Repo) Put(ctx context.Context, p model.Profile) error {
	normalize(&p)
	f, err := store.Encode(p)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, Collection, string(p.ID), f)
}

// UpdateFields merges partial fields into the stored profile document.
func (r *Repo) UpdateFields(ctx context.Context, id model.ProfileID, fields store.Fields) error {
	err := r.store.UpdateFields(ctx, Collection, string(id), fields)
	if err == store.ErrNotFound {
		return ErrNotFound
	}
	return err
}

// Watch delivers the decoded profile list after every collection change.
func (r *Repo) Watch(ctx context.Context) (<-chan []model.Profile, func()) {
	raw, stop := r.store.Subscribe(ctx, Collection)
	out := make(chan []model.Profile, 1)
	go func() {
		defer close(out)
		for snap := range raw {
			profiles := decodeSnapshot(snap)
			select {
			case out <- profiles:
			default:
				select {
				case <-out:
				default:
				}
				select {
				case out <- profiles:
				default:
				}
			}
		}
	}()
	return out, stop
}

// CheckCredential performs the opaque equality gate. Profiles without a
// stored credential are open.
func (r *Repo) CheckCredential(ctx context.Context, id model.ProfileID, credential string) error {
	p, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.Credential != "" && p.Credential != credential {
		return ErrCredentialMismatch
	}
	return nil
}
