package profile

import (
	"context"

	"github.com/Avenger11764/duo-learning/internal/model"
)

// DefaultProfiles is the two-person starter pair created when the store is
// empty, matching the shapes existing clients expect.
func DefaultProfiles() []model.Profile {
	return []model.Profile{
		{
			ID:     "user1",
			Name:   "Alex",
			Role:   "Web Developer",
			Avatar: "👨‍💻",
			Level:  1,
			MaxXP:  500,
			Badges: []model.BadgeID{},
			Subjects: []model.Subject{
				{ID: "s1", Name: "React", Color: "bg-blue-500"},
				{ID: "s2", Name: "Node.js", Color: "bg-green-500"},
				{ID: "s3", Name: "Tailwind", Color: "bg-cyan-400"},
			},
			Goals: []model.Goal{
				{ID: "g1", Text: "Build a Portfolio"},
				{ID: "g2", Text: "Complete React Course"},
			},
		},
		{
			ID:     "user2",
			Name:   "Sam",
			Role:   "Academic Scholar",
			Avatar: "👩‍🎓",
			Level:  1,
			MaxXP:  500,
			Badges: []model.BadgeID{},
			Subjects: []model.Subject{
				{ID: "s4", Name: "Calculus", Color: "bg-red-500"},
				{ID: "s5", Name: "History", Color: "bg-amber-500"},
				{ID: "s6", Name: "Literature", Color: "bg-purple-500"},
			},
			Goals: []model.Goal{
				{ID: "g3", Text: "Read 2 Books"},
				{ID: "g4", Text: "Pass Finals"},
			},
		},
	}
}

// SeedIfEmpty writes the default pair when no profiles exist yet.
func (r *Repo) SeedIfEmpty(ctx context.Context) error {
	existing, err := r.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, p := range DefaultProfiles() {
		if err := r.Put(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
