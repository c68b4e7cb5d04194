package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Avenger11764/duo-learning/internal/model"
	"github.com/Avenger11764/duo-learning/internal/store"
)

var subjectColors = []string{
	"bg-blue-500", "bg-green-500", "bg-purple-500", "bg-pink-500",
	"bg-orange-500", "bg-teal-500", "bg-rose-500",
}

// AddSubject appends a subject with a rotating color tag and zero progress.
// The whole subjects array is rewritten, same as every other field merge.
func (r *Repo) AddSubject(ctx context.Context, id model.ProfileID, name string) (model.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Subject{}, fmt.Errorf("subject name is required")
	}
	p, err := r.Get(ctx, id)
	if err != nil {
		return model.Subject{}, err
	}
	sub := model.Subject{
		ID:    "s_" + uuid.NewString()[:8],
		Name:  name,
		Color: subjectColors[len(p.Subjects)%len(subjectColors)],
	}
	subjects := append(p.Subjects, sub)
	return sub, r.UpdateFields(ctx, id, store.Fields{"subjects": subjects})
}

func (r *Repo) DeleteSubject(ctx context.Context, id model.ProfileID, subjectID string) error {
	p, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	kept := make([]model.Subject, 0, len(p.Subjects))
	found := false
	for _, s := range p.Subjects {
		if s.ID == subjectID {
			found = true
			continue
		}
		kept = append(kept, s)
	}
	if !found {
		return ErrSubjectNotFound
	}
	return r.UpdateFields(ctx, id, store.Fields{"subjects": kept})
}

func (r *Repo) AddGoal(ctx context.Context, id model.ProfileID, text string) (model.Goal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Goal{}, fmt.Errorf("goal text is required")
	}
	p, err := r.Get(ctx, id)
	if err != nil {
		return model.Goal{}, err
	}
	g := model.Goal{
		ID:   "g_" + uuid.NewString()[:8],
		Text: text,
	}
	goals := append(p.Goals, g)
	return g, r.UpdateFields(ctx, id, store.Fields{"goals": goals})
}

func (r *Repo) ToggleGoal(ctx context.Context, id model.ProfileID, goalID string) (model.Goal, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return model.Goal{}, err
	}
	var toggled *model.Goal
	for i := range p.Goals {
		if p.Goals[i].ID == goalID {
			p.Goals[i].Completed = !p.Goals[i].Completed
			toggled = &p.Goals[i]
			break
		}
	}
	if toggled == nil {
		return model.Goal{}, ErrGoalNotFound
	}
	return *toggled, r.UpdateFields(ctx, id, store.Fields{"goals": p.Goals})
}
