package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/Avenger11764/duo-learning/internal/model"
)

// View describes whose data a request operates on. A partner view is
// explicitly read-only: handlers must refuse mutations for it rather than
// silently writing to the viewer's own profile.
type View struct {
	// Viewer is the authenticated profile.
	Viewer model.ProfileID
	// Target is the profile whose data is shown. Equal to Viewer unless a
	// partner view was requested.
	Target model.ProfileID
	// ReadOnly is true whenever Target differs from Viewer.
	ReadOnly bool
}

// ViewFromRequest resolves the ?view= switch. An absent or self-referential
// value yields the viewer's own writable view.
func ViewFromRequest(r *http.Request, viewer model.ProfileID) View {
	target := model.ProfileID(strings.TrimSpace(r.URL.Query().Get("view")))
	if target == "" || target == viewer {
		return View{Viewer: viewer, Target: viewer}
	}
	return View{Viewer: viewer, Target: target, ReadOnly: true}
}

type viewContextKey struct{}

func withViewContext(ctx context.Context, v View) context.Context {
	return context.WithValue(ctx, viewContextKey{}, v)
}

// ViewFromContext returns the view resolved by RequireAPI.
func ViewFromContext(ctx context.Context) (View, bool) {
	v, ok := ctx.Value(viewContextKey{}).(View)
	return v, ok
}
