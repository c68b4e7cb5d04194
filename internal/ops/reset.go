package ops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Avenger11764/duo-learning/internal/store"
)

var ErrBadSecret = errors.New("admin secret mismatch")

// CheckAdminSecret gates destructive operations. With no secret configured
// every attempt is refused; there is no open default.
func CheckAdminSecret(given string) error {
	want := strings.TrimSpace(os.Getenv("DUOLEARN_ADMIN_SECRET"))
	if want == "" || given != want {
		return ErrBadSecret
	}
	return nil
}

// Reset deletes every document in every collection, one delete at a time.
// There is no batch primitive, so a failure partway leaves the earlier
// deletes in place; all failures are collected and reported together.
func Reset(ctx context.Context, st store.Store) error {
	var errs []error
	for _, collection := range Collections {
		snap, err := st.List(ctx, collection)
		if err != nil {
			errs = append(errs, fmt.Errorf("list %s: %w", collection, err))
			continue
		}
		for id := range snap {
			if err := st.Delete(ctx, collection, id); err != nil {
				errs = append(errs, fmt.Errorf("delete %s/%s: %w", collection, id, err))
			}
		}
	}
	return errors.Join(errs...)
}
