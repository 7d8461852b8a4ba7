package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"gigledger/internal/model"
	"gigledger/internal/service"
)

// ProfileHeader carries the calling profile's id. The marketplace trusts it
// the way the original gateway did; real session handling sits in front of
// this service.
const ProfileHeader = "Profile-Id"

// Directory resolves calling profiles. Implemented by repository.Store.
type Directory interface {
	Profile(ctx context.Context, profileID int64) (*model.Profile, error)
}

type ctxKey int

const profileKey ctxKey = 0

// CallerProfile returns the authenticated profile stored by Authenticate.
// Only reachable from handlers behind the middleware, so it never returns nil.
func CallerProfile(ctx context.Context) *model.Profile {
	return ctx.Value(profileKey).(*model.Profile)
}

// Authenticate resolves the Profile-Id header against the directory and
// injects the profile into the request context. Missing, malformed, or
// unknown ids get 401.
func Authenticate(dir Directory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(ProfileHeader)
			if raw == "" {
				unauthorized(w, "missing_profile_id")
				return
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				unauthorized(w, "invalid_profile_id")
				return
			}
			profile, err := dir.Profile(r.Context(), id)
			if errors.Is(err, service.ErrProfileNotFound) {
				unauthorized(w, "unknown_profile")
				return
			}
			if err != nil {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), profileKey, profile)))
		})
	}
}

func unauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + reason + `"}`))
}
