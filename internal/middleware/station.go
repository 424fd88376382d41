// Package middleware binds judges' stations to a platform through the
// request session.
package middleware

import (
	"context"
	"net/http"

	"github.com/AdamBeresnev/meet-control/internal/httputil"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
)

type ContextKey string

const StationKey ContextKey = "station"

const (
	competitionSessionKey = "station.competition_id"
	platformSessionKey    = "station.platform_id"
)

// Station is the platform a judges' station decides for. PlatformID is
// uuid.Nil for the unassigned pool.
type Station struct {
	CompetitionID uuid.UUID
	PlatformID    uuid.UUID
}

// BindStation stores the station in the session, renewing the token first.
func BindStation(ctx context.Context, sessionManager *scs.SessionManager, station Station) error {
	if err := sessionManager.RenewToken(ctx); err != nil {
		return err
	}
	sessionManager.Put(ctx, competitionSessionKey, station.CompetitionID.String())
	sessionManager.Put(ctx, platformSessionKey, station.PlatformID.String())
	return nil
}

// RequireStation rejects requests from sessions without a bound station and
// puts the station into the request context otherwise.
func RequireStation(sessionManager *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			competitionID, err := uuid.Parse(sessionManager.GetString(r.Context(), competitionSessionKey))
			if err != nil {
				httputil.BadRequest(w, "Station is not bound to a platform", nil)
				return
			}
			platformID, err := uuid.Parse(sessionManager.GetString(r.Context(), platformSessionKey))
			if err != nil {
				sessionManager.Remove(r.Context(), competitionSessionKey)
				httputil.BadRequest(w, "Station is not bound to a platform", nil)
				return
			}

			station := Station{CompetitionID: competitionID, PlatformID: platformID}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), StationKey, station)))
		})
	}
}

func StationFromContext(ctx context.Context) (Station, bool) {
	station, ok := ctx.Value(StationKey).(Station)
	return station, ok
}
