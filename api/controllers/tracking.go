package controllers

import (
	"net/http"

	"github.com/campusbite/orderflow/api/middleware"
	"github.com/campusbite/orderflow/api/responses"
	pkgerrors "github.com/campusbite/orderflow/pkg/errors"
	"github.com/campusbite/orderflow/pkg/logger"
)

// TrackerStopper tears down a session's live tracker.
type TrackerStopper interface {
	Stop(sessionID string) bool
}

// StopTracking ends the live status subscription of the session. It is safe to
// call when nothing is running.
func StopTracking(trackers TrackerStopper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if trackers == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order tracking unavailable"))
			return
		}
		sessionID, err := middleware.RequireSession(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stopped := trackers.Stop(sessionID)
		if stopped {
			logg.Info(logg.WithSessionID(r.Context(), sessionID), "order tracking stopped")
		}
		responses.WriteSuccess(w, map[string]bool{"stopped": stopped})
	}
}
