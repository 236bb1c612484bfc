package controllers

import (
	"net/http"

	"github.com/angelmondragon/socshift-backend/api/responses"
	"github.com/angelmondragon/socshift-backend/api/validators"
	"github.com/angelmondragon/socshift-backend/internal/schedule"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

// GenerateSchedule asks the model for the next window and merges the result.
// An empty body generates DefaultDays from tomorrow for the active roster.
func GenerateSchedule(svc schedule.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "schedule")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var body schedule.Request
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Generate(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
