package controllers

import (
	"net/http"

	"github.com/angelmondragon/socshift-backend/api/responses"
	"github.com/angelmondragon/socshift-backend/api/validators"
	"github.com/angelmondragon/socshift-backend/internal/clock"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

func ClockIn(svc clock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "clock")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var body clock.ClockInInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.ClockIn(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// ClockOut closes the caller's open entry.
func ClockOut(svc clock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "clock")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		entry, err := svc.ClockOut(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

func ClockEntries(svc clock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "clock")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		from, err := validators.ParseQueryDate(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.List(r.Context(), actor, clock.ListParams{
			UserID: validators.QueryString(r, "userId", 128),
			From:   from,
			To:     to,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
