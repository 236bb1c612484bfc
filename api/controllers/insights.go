package controllers

import (
	"net/http"

	"github.com/angelmondragon/socshift-backend/api/responses"
	"github.com/angelmondragon/socshift-backend/api/validators"
	"github.com/angelmondragon/socshift-backend/internal/conflicts"
	"github.com/angelmondragon/socshift-backend/internal/coverage"
	"github.com/angelmondragon/socshift-backend/internal/recommendations"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

// Coverage reports per-slot staffing for the next 7 or 14 days (?days=).
func Coverage(svc coverage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "coverage")
			return
		}
		if _, ok := requireActor(w, r, logg); !ok {
			return
		}
		days, err := validators.ParseQueryInt(r, "days", coverage.WeekLookahead, coverage.WeekLookahead, coverage.FortnightLookahead)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.Snapshot(r.Context(), days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func ConflictCheck(svc conflicts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "conflict")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var body conflicts.CheckInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.Check(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// Recommendations ranks upcoming open slots for the caller, or for ?userId=
// when an admin asks.
func Recommendations(svc recommendations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "recommendation")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		userID := validators.QueryString(r, "userId", 128)
		if userID == "" {
			userID = actor.UserID
		}
		items, err := svc.ForUser(r.Context(), actor, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
