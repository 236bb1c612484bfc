package controllers

import (
	"net/http"

	"github.com/angelmondragon/socshift-backend/api/responses"
	"github.com/angelmondragon/socshift-backend/api/validators"
	"github.com/angelmondragon/socshift-backend/internal/activity"
	"github.com/angelmondragon/socshift-backend/internal/activity/query"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
	"github.com/angelmondragon/socshift-backend/pkg/pagination"
)

const defaultAnalyticsDays = 30

// ActivityList pages the audit log newest first. Filters: ?type=, ?userId=.
func ActivityList(svc activity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "activity")
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), activity.ListParams{
			Limit:  limit,
			Cursor: validators.QueryString(r, "cursor", 512),
			Type:   validators.QueryString(r, "type", 32),
			UserID: validators.QueryString(r, "userId", 128),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ActivityAnalytics returns per-day activity counts from the warehouse.
func ActivityAnalytics(svc query.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "analytics")
			return
		}
		days, err := validators.ParseQueryInt(r, "days", defaultAnalyticsDays, 1, query.MaxDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.DailyCounts(r.Context(), days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
