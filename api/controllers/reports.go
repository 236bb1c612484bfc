package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/angelmondragon/socshift-backend/api/responses"
	"github.com/angelmondragon/socshift-backend/api/validators"
	"github.com/angelmondragon/socshift-backend/internal/exports"
	"github.com/angelmondragon/socshift-backend/internal/workload"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

// Workload returns per-user hours, reliability and cap breaches.
func Workload(svc workload.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "workload")
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
		report, err := svc.Stats(r.Context(), actor, workload.Params{
			From:   from,
			To:     to,
			UserID: validators.QueryString(r, "userId", 128),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// Export streams the schedule as a download in the format named by the path.
func Export(svc exports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "export")
			return
		}
		if _, ok := requireActor(w, r, logg); !ok {
			return
		}
		format, err := validators.PathParam(r, "format")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, err := validators.ParseQueryDate(r, "start")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseQueryDate(r, "end")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		file, err := svc.Export(r.Context(), exports.Params{
			Format: format,
			Start:  start,
			End:    end,
			UserID: validators.QueryString(r, "userId", 128),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Content-Type", file.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(file.Body); err != nil && logg != nil {
			logg.Error(r.Context(), "export.write_failed", err)
		}
	}
}
