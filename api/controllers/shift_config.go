package controllers

import (
	"net/http"

	"github.com/angelmondragon/socshift-backend/api/responses"
	"github.com/angelmondragon/socshift-backend/api/validators"
	"github.com/angelmondragon/socshift-backend/internal/shiftconfig"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

func ShiftConfigGet(svc shiftconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "shift configuration")
			return
		}
		if _, ok := requireActor(w, r, logg); !ok {
			return
		}
		cfg, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}

// ShiftConfigUpdate replaces the whole configuration document.
func ShiftConfigUpdate(svc shiftconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "shift configuration")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var body models.ShiftConfiguration
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.Update(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}
