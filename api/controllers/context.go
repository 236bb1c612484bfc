package controllers

import (
	"net/http"

	"github.com/angelmondragon/socshift-backend/api/middleware"
	"github.com/angelmondragon/socshift-backend/api/responses"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (auth.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok || actor.UserID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return auth.Actor{}, false
	}
	return actor, true
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}
