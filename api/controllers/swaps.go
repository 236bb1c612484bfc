package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/socshift-backend/api/responses"
	"github.com/angelmondragon/socshift-backend/api/validators"
	"github.com/angelmondragon/socshift-backend/internal/swaps"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

func SwapList(svc swaps.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "swap")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		items, err := svc.List(r.Context(), actor, swaps.ListParams{Status: validators.QueryString(r, "status", 16)})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func SwapCreate(svc swaps.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "swap")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var body swaps.CreateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		swap, err := svc.Create(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, swap)
	}
}

type swapTransition func(ctx context.Context, actor auth.Actor, id string) (*models.SwapRequest, error)

func SwapAccept(svc swaps.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return swapDecision(nil, logg)
	}
	return swapDecision(svc.Accept, logg)
}

func SwapReject(svc swaps.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return swapDecision(nil, logg)
	}
	return swapDecision(svc.Reject, logg)
}

func swapDecision(transition swapTransition, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if transition == nil {
			serviceUnavailable(w, r, logg, "swap")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathParam(r, "swapId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		swap, err := transition(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, swap)
	}
}
