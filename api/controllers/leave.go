package controllers

import (
	"net/http"

	"github.com/angelmondragon/socshift-backend/api/responses"
	"github.com/angelmondragon/socshift-backend/api/validators"
	"github.com/angelmondragon/socshift-backend/internal/leave"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

func LeaveList(svc leave.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "leave")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		items, err := svc.List(r.Context(), actor, leave.ListParams{
			UserID: validators.QueryString(r, "userId", 128),
			Status: validators.QueryString(r, "status", 16),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func LeaveCreate(svc leave.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "leave")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var body leave.CreateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := svc.Create(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, req)
	}
}

// LeaveReview approves or rejects a pending request.
func LeaveReview(svc leave.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "leave")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathParam(r, "leaveId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body leave.ReviewInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := svc.Review(r.Context(), actor, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, req)
	}
}
