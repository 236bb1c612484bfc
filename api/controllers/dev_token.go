package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/socshift-backend/api/responses"
	"github.com/angelmondragon/socshift-backend/api/validators"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

type devTokenRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
	Email  string `json:"email" validate:"omitempty,email"`
	Name   string `json:"name" validate:"omitempty,max=120"`
}

type devTokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// DevToken mints a local-mode bearer token for any user id. The router only
// mounts it outside production with AUTH_MODE=local.
func DevToken(cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body devTokenRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		now := time.Now()
		token, err := auth.MintLocalToken(cfg, now, auth.LocalToken{UserID: body.UserID, Email: body.Email, Name: body.Name})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "mint dev token"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, devTokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresAt:   now.Add(cfg.TTL()).UTC(),
		})
	}
}
