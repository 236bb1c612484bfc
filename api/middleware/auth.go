package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/socshift-backend/api/responses"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

type userLookup interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// Auth verifies the bearer token and resolves the caller's profile. A caller
// without a profile yet is let through as an analyst so GET /me can create
// one; a deactivated profile is refused.
func Auth(verifier auth.TokenVerifier, users userLookup, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			identity, err := verifier.VerifyToken(ctx, token)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			actor := auth.Actor{
				UserID: identity.UID,
				Name:   identity.Name,
				Email:  identity.Email,
				Role:   enums.UserRoleAnalyst,
			}
			user, err := users.Get(ctx, identity.UID)
			switch {
			case errors.Is(err, db.ErrNotFound):
			case err != nil:
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user profile"))
				return
			case !user.IsActive:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated"))
				return
			default:
				actor.Name = user.Name
				actor.Role = user.Role
				actor.IsAdmin = user.IsAdmin
				if user.Email != "" {
					actor.Email = user.Email
				}
			}

			ctx = WithActor(ctx, actor)
			if logg != nil {
				ctx = logg.WithUserID(ctx, actor.UserID)
				ctx = logg.WithActorRole(ctx, string(actor.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) string {
	raw := strings.TrimSpace(header)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return ""
}
