package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/socshift-backend/api/controllers"
	"github.com/angelmondragon/socshift-backend/api/middleware"
	"github.com/angelmondragon/socshift-backend/internal/activity"
	"github.com/angelmondragon/socshift-backend/internal/activity/query"
	"github.com/angelmondragon/socshift-backend/internal/availability"
	"github.com/angelmondragon/socshift-backend/internal/clock"
	"github.com/angelmondragon/socshift-backend/internal/conflicts"
	"github.com/angelmondragon/socshift-backend/internal/coverage"
	"github.com/angelmondragon/socshift-backend/internal/exports"
	"github.com/angelmondragon/socshift-backend/internal/leave"
	"github.com/angelmondragon/socshift-backend/internal/notes"
	"github.com/angelmondragon/socshift-backend/internal/recommendations"
	"github.com/angelmondragon/socshift-backend/internal/schedule"
	"github.com/angelmondragon/socshift-backend/internal/shiftconfig"
	"github.com/angelmondragon/socshift-backend/internal/shifts"
	"github.com/angelmondragon/socshift-backend/internal/swaps"
	"github.com/angelmondragon/socshift-backend/internal/users"
	"github.com/angelmondragon/socshift-backend/internal/workload"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/config"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
	"github.com/angelmondragon/socshift-backend/pkg/metrics"
)

// Store backs idempotency and rate limiting. *redis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// UserLookup resolves the caller's profile during authentication.
type UserLookup interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// Deps carries everything the router mounts. Nil services answer 500 on
// their routes; nil pingers are skipped by the readiness check.
type Deps struct {
	Verifier auth.TokenVerifier
	Profiles UserLookup
	Store    Store
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics
	Pingers  map[string]controllers.Pinger

	Schedule        schedule.Service
	Users           users.Service
	Shifts          shifts.Service
	Coverage        coverage.Service
	Conflicts       conflicts.Service
	Recommendations recommendations.Service
	Swaps           swaps.Service
	Leave           leave.Service
	Availability    availability.Service
	Clock           clock.Service
	Notes           notes.Service
	ShiftConfig     shiftconfig.Service
	Activity        activity.Service
	Analytics       query.Service
	Workload        workload.Service
	Exports         exports.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTP),
		middleware.CORS(cfg.CORS),
		middleware.Locale(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	if !cfg.App.IsProd() && cfg.Auth.IsLocal() {
		r.Post("/api/dev/token", controllers.DevToken(cfg.JWT, logg))
	}

	generatePolicy := middleware.RateLimitPolicy{
		Name:   "generate",
		Limit:  cfg.Schedule.GenerateLimit,
		Window: cfg.Schedule.GenerateWindow,
	}

	// Admin operations sit outside /v1, matching the paths existing clients call.
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Verifier, deps.Profiles, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))

			// Generation and account creation are the writes a client may
			// safely retry after a timeout.
			idempotent := middleware.Idempotency(deps.Store, cfg.App.IdempotencyTTL, logg)
			r.With(middleware.RateLimit(generatePolicy, deps.Store, logg), idempotent).
				Post("/generate-schedule", controllers.GenerateSchedule(deps.Schedule, logg))
			r.With(idempotent).Post("/users", controllers.UserCreate(deps.Users, logg))
			r.Patch("/users/{userId}", controllers.UserUpdate(deps.Users, logg))
			r.Delete("/users/{userId}", controllers.UserDelete(deps.Users, logg))
			if !cfg.App.IsProd() {
				r.Post("/add-today-shifts", controllers.ShiftSeedToday(deps.Shifts, logg))
			}
		})

		r.Route("/v1", func(r chi.Router) {
			r.Get("/me", controllers.Me(deps.Users, logg))
			r.Patch("/me/preferences", controllers.MePreferences(deps.Users, logg))
			r.Get("/users", controllers.UserList(deps.Users, logg))

			r.Route("/shifts", func(r chi.Router) {
				r.Get("/", controllers.ShiftList(deps.Shifts, logg))
				r.With(middleware.RequireAdmin(logg)).Post("/", controllers.ShiftAssign(deps.Shifts, logg))
				r.With(middleware.RequireAdmin(logg)).Post("/bulk", controllers.ShiftBulk(deps.Shifts, logg))
				r.Route("/{shiftId}", func(r chi.Router) {
					r.Get("/", controllers.ShiftGet(deps.Shifts, logg))
					r.With(middleware.RequireAdmin(logg)).Patch("/", controllers.ShiftUpdate(deps.Shifts, logg))
					r.With(middleware.RequireAdmin(logg)).Delete("/", controllers.ShiftDelete(deps.Shifts, logg))
					r.Get("/notes", controllers.NoteList(deps.Notes, logg))
					r.Post("/notes", controllers.NoteAdd(deps.Notes, logg))
				})
			})
			r.Delete("/notes/{noteId}", controllers.NoteDelete(deps.Notes, logg))

			r.Get("/coverage", controllers.Coverage(deps.Coverage, logg))
			r.Post("/conflicts/check", controllers.ConflictCheck(deps.Conflicts, logg))
			r.Get("/recommendations", controllers.Recommendations(deps.Recommendations, logg))

			r.Route("/swaps", func(r chi.Router) {
				r.Get("/", controllers.SwapList(deps.Swaps, logg))
				r.Post("/", controllers.SwapCreate(deps.Swaps, logg))
				r.Post("/{swapId}/accept", controllers.SwapAccept(deps.Swaps, logg))
				r.Post("/{swapId}/reject", controllers.SwapReject(deps.Swaps, logg))
			})

			r.Route("/leave", func(r chi.Router) {
				r.Get("/", controllers.LeaveList(deps.Leave, logg))
				r.Post("/", controllers.LeaveCreate(deps.Leave, logg))
				r.With(middleware.RequireAdmin(logg)).Post("/{leaveId}/review", controllers.LeaveReview(deps.Leave, logg))
			})

			r.Route("/availability", func(r chi.Router) {
				r.Get("/", controllers.AvailabilityList(deps.Availability, logg))
				r.Post("/", controllers.AvailabilityCreate(deps.Availability, logg))
				r.Delete("/{availabilityId}", controllers.AvailabilityDelete(deps.Availability, logg))
			})

			r.Route("/clock", func(r chi.Router) {
				r.Post("/in", controllers.ClockIn(deps.Clock, logg))
				r.Post("/out", controllers.ClockOut(deps.Clock, logg))
				r.Get("/entries", controllers.ClockEntries(deps.Clock, logg))
			})

			r.Get("/shift-config", controllers.ShiftConfigGet(deps.ShiftConfig, logg))
			r.With(middleware.RequireAdmin(logg)).Put("/shift-config", controllers.ShiftConfigUpdate(deps.ShiftConfig, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Get("/activity", controllers.ActivityList(deps.Activity, logg))
				r.Get("/analytics/activity", controllers.ActivityAnalytics(deps.Analytics, logg))
			})

			r.Get("/stats/workload", controllers.Workload(deps.Workload, logg))
			r.Get("/exports/{format}", controllers.Export(deps.Exports, logg))
		})
	})

	return r
}
