package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luhive/luhive-backend/api/controllers"
	"github.com/luhive/luhive-backend/api/middleware"
	"github.com/luhive/luhive-backend/internal/auth"
	"github.com/luhive/luhive-backend/internal/collaborations"
	"github.com/luhive/luhive-backend/internal/communities"
	"github.com/luhive/luhive-backend/internal/dashboard"
	"github.com/luhive/luhive-backend/internal/events"
	"github.com/luhive/luhive-backend/internal/profiles"
	"github.com/luhive/luhive-backend/internal/registrations"
	"github.com/luhive/luhive-backend/internal/waitlist"
	"github.com/luhive/luhive-backend/pkg/auth/session"
	"github.com/luhive/luhive-backend/pkg/config"
	"github.com/luhive/luhive-backend/pkg/enums"
	"github.com/luhive/luhive-backend/pkg/logger"
	"github.com/luhive/luhive-backend/pkg/metrics"
	pkgredis "github.com/luhive/luhive-backend/pkg/redis"
)

// RedisStore is the subset of the Redis client used by HTTP middleware.
type RedisStore interface {
	controllers.Pinger
	pkgredis.IdempotencyStore
	RateLimitKey(scope string) string
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Services groups the domain services exposed over HTTP.
type Services struct {
	Auth           auth.Service
	Profiles       profiles.Service
	Waitlist       waitlist.Service
	Communities    communities.Service
	Events         events.Service
	Registrations  registrations.Service
	Collaborations collaborations.Service
	Dashboard      dashboard.Service
	Reminders      controllers.ReminderRunner
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient RedisStore,
	sessions session.AccessSessionChecker,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		chimw.RealIP,
		middleware.Logging(logg, httpMetrics),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	limits := cfg.RateLimit
	limited := func(name string, window time.Duration, perIP, perEmail int) func(http.Handler) http.Handler {
		return middleware.RateLimit(middleware.RateLimitPolicy{
			Name:     name,
			Window:   window,
			PerIP:    perIP,
			PerEmail: perEmail,
		}, redisClient, logg)
	}
	loginLimit := limited("login", limits.LoginWindow, limits.LoginIPLimit, limits.LoginEmailLimit)
	signupLimit := limited("signup", limits.SignupWindow, limits.SignupIPLimit, limits.SignupEmailLimit)
	registerLimit := limited("event_register", limits.RegisterWindow, limits.RegisterIPLimit, limits.RegisterEmailLimit)
	waitlistLimit := limited("waitlist", limits.WaitlistWindow, limits.WaitlistIPLimit, limits.WaitlistEmailLimit)

	authRequired := middleware.Auth(cfg.JWT, sessions, logg)
	authOptional := middleware.OptionalAuth(cfg.JWT, sessions, logg)
	idempotent := middleware.Idempotency(redisClient, middleware.DefaultIdempotencyTTL, logg)
	idempotentRegistration := middleware.Idempotency(redisClient, middleware.RegistrationIdempotency, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": dbP,
			"redis":    redisClient,
		}))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Verification links land here straight from the email client.
	r.Get("/c/{slug}/events/{eventID}/verify", controllers.VerifyRegistration(svc.Registrations, cfg.App.BaseURL(), logg))

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(authRequired)
		r.Use(middleware.RequireSystemRole(logg, enums.SystemRoleAdmin))
		r.Get("/waitlist", controllers.AdminWaitlistList(svc.Waitlist, logg))
		r.Post("/waitlist/{requestID}/review", controllers.AdminWaitlistReview(svc.Waitlist, logg))
	})

	// Public and member routes share path patterns, so auth is attached per
	// route instead of through sub-routers.
	r.Route("/api/v1", func(r chi.Router) {
		public := r.With(authOptional)
		member := r.With(authRequired)

		r.With(loginLimit).Post("/auth/login", controllers.AuthLogin(svc.Auth, logg))
		r.With(signupLimit).Post("/auth/register", controllers.AuthRegister(svc.Auth, logg))
		r.Post("/auth/logout", controllers.AuthLogout(svc.Auth, logg))
		r.Post("/auth/refresh", controllers.AuthRefresh(svc.Auth, logg))

		r.With(middleware.SharedSecret(cfg.Reminders.DispatchSecret, logg)).
			Post("/reminders/process", controllers.ProcessReminders(svc.Reminders, logg))

		public.With(waitlistLimit, idempotent).Post("/waitlist", controllers.WaitlistSubmit(svc.Waitlist, logg))

		member.Get("/profiles/me", controllers.ProfileMe(svc.Profiles, logg))
		member.Patch("/profiles/me", controllers.ProfileUpdate(svc.Profiles, logg))

		public.Get("/communities/{slug}", controllers.CommunityGet(svc.Communities, logg))
		member.Put("/communities/{slug}", controllers.CommunityUpdate(svc.Communities, logg))
		member.Post("/communities/{slug}/join", controllers.CommunityJoin(svc.Communities, logg))
		member.Post("/communities/{slug}/leave", controllers.CommunityLeave(svc.Communities, logg))
		public.Get("/communities/{slug}/members", controllers.CommunityMembers(svc.Communities, logg))
		member.Patch("/communities/{slug}/members/{userID}", controllers.CommunityMemberUpdate(svc.Communities, logg))
		member.Delete("/communities/{slug}/members/{userID}", controllers.CommunityMemberRemove(svc.Communities, logg))
		member.With(idempotent).Post("/communities/{slug}/invites", controllers.CommunityInvite(svc.Communities, logg))
		member.Post("/invites/{token}/accept", controllers.InviteAccept(svc.Communities, logg))
		member.Get("/communities/{slug}/dashboard", controllers.CommunityDashboard(svc.Dashboard, logg))

		public.Get("/communities/{slug}/events", controllers.EventList(svc.Events, logg))
		member.With(idempotent).Post("/communities/{slug}/events", controllers.EventCreate(svc.Events, logg))
		public.Get("/events/{eventID}", controllers.EventGet(svc.Events, logg))
		member.Patch("/events/{eventID}", controllers.EventUpdate(svc.Events, logg))
		member.Post("/events/{eventID}/publish", controllers.EventPublish(svc.Events, logg))
		member.Post("/events/{eventID}/unpublish", controllers.EventUnpublish(svc.Events, logg))

		public.With(registerLimit, idempotentRegistration).Post("/events/{eventID}/registrations", controllers.RegistrationCreate(svc.Registrations, logg))
		member.Get("/events/{eventID}/registrations", controllers.RegistrationList(svc.Registrations, logg))
		member.Post("/events/{eventID}/registrations/status", controllers.RegistrationStatus(svc.Registrations, logg))
		member.Post("/events/{eventID}/registrations/{registrationID}/attendance", controllers.RegistrationAttendance(svc.Registrations, logg))
		member.Delete("/events/{eventID}/registrations/{registrationID}", controllers.RegistrationDelete(svc.Registrations, logg))

		public.Get("/events/{eventID}/collaborations", controllers.CollaborationList(svc.Collaborations, logg))
		member.With(idempotent).Post("/events/{eventID}/collaborations", controllers.CollaborationInvite(svc.Collaborations, logg))
		member.Post("/collaborations/{collaborationID}/respond", controllers.CollaborationRespond(svc.Collaborations, logg))
	})

	return r
}
