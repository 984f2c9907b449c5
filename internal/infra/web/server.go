package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"exam-access-backend/internal/config"
	red "exam-access-backend/internal/infra/redis"
	"exam-access-backend/internal/usecase"
)

// Server exposes the access-code API.
type Server struct {
	codeUC  *usecase.AccessCodeUseCase
	queryUC *usecase.QueryUseCase
	auth    *AuthManager
	limiter *red.RateLimiter
	limits  config.LimitsConfig
	log     *zerolog.Logger
}

func NewServer(
	codeUC *usecase.AccessCodeUseCase,
	queryUC *usecase.QueryUseCase,
	auth *AuthManager,
	limiter *red.RateLimiter,
	limits config.LimitsConfig,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "web").Logger()
	return &Server{
		codeUC:  codeUC,
		queryUC: queryUC,
		auth:    auth,
		limiter: limiter,
		limits:  limits,
		log:     &l,
	}
}

// Router assembles the route tree. Privileged routes sit behind auth + role
// guards; create and validate additionally sit behind per-IP rate limits.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1/access-codes", func(r chi.Router) {
		r.Get("/payment-tiers", s.handlePaymentTiers)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.With(s.rateLimit("validate", s.limits.ValidatePerWindow, s.limits.ValidateWindow)).
				Post("/validate", s.handleValidate)
			r.Get("/my-codes", s.handleMyCodes)
			r.Get("/entitlement", s.handleEntitlement)

			r.Group(func(r chi.Router) {
				r.Use(s.requirePrivileged)

				r.With(s.rateLimit("create", s.limits.CreatePerMinute, createWindow)).
					Post("/", s.handleCreate)
				r.Get("/", s.handleList)
				r.Put("/{id}/toggle-block", s.handleToggleBlock)
				r.Delete("/{id}", s.handleDelete)
			})
		})
	})

	return r
}
