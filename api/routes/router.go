package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tradewind-labs/tradedesk-backend/api/controllers"
	"github.com/tradewind-labs/tradedesk-backend/api/middleware"
	internalauth "github.com/tradewind-labs/tradedesk-backend/internal/auth"
	"github.com/tradewind-labs/tradedesk-backend/internal/companies"
	"github.com/tradewind-labs/tradedesk-backend/internal/parties"
	"github.com/tradewind-labs/tradedesk-backend/internal/trades"
	"github.com/tradewind-labs/tradedesk-backend/pkg/auth/session"
	"github.com/tradewind-labs/tradedesk-backend/pkg/config"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	"github.com/tradewind-labs/tradedesk-backend/pkg/logger"
	"github.com/tradewind-labs/tradedesk-backend/pkg/metrics"
	redisclient "github.com/tradewind-labs/tradedesk-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Metrics     *metrics.HTTPMetrics
	Registry    *prometheus.Registry
	DB          controllers.Pinger
	Redis       *redisclient.Client
	Sessions    *session.Manager
	Auth        internalauth.Service
	Register    internalauth.RegisterService
	Switch      internalauth.SwitchCompanyService
	Users       controllers.UserRepository
	Memberships middleware.MembershipChecker
	Companies   companies.Service
	Parties     parties.Service
	Trades      trades.Service
}

// NewRouter assembles the HTTP surface.
func NewRouter(d Deps) http.Handler {
	logg := d.Logger
	jwtCfg := d.Config.JWT
	rlCfg := d.Config.AuthRateLimit

	r := chi.NewRouter()
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.CORS(d.Config.App.AllowedOrigins))
	r.Use(middleware.Logging(logg, d.Metrics))

	r.Get("/health/live", controllers.HealthLive())
	r.Get("/health/ready", controllers.HealthReady(logg,
		controllers.Probe("postgres", d.DB),
		controllers.Probe("redis", d.Redis),
	))

	if d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy("login",
		rlCfg.LoginWindow, rlCfg.LoginIPLimit, rlCfg.LoginEmailLimit)
	registerPolicy := middleware.NewAuthRateLimitPolicy("register",
		rlCfg.RegisterWindow, rlCfg.RegisterIPLimit, rlCfg.RegisterEmailLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(d.Redis, logg, registerPolicy)).
				Post("/register", controllers.AuthRegister(d.Register, logg))
			r.With(middleware.AuthRateLimit(d.Redis, logg, loginPolicy)).
				Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(jwtCfg, d.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(jwtCfg, d.Auth, logg))
			r.Post("/switch-company", controllers.AuthSwitchCompany(jwtCfg, d.Switch, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(jwtCfg, d.Sessions, logg))

			r.Get("/users/me", controllers.UsersMe(d.Users, logg))
			r.Put("/users/me", controllers.UsersMeUpdate(d.Users, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.CompanyContext(logg))

				r.Route("/companies/me", func(r chi.Router) {
					requireAdmin := middleware.RequireCompanyRoles(d.Memberships, logg, enums.MemberRoleAdmin)

					r.Get("/", controllers.CompaniesMe(d.Companies, logg))
					r.With(requireAdmin).Put("/", controllers.CompaniesMeUpdate(d.Companies, logg))
					r.Get("/users", controllers.CompanyUsersList(d.Companies, logg))
					r.With(requireAdmin).Post("/users", controllers.CompanyUsersInvite(d.Companies, logg))
					r.With(requireAdmin).Delete("/users/{userID}", controllers.CompanyUsersRemove(d.Companies, logg))
				})

				r.Route("/parties", func(r chi.Router) {
					r.Get("/", controllers.PartiesList(d.Parties, logg))
					r.Post("/", controllers.PartiesCreate(d.Parties, logg))
					r.Get("/{partyID}", controllers.PartiesGet(d.Parties, logg))
					r.Patch("/{partyID}", controllers.PartiesUpdate(d.Parties, logg))
					r.Delete("/{partyID}", controllers.PartiesDelete(d.Parties, logg))
				})

				r.Route("/trades", func(r chi.Router) {
					r.Get("/", controllers.TradesList(d.Trades, logg))
					r.Post("/", controllers.TradesCreate(d.Trades, d.Users, logg))
					r.Get("/{tradeID}", controllers.TradesGet(d.Trades, logg))
					r.Patch("/{tradeID}", controllers.TradesUpdate(d.Trades, d.Users, logg))
					r.Post("/{tradeID}/submit", controllers.TradesSubmit(d.Trades, d.Users, logg))
					r.Post("/{tradeID}/approve", controllers.TradesApprove(d.Trades, d.Users, logg))
					r.Post("/{tradeID}/cancel", controllers.TradesCancel(d.Trades, d.Users, logg))
					r.Post("/{tradeID}/close", controllers.TradesClose(d.Trades, d.Users, logg))
					r.Get("/{tradeID}/timeline", controllers.TradesTimeline(d.Trades, logg))
				})
			})
		})
	})

	return r
}
