// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/zurichjs/conference-go/internal/application/services"
	"github.com/zurichjs/conference-go/internal/infrastructure/caching/stores"
	"github.com/zurichjs/conference-go/internal/infrastructure/cookies"
	"github.com/zurichjs/conference-go/internal/infrastructure/email"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/performance"
	"github.com/zurichjs/conference-go/internal/infrastructure/persistence/analytics"
	"github.com/zurichjs/conference-go/internal/infrastructure/persistence/database"
	persistence "github.com/zurichjs/conference-go/internal/infrastructure/persistence/discount"
	"github.com/zurichjs/conference-go/pkg/config"
)

// Options are the already-built infrastructure pieces and secrets the container wires together.
type Options struct {
	DB          *database.DB
	Discount    *config.DiscountConfig
	Logger      *logging.ChanneledLogger
	PerfTracker *performance.Tracker
	Clock       services.Clock
	Mailer      email.Service // nil disables the email endpoint

	JWTSecret           string
	AdminPasswordHash   string
	CookieSecure        bool
	TicketsURL          string
	TicketPrice         string
	AnalyticsBufferSize int
	AllowedOrigins      []string
}

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Popup engine collaborators
	DiscountConfig     *config.DiscountConfig
	EligibilityService *services.EligibilityService
	DiscountService    *services.DiscountService
	AnalyticsService   *services.AnalyticsService

	// Supporting services
	AuthService  *services.AuthService
	DBService    *services.DBService
	EmailService *services.EmailService

	// Session state
	PopupSessions *stores.SessionsStore[*services.PopupEngine]

	// Infrastructure Dependencies
	DB             *database.DB
	Logger         *logging.ChanneledLogger
	PerfTracker    *performance.Tracker
	Clock          services.Clock
	CookieSecure   bool
	AllowedOrigins []string
}

// NewContainer creates and wires all singleton services
func NewContainer(opts Options) *Container {
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = services.SystemClock()
	}
	if opts.Discount == nil {
		opts.Discount = config.DefaultDiscountConfig()
	}

	issuedRepo := persistence.NewSQLIssuedRepository(opts.DB, opts.Logger)
	eventRepo := analytics.NewSQLEventRepository(opts.DB, opts.Logger)

	discountService := services.NewDiscountService(opts.Discount, issuedRepo, opts.JWTSecret, opts.Clock, opts.Logger, opts.PerfTracker)

	return &Container{
		DiscountConfig:     opts.Discount,
		EligibilityService: services.NewEligibilityService(opts.Discount, opts.Logger),
		DiscountService:    discountService,
		AnalyticsService:   services.NewAnalyticsService(eventRepo, opts.Logger, opts.AnalyticsBufferSize),

		AuthService:  services.NewAuthService(opts.AdminPasswordHash, opts.JWTSecret, opts.Logger),
		DBService:    services.NewDBService(opts.DB, opts.Logger),
		EmailService: services.NewEmailService(opts.Mailer, discountService, opts.Clock, opts.TicketsURL, opts.TicketPrice, opts.Logger),

		PopupSessions: stores.NewSessionsStore[*services.PopupEngine](opts.Logger, opts.Clock.Now),

		DB:             opts.DB,
		Logger:         opts.Logger,
		PerfTracker:    opts.PerfTracker,
		Clock:          opts.Clock,
		CookieSecure:   opts.CookieSecure,
		AllowedOrigins: opts.AllowedOrigins,
	}
}

// NewPopupSession builds the engine and cookie jar for a fresh browser session.
func (c *Container) NewPopupSession(sessionID string) (*services.PopupEngine, *cookies.Jar) {
	jar := cookies.NewJar(c.CookieSecure, c.Clock.Now)
	engine := services.NewPopupEngine(sessionID, cookies.NewFlags(jar), services.PopupEngineDeps{
		Config:      c.DiscountConfig,
		Eligibility: c.EligibilityService,
		Issuer:      c.DiscountService,
		Sink:        c.AnalyticsService,
		Clock:       c.Clock,
		Logger:      c.Logger,
	})
	return engine, jar
}
