package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/Harshitk-cp/practicedesk/internal/api/handlers"
	mw "github.com/Harshitk-cp/practicedesk/internal/api/middleware"
	"github.com/Harshitk-cp/practicedesk/internal/audit"
	"github.com/Harshitk-cp/practicedesk/internal/buildconfig"
	"github.com/Harshitk-cp/practicedesk/internal/config"
	"github.com/Harshitk-cp/practicedesk/internal/domain"
	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/Harshitk-cp/practicedesk/internal/service"
	"github.com/Harshitk-cp/practicedesk/internal/store"
	"github.com/Harshitk-cp/practicedesk/internal/tenancy"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Deps are the storage pieces the app is built on.
type Deps struct {
	// Executor is the unguarded persistence adapter.
	Executor guard.Executor
	// Pool is nil when running on the in-memory store.
	Pool *pgxpool.Pool
	// AuditWriter persists guard audit events when AUDIT_PERSIST is set.
	AuditWriter audit.Writer
}

// App holds the router and background services for lifecycle management.
type App struct {
	Router   *chi.Mux
	Guard    *guard.Guard
	Expirer  *service.BookingExpirer
	Recorder *audit.Recorder

	limiter   *mw.RateLimiter
	metrics   *mw.MetricsCollector
	stopSweep chan struct{}
	startTime time.Time
}

// NewApp wires the guard, services and routes around deps.Executor.
func NewApp(deps Deps, logger *zap.Logger) *App {
	var sink audit.Sink = audit.NewZapSink(logger)
	var recorder *audit.Recorder
	if config.AuditPersist() && deps.AuditWriter != nil {
		recorder = audit.NewRecorder(deps.AuditWriter, config.AuditBuffer(), logger)
		sink = audit.Multi{sink, recorder}
	}

	engine := guard.NewEngine(guard.Config{
		Enabled:      config.MultiTenancyEnabled(),
		ExemptModels: domain.UnscopedModels(),
	})
	guarded := guard.New(engine, deps.Executor, sink)

	// Services
	tenantSvc := service.NewTenantService(guarded, logger)
	clientSvc := service.NewClientService(guarded)
	bookingSvc := service.NewBookingService(guarded)
	requestSvc := service.NewServiceRequestService(guarded)
	settingSvc := service.NewSettingService(guarded)
	expirer := service.NewBookingExpirer(bookingSvc, tenantSvc, logger)
	expirer.SetInterval(config.BookingExpiryInterval())

	// Handlers
	tenantHandler := handlers.NewTenantHandler(tenantSvc)
	clientHandler := handlers.NewClientHandler(clientSvc)
	bookingHandler := handlers.NewBookingHandler(bookingSvc)
	requestHandler := handlers.NewServiceRequestHandler(requestSvc)
	settingHandler := handlers.NewSettingHandler(settingSvc)
	adminHandler := handlers.NewAdminHandler(bookingSvc)

	// Authentication reads users before any tenant is bound.
	authenticator := mw.NewAuthenticator(store.NewAuthStore(deps.Executor), config.AuthCacheTTL(), logger)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Guard:     guarded,
		Expirer:   expirer,
		Recorder:  recorder,
		limiter:   mw.NewRateLimiter(config.RateLimitRPS(), config.RateLimitBurst()),
		metrics:   mw.NewMetricsCollector(),
		stopSweep: make(chan struct{}),
		startTime: time.Now(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(app.limiter.Middleware)

	// Unauthenticated
	r.Get("/health", healthHandler(deps.Pool))
	r.Get("/metrics", app.metricsHandler())
	r.Get("/version", versionHandler)
	r.Post("/v1/tenants", tenantHandler.Create)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authenticator.Middleware)
		r.Use(mw.BindTenant(logger))

		r.Get("/tenant", tenantHandler.Current)

		r.Route("/clients", func(r chi.Router) {
			r.Post("/", clientHandler.Create)
			r.Get("/", clientHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", clientHandler.GetByID)
				r.Patch("/", clientHandler.Update)
				r.Delete("/", clientHandler.Delete)
			})
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", bookingHandler.Create)
			r.Get("/", bookingHandler.List)
			r.Get("/stats", bookingHandler.Stats)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", bookingHandler.GetByID)
				r.Patch("/", bookingHandler.Update)
				r.Post("/cancel", bookingHandler.Cancel)
			})
		})

		r.Route("/service-requests", func(r chi.Router) {
			r.Post("/", requestHandler.Create)
			r.Get("/", requestHandler.List)
			r.Get("/revenue", requestHandler.Revenue)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", requestHandler.GetByID)
				r.Put("/status", requestHandler.UpdateStatus)
				r.Delete("/", requestHandler.Delete)
			})
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", settingHandler.List)
			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", settingHandler.Get)
				r.With(mw.RequireRole(tenancy.RoleAdmin)).Put("/", settingHandler.Put)
				r.With(mw.RequireRole(tenancy.RoleAdmin)).Delete("/", settingHandler.Delete)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.RequireRole(tenancy.RoleAdmin))
			r.Post("/tenants/{tenantID}/bookings/cancel", adminHandler.CancelTenantBookings)
		})
	})

	return app
}

// Start launches background workers.
func (app *App) Start() {
	if app.Recorder != nil {
		app.Recorder.Start()
	}
	app.Expirer.Start()
	go app.limiter.Run(10*time.Minute, app.stopSweep)
}

// Stop halts background workers. The recorder stops last so audit events
// from the final expiry pass are flushed.
func (app *App) Stop() {
	close(app.stopSweep)
	app.Expirer.Stop()
	if app.Recorder != nil {
		app.Recorder.Stop()
	}
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db == nil {
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "store": config.DriverMemory})
			return
		}
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "store": config.DriverPostgres})
	}
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(buildconfig.VersionInfo())
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)
		counters := app.metrics.Snapshot()

		response := map[string]any{
			"uptime_seconds":     uptime.Seconds(),
			"uptime_human":       uptime.Round(time.Second).String(),
			"request_count":      counters.Requests,
			"client_error_count": counters.ClientErrors,
			"server_error_count": counters.ServerErrors,
			"forbidden_count":    counters.Forbidden,
			"rate_limited_keys":  app.limiter.Len(),
			"multi_tenancy":      config.MultiTenancyEnabled(),
			"goroutines":         runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": float64(memStats.Alloc) / 1024 / 1024,
				"sys_mb":   float64(memStats.Sys) / 1024 / 1024,
				"num_gc":   memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}
		if app.Recorder != nil {
			response["audit_dropped"] = app.Recorder.Dropped()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}
