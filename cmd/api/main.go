package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"

	"github.com/jobelinc/stocktrack/internal/analytics"
	"github.com/jobelinc/stocktrack/internal/app"
	"github.com/jobelinc/stocktrack/internal/audit"
	"github.com/jobelinc/stocktrack/internal/basket"
	"github.com/jobelinc/stocktrack/internal/catalog"
	"github.com/jobelinc/stocktrack/internal/common"
	"github.com/jobelinc/stocktrack/internal/config"
	"github.com/jobelinc/stocktrack/internal/events"
	"github.com/jobelinc/stocktrack/internal/finance"
	"github.com/jobelinc/stocktrack/internal/health"
	"github.com/jobelinc/stocktrack/internal/notify"
	"github.com/jobelinc/stocktrack/internal/obs"
	"github.com/jobelinc/stocktrack/internal/ratelimit"
	"github.com/jobelinc/stocktrack/internal/repo"
	"github.com/jobelinc/stocktrack/internal/sale"
	"github.com/jobelinc/stocktrack/internal/security"
	"github.com/jobelinc/stocktrack/internal/supplier"
	"github.com/jobelinc/stocktrack/internal/tenant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "stocktrack")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "stocktrack-api",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "stocktrack-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	if envBool("DB_AUTO_MIGRATE", true) {
		source := envOrDefault("MIGRATIONS_SOURCE", "file://db/migrations")
		m, err := migrate.New(source, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("open migrations")
		}
		if err := app.RunMigrations(m); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	db := &repo.DB{Pool: pool}
	productsRepo := repo.ProductsRepo{DB: db}
	stockRepo := repo.StockRepo{DB: db}
	salesRepo := repo.SalesRepo{DB: db}
	eventsRepo := repo.EventsRepo{DB: db}
	ledgerRepo := repo.LedgerRepo{DB: db}
	purchaseRepo := repo.PurchaseRepo{DB: db}
	analyticsRepo := repo.AnalyticsRepo{DB: db}
	auditRepo := repo.AuditRepo{DB: db}

	alertTopics := make(map[string]bool, len(notify.AlertTopics()))
	for _, topic := range notify.AlertTopics() {
		alertTopics[topic] = true
	}
	bus := &events.Bus{
		Store:     eventsRepo,
		Scheduler: notify.Scheduler{Client: taskClient, TopicAllow: alertTopics},
		Notifiers: []events.Notifier{signalMetrics{}},
	}

	validate := validator.New()

	catalogSvc := &catalog.Service{
		Store: productsRepo,
		Stock: stockRepo,
		Cache: catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
	}
	catalogHandler := &catalog.Handler{Service: catalogSvc, Stock: stockRepo, Validate: validate}

	saleEngine := &sale.Engine{
		Snapshots: catalogSvc,
		Stock:     stockRepo,
		Store:     salesRepo,
		Atomic:    db,
		Events:    bus,
	}
	saleHandler := &sale.Handler{
		Engine:     saleEngine,
		Lister:     salesRepo,
		Validate:   validate,
		DefaultTax: cfg.TaxPercent,
	}

	supplierSvc := &supplier.Service{
		Store:  purchaseRepo,
		Stock:  stockRepo,
		Atomic: db,
		Events: bus,
	}
	supplierHandler := &supplier.Handler{Svc: supplierSvc, Validate: validate}

	financeSvc := &finance.Service{Store: ledgerRepo, Sales: analyticsRepo, Atomic: db}
	financeHandler := &finance.Handler{Svc: financeSvc, Validate: validate}

	analyticsSvc := &analytics.Service{
		Q:            analyticsRepo,
		R:            redisClient,
		TTL:          cfg.AnalyticsCacheTTL,
		DefaultRange: envInt("ANALYTICS_DEFAULT_RANGE_DAYS", 30),
	}
	analyticsHandler := &analytics.Handler{Svc: analyticsSvc}

	basketSvc := &basket.Service{R: redisClient, TTL: cfg.BasketTTL}
	basketHandler := &basket.Handler{Svc: basketSvc, Validate: validate}

	auditSvc := &audit.Service{
		Store:        auditRepo,
		Enabled:      envBool("AUDIT_ENABLED", true),
		SamplingRate: envFloat("AUDIT_SAMPLING_RATE", 1.0),
	}
	auditRecorder := audit.HTTPRecorder{
		Service: auditSvc,
		OnError: func(err error) { logger.Error().Err(err).Msg("audit record") },
	}
	auditHandler := audit.Handler{Store: auditRepo}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	commitLimiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:"},
		Config: ratelimit.Config{
			Key: func(r *http.Request) string {
				slug, _ := tenant.FromContext(r.Context())
				return "commit:" + slug + ":" + common.ClientIP(r)
			},
			Window: time.Minute,
			Max:    envInt("RATE_LIMIT_COMMIT_PER_MIN", 120),
		},
		OnError: func(err error) { logger.Error().Err(err).Msg("rate limiter") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{
		Enable:                envBool("SECURE_HEADERS_ENABLED", true),
		EnableHSTS:            envBool("SECURE_HSTS_ENABLED", false),
		HSTSMaxAge:            envInt("SECURE_HSTS_MAX_AGE", 31536000),
		HSTSIncludeSubdomains: envBool("SECURE_HSTS_INCLUDE_SUBDOMAINS", false),
	}.Middleware)
	r.Use(security.BodyLimit{Max: int64(envInt("SECURE_MAX_BODY_BYTES", 1<<20))}.Middleware)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", cfg.TenantHeader, "X-Actor-ID", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if store, err := app.NewLimiterStore(redisClient); err != nil {
		logger.Error().Err(err).Msg("initialise global rate limiter")
	} else {
		globalRate := limiter.Rate{Period: time.Minute, Limit: int64(envInt("RATE_LIMIT_GLOBAL_PER_MIN", 600))}
		r.Use(limiterhttp.NewMiddleware(limiter.New(store, globalRate)).Handler)
	}

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", true) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	resolver := tenant.NewResolver(cfg.TenantHeader, cfg.TenantRootDomain, cfg.DefaultTenant)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(resolver.Middleware)
		v.Use(actorMiddleware)

		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{sku}", catalogHandler.ProductDetail)
		v.Put("/products/{sku}", catalogHandler.UpsertProduct)

		v.Get("/stock/low", catalogHandler.LowStock)
		v.Put("/stock/{sku}", catalogHandler.UpsertStockLevel)

		v.Route("/baskets", func(b chi.Router) {
			b.Get("/{basketId}", basketHandler.Get)
			b.Put("/{basketId}/lines", basketHandler.SetLine)
			b.Delete("/{basketId}", basketHandler.Clear)
		})

		v.Route("/sales", func(s chi.Router) {
			s.Get("/", saleHandler.List)
			s.Get("/{saleId}", saleHandler.Get)
			s.With(commitLimiter.Middleware, idem.Middleware).Post("/", saleHandler.Commit)
			s.With(auditRecorder.Middleware(audit.HTTPConfig{
				ResourceType:    "sales",
				ResourceIDParam: "saleId",
			})).Patch("/{saleId}/status", saleHandler.UpdateStatus)
		})

		v.Route("/suppliers", func(s chi.Router) {
			s.Get("/", supplierHandler.Suppliers)
			s.Post("/", supplierHandler.CreateSupplier)
		})

		v.Route("/purchase-orders", func(p chi.Router) {
			p.Get("/", supplierHandler.Orders)
			p.Get("/{orderId}", supplierHandler.Order)
			p.With(idem.Middleware).Post("/", supplierHandler.CreateOrder)
			p.With(auditRecorder.Middleware(audit.HTTPConfig{
				ResourceType:    "purchase-orders",
				ResourceIDParam: "orderId",
			})).Post("/{orderId}/receive", supplierHandler.Receive)
			p.With(auditRecorder.Middleware(audit.HTTPConfig{
				ResourceType:    "purchase-orders",
				ResourceIDParam: "orderId",
			})).Post("/{orderId}/cancel", supplierHandler.Cancel)
		})

		v.Route("/finance", func(f chi.Router) {
			f.Get("/accounts", financeHandler.Accounts)
			f.Post("/accounts", financeHandler.CreateAccount)
			f.With(idem.Middleware, auditRecorder.Middleware(audit.HTTPConfig{
				ResourceType: "finance.journal",
			})).Post("/journal", financeHandler.PostJournal)
			f.Get("/ledger/{accountId}", financeHandler.LedgerReport)
			f.Get("/reports/pnl", financeHandler.ProfitAndLoss)
			f.Get("/reports/balance-sheet", financeHandler.BalanceSheet)
		})

		v.Route("/analytics", func(an chi.Router) {
			an.Get("/sales", analyticsHandler.Sales)
			an.Get("/top-skus", analyticsHandler.TopSKUs)
		})

		v.Get("/audit-logs", auditHandler.List)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

// signalMetrics counts stock signals as they are emitted.
type signalMetrics struct{}

func (signalMetrics) Notify(_ context.Context, event events.Event) error {
	switch event.Topic {
	case events.TopicStockLow, events.TopicStockOut:
		if obs.StockSignalTotal != nil {
			obs.StockSignalTotal.WithLabelValues(event.Topic).Inc()
		}
	}
	return nil
}

func actorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := strings.TrimSpace(r.Header.Get("X-Actor-ID")); actor != "" {
			r = r.WithContext(common.WithActorID(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
