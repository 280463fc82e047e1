package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"telemetry-server/auth"
	"telemetry-server/cache"
	"telemetry-server/confs"
	"telemetry-server/db"
	"telemetry-server/handlers"
	httpHandler "telemetry-server/handlers/http"
	applog "telemetry-server/logger"
	"telemetry-server/metrics"
	"telemetry-server/repositories"
	"telemetry-server/services"
	"telemetry-server/usecases"
	"telemetry-server/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	app     *gin.Engine
	db      db.Database
	cfg     *confs.Config
	log     *applog.Logger
	cache   cache.CredentialCache
	janitor *services.CacheJanitor
}

// Deps are the collaborators the server does not build itself.
type Deps struct {
	Config   *confs.Config
	DB       db.Database
	Log      *applog.Logger
	Cache    cache.CredentialCache
	Registry *prometheus.Registry
}

func NewServer(deps Deps) (*Server, error) {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		app:   gin.New(),
		db:    deps.DB,
		cfg:   deps.Config,
		log:   deps.Log,
		cache: deps.Cache,
	}
	if mc, ok := deps.Cache.(*cache.MemoryCache); ok {
		s.janitor = services.NewCacheJanitor(mc, services.DefaultJanitorInterval, deps.Log)
	}

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := metrics.NewMetrics()
	if err := m.Register(reg); err != nil {
		return nil, err
	}
	s.routes(m, reg)
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.app }

func (s *Server) routes(m *metrics.Metrics, reg *prometheus.Registry) {
	s.app.Use(gin.Recovery())
	s.app.Use(httpHandler.RequestLogger(s.log))

	config := cors.DefaultConfig()
	if len(s.cfg.CORSOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = s.cfg.CORSOrigins
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", httpHandler.APIKeyHeader}
	s.app.Use(cors.New(config))

	s.app.GET("/health", func(c *gin.Context) {
		sqlDB, err := s.db.GetDB().DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DEGRADED", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	s.app.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Initialize use cases
	sessionUseCase := usecases.NewSessionUseCase(s.db, m, s.log)
	ingestUseCase := usecases.NewIngestUseCase(s.db, sessionUseCase, m, s.log)
	captureUseCase := usecases.NewCaptureUseCase(s.db, usecases.NewQuotaEnforcer(m), m, s.log)
	deviceUseCase := usecases.NewDeviceUseCase(s.db, s.cache, s.log)
	jwtService := auth.NewJWTService(s.cfg.JWTSecret, s.cfg.JWTTTL)
	userUseCase := usecases.NewUserUseCase(s.db, jwtService, s.log)
	subscriptionUseCase := usecases.NewSubscriptionUseCase(s.db, s.log)

	authn := auth.NewDeviceAuthenticator(repositories.NewDevicePgRepository(s.db), s.cache, s.log)

	// Initialize handlers
	ingestHandler := httpHandler.NewIngestHandler(ingestUseCase, sessionUseCase, s.log)
	captureHandler := httpHandler.NewCaptureHandler(captureUseCase, s.log)
	queryHandler := httpHandler.NewQueryHandler(ingestUseCase, sessionUseCase, s.log)
	loginHandler := httpHandler.NewLoginHandler(userUseCase, s.log)
	subscriptionHandler := httpHandler.NewSubscriptionHandler(subscriptionUseCase, s.log)
	cacheHandler := handlers.NewCacheHandler(s.janitor)

	manager := ws.NewManager(m.SetStreamConnections)
	deviceHandler := httpHandler.NewDeviceHandler(deviceUseCase, manager, s.log)
	wsHandler := handlers.NewWSHandler(manager, authn, ingestUseCase, sessionUseCase, s.log)

	requireDevice := httpHandler.RequireDevice(authn)
	requireUser := httpHandler.RequireUser(jwtService)

	api := s.app.Group("/api/v1")
	{
		api.POST("/auth/login", loginHandler.Login)

		// Device-credential routes
		api.POST("/ingest", requireDevice, ingestHandler.Ingest)
		api.POST("/sessions/:session_id/close", requireDevice, ingestHandler.CloseSession)

		// Bearer-token routes
		user := api.Group("", requireUser)
		{
			user.POST("/captures", captureHandler.WriteCapture)
			user.GET("/captures", captureHandler.GetCaptures)
			user.GET("/captures/:session_id", captureHandler.GetCapture)

			user.GET("/readings", queryHandler.GetReadings)
			user.GET("/sessions", queryHandler.GetSessions)

			user.POST("/devices", deviceHandler.CreateDevice)
			user.GET("/devices", deviceHandler.GetAllDevices)
			user.GET("/devices/connected", wsHandler.GetConnectedDevices)
			user.GET("/devices/:id", deviceHandler.GetDevice)
			user.DELETE("/devices/:id", deviceHandler.DeleteDevice)

			user.PUT("/subscriptions/:user_id", subscriptionHandler.PutSubscription)
			user.GET("/subscriptions/:user_id", subscriptionHandler.GetSubscription)

			user.GET("/cache/stats", cacheHandler.GetCacheStats)
			user.POST("/cache/purge", cacheHandler.PurgeCache)
		}
	}

	s.app.GET("/ws", wsHandler.HandleDeviceWS)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s.janitor != nil {
		s.janitor.Start(ctx)
	}

	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.app,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", s.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
