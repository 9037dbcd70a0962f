// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"lms-admin-service/internal/config"
	"lms-admin-service/internal/db"
	installmentHandler "lms-admin-service/internal/handlers/installment"
	liveClassHandler "lms-admin-service/internal/handlers/liveclass"
	pricingHandler "lms-admin-service/internal/handlers/pricing"
	wsHandler "lms-admin-service/internal/handlers/websocket"
	"lms-admin-service/internal/domain/installment"
	"lms-admin-service/internal/middleware"
	"lms-admin-service/internal/pkg/jwt"
	"lms-admin-service/internal/pkg/session"
	"lms-admin-service/internal/pkg/validation"
	"lms-admin-service/internal/repository/lmsapi"
	"lms-admin-service/internal/repository/postgres"
	"lms-admin-service/internal/repository/redisstore"
	installmentUsecase "lms-admin-service/internal/service/installment"
	liveClassUsecase "lms-admin-service/internal/service/liveclass"
	"lms-admin-service/internal/websocket"
	wsHandlers "lms-admin-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	httpServer *http.Server
	pool       *pgxpool.Pool
	redis      *redis.Client
	poller     *liveClassUsecase.Poller
	stopHub    context.CancelFunc
}

func NewServer(logger *zap.Logger) *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine, logger: logger}
}

// Start wires every dependency and serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	ctx := context.Background()
	logger := s.logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.pool = pool
	dbWrapper := postgres.NewDB(pool)
	if err := dbWrapper.EnsureSchema(ctx); err != nil {
		return err
	}
	logger.Info("postgres connected")

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addresses: []string{s.cfg.RedisAddr},
		Password:  s.cfg.RedisPass,
		DB:        s.cfg.RedisDB,
		PoolSize:  10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s.redis = redisClient
	logger.Info("redis connected")

	// ----- JWT Verifier -----
	verifier, err := jwt.LoadVerifier(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT verifier: %w", err)
	}

	// ----- Session helpers -----
	blacklist := session.NewBlacklist(redisClient)
	rateLimiter := session.NewRateLimiter(redisClient)

	// ----- Repositories -----
	lmsClient := lmsapi.NewClient(s.cfg.LMS.BaseURL, s.cfg.LMS.Token, s.cfg.LMS.Timeout, logger.Named("lmsapi"))
	submissionRepo := postgres.NewInstallmentSubmissionRepository(pool)
	transitionRepo := postgres.NewLiveClassTransitionRepository(pool)
	draftStore := redisstore.NewDraftStore(redisClient, s.cfg.Installment.DraftTTL)
	snapshotCache := redisstore.NewSnapshotCache(redisClient, s.cfg.LiveClass.SnapshotTTL)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(verifier, blacklist, logger.Named("ws"))
	hubCtx, stopHub := context.WithCancel(context.Background())
	s.stopHub = stopHub
	go hub.Run(hubCtx)

	// ----- Services (Usecases) -----
	lc := s.cfg.LiveClass
	poller := liveClassUsecase.NewPoller(
		lmsClient,
		liveClassUsecase.RealClock(),
		liveClassUsecase.PollerConfig{
			ProtectionWindow: lc.ProtectionWindow,
			LiveInterval:     lc.LiveInterval,
			StartingInterval: lc.StartingInterval,
			UpcomingInterval: lc.UpcomingInterval,
			PollTimeout:      lc.PollTimeout,
		},
		logger.Named("poller"),
		liveClassUsecase.NewBroadcastSink(hub),
		liveClassUsecase.NewCacheSink(snapshotCache, logger),
		liveClassUsecase.NewTransitionSink(transitionRepo, logger),
	)
	s.poller = poller
	liveClassService := liveClassUsecase.NewService(lmsClient, poller, snapshotCache, transitionRepo, lc.MeritHubClientID, logger)
	liveClassService.SetAlerter(hub)

	synchronizer := installmentUsecase.NewSynchronizer(
		lmsClient,
		draftStore,
		submissionRepo,
		hub,
		installmentUsecase.Options{
			MatchStrategy: installment.MatchStrategy(s.cfg.Installment.MatchStrategy),
			Concurrency:   s.cfg.Installment.SubmitConcurrency,
		},
		logger,
	)

	// Register WebSocket handlers
	hub.RegisterHandler(wsHandlers.NewLiveClassHandler(liveClassService))

	// ----- Request validation -----
	if err := validation.Register(); err != nil {
		return err
	}

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(verifier, blacklist, logger)
	authMiddleware.SetSessionTerminator(hub)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(s.cfg.AllowedOrigins),
	)

	// ----- Router -----
	handlers := &Handlers{
		PricingHandler:     pricingHandler.NewPricingHandler(),
		InstallmentHandler: installmentHandler.NewInstallmentHandler(synchronizer),
		LiveClassHandler:   liveClassHandler.NewLiveClassHandler(liveClassService),
		WSHandler:          wsHandler.NewWebSocketHandler(hub, s.cfg.AllowedOrigins, logger),
		AuthMiddleware:     authMiddleware,
		RateLimiter:        rateLimiter,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("server listening", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, cancels pollers and closes the pools.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.poller != nil {
		s.poller.Stop()
	}
	if s.stopHub != nil {
		s.stopHub()
	}
	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil {
			s.logger.Warn("failed to close redis", zap.Error(cerr))
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}
