package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "legaldocs/api/swagger" // swagger docs
	"legaldocs/internal/blobstore"
	"legaldocs/internal/cache"
	"legaldocs/internal/config"
	"legaldocs/internal/database"
	"legaldocs/internal/handler"
	"legaldocs/internal/middleware"
	"legaldocs/internal/model"
	"legaldocs/internal/repository"
	"legaldocs/internal/service"
	"legaldocs/internal/translator"
	"legaldocs/internal/websocket"
	"legaldocs/pkg/logger"

	"cloud.google.com/go/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Legal Document Pipeline API
// @version         1.0
// @description     Versioning, segmentation, translation, approval and export of legal documents.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()
	cfg.LogConfig(zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DBDriver, cfg.DSN(), cfg.AppEnv != "production")
	if err != nil {
		zapLogger.Fatal("Database connection failed", zap.Error(err))
	}
	zapLogger.Info("Connected to database", zap.String("driver", cfg.DBDriver))

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			zapLogger.Warn("Redis unavailable, idempotent replay disabled", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	blobs, closeBlobs, err := openBlobStore(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Blob store initialization failed", zap.Error(err))
	}
	defer closeBlobs()

	provider, closeProvider, err := openTranslator(ctx, cfg)
	if err != nil {
		zapLogger.Fatal("Translator initialization failed", zap.Error(err))
	}
	defer closeProvider()

	generative, err := translator.ParsePairs(cfg.GenerativePairs)
	if err != nil {
		zapLogger.Fatal("Invalid GENERATIVE_PAIRS", zap.Error(err))
	}
	template, err := translator.ParsePairs(cfg.TemplatePairs)
	if err != nil {
		zapLogger.Fatal("Invalid TEMPLATE_PAIRS", zap.Error(err))
	}
	engine := translator.NewEngine(provider, translator.EngineConfig{
		Timeout:    cfg.TranslateTimeout,
		Generative: generative,
		Template:   template,
	}, zapLogger)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(zapLogger)
	go wsHub.Run(ctx)
	notifier := service.NewNotifier(wsHub, zapLogger)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	documentRepo := repository.NewDocumentRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	segmentRepo := repository.NewSegmentRepository(db)
	translationRepo := repository.NewTranslationRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	packageRepo := repository.NewPackageRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditService := service.NewAuditService(auditRepo)
	documentService := service.NewDocumentService(documentRepo, txManager, auditService, service.DocumentDefaults{
		SourceLang:    cfg.DefaultSourceLang,
		RequiredLangs: model.SplitLangs(cfg.DefaultRequiredLangs),
	}, zapLogger)
	segmentService := service.NewSegmentService(segmentRepo, versionRepo, txManager)
	approvalService := service.NewApprovalService(service.ApprovalServiceDeps{
		Approvals:    approvalRepo,
		Versions:     versionRepo,
		Documents:    documentRepo,
		Translations: translationRepo,
		Tx:           txManager,
		Audit:        auditService,
		Notifier:     notifier,
		Logger:       zapLogger,
	})
	versionService := service.NewVersionService(service.VersionServiceDeps{
		Documents: documentRepo,
		Versions:  versionRepo,
		Packages:  packageRepo,
		Segments:  segmentService,
		Tx:        txManager,
		Blobs:     blobs,
		Audit:     auditService,
		Gate:      approvalService,
		Notifier:  notifier,
		Logger:    zapLogger,
	})
	translationService := service.NewTranslationService(service.TranslationServiceDeps{
		Translations: translationRepo,
		Segments:     segmentRepo,
		Versions:     versionRepo,
		Documents:    documentRepo,
		Tx:           txManager,
		VersionSvc:   versionService,
		Engine:       engine,
		Audit:        auditService,
		Notifier:     notifier,
		Concurrency:  cfg.TranslateConcurrency,
		Logger:       zapLogger,
	})
	exportService := service.NewExportService(service.ExportServiceDeps{
		Versions:      versionRepo,
		Documents:     documentRepo,
		Segments:      segmentRepo,
		Translations:  translationRepo,
		Packages:      packageRepo,
		Tx:            txManager,
		VersionSvc:    versionService,
		Approvals:     approvalService,
		Audit:         auditService,
		Blobs:         blobs,
		Notifier:      notifier,
		PublicBaseURL: cfg.PublicBaseURL,
		Logger:        zapLogger,
	})
	verifyService := service.NewVerifyService(service.VerifyServiceDeps{
		Versions:     versionRepo,
		Documents:    documentRepo,
		Segments:     segmentRepo,
		Translations: translationRepo,
		Packages:     packageRepo,
		Approvals:    approvalService,
		Audit:        auditService,
	})

	// Initialize Handlers
	auth := middleware.NewAuth(cfg.JWTSecret)
	idempotent := middleware.Idempotency(rdb, cfg.IdempotencyTTL, cfg.IdempotencyLockTTL, zapLogger)
	documentHandler := handler.NewDocumentHandler(documentService, versionService, auth)
	versionHandler := handler.NewVersionHandler(versionService, segmentService, auth)
	translationHandler := handler.NewTranslationHandler(translationService, auth, idempotent)
	approvalHandler := handler.NewApprovalHandler(approvalService, auth)
	exportHandler := handler.NewExportHandler(exportService, verifyService, auth, idempotent)
	auditHandler := handler.NewAuditHandler(auditService, auth)

	// Set up Gin Router
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.NewLoggingMiddleware(zapLogger).LogRequest())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.IdempotencyHeader}
	corsConfig.ExposeHeaders = []string{"X-Package-Hash", "Idempotent-Replayed"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, []byte(cfg.JWTSecret))
	})

	// API Routing
	documentHandler.RegisterRoutes(router.Group(""))
	versionHandler.RegisterRoutes(router.Group(""))
	translationHandler.RegisterRoutes(router.Group(""))
	approvalHandler.RegisterRoutes(router.Group(""))
	exportHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLogger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Graceful shutdown failed", zap.Error(err))
	}
	notifier.Wait()
}

func openBlobStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (blobstore.Store, func(), error) {
	switch cfg.BlobBackend {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		return blobstore.NewGCS(client, cfg.GCSBucket, logger), func() { _ = client.Close() }, nil
	default:
		local, err := blobstore.NewLocal(cfg.BlobDir)
		if err != nil {
			return nil, nil, err
		}
		return local, func() {}, nil
	}
}

func openTranslator(ctx context.Context, cfg *config.Config) (translator.Translator, func(), error) {
	switch cfg.TranslatorProvider {
	case "vertex":
		v, err := translator.NewVertex(ctx, cfg.GCPProjectID, cfg.VertexRegion, cfg.VertexModel)
		if err != nil {
			return nil, nil, err
		}
		return v, func() { _ = v.Close() }, nil
	case "openai":
		return translator.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel), func() {}, nil
	default:
		return translator.Unavailable{}, func() {}, nil
	}
}
