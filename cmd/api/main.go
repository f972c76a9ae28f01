package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "backoffice/api/swagger" // swagger docs
	"backoffice/internal/config"
	"backoffice/internal/database"
	"backoffice/internal/handler"
	"backoffice/internal/logger"
	"backoffice/internal/mailer"
	"backoffice/internal/middleware"
	"backoffice/internal/policy"
	"backoffice/internal/repository"
	"backoffice/internal/scheduler"
	"backoffice/internal/service"
	"backoffice/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Back-office Administration API
// @version         1.0
// @description     Roles, users, association types, stakeholders and dynamic forms for the back-office dashboard.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	envFile := pflag.String("env-file", "configs/.env", "path of the .env file to load")
	migrateOnly := pflag.Bool("migrate-only", false, "migrate the schema and exit")
	seed := pflag.Bool("seed", false, "seed permissions, built-in roles, form inputs and the super admin")
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		// the logger is not configured yet
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "backoffice-api")
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.NewConnection(cfg.Database.DSN(), log)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}
	if *migrateOnly {
		log.Info("Schema migrated")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)

	// Mail outbox
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable, account mails will not be queued until it recovers", zap.Error(err))
	}
	mailQueue := mailer.NewQueue(redisClient, cfg.Mail.Queue)
	smtp := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		User:     cfg.Mail.User,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
	go mailer.NewWorker(mailQueue, smtp, log).Run(ctx)

	var breach service.BreachChecker
	if cfg.Pwned.Enabled {
		breach = service.NewPwnedClient(cfg.Pwned.URL)
	}

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	roleRepo := repository.NewRoleRepository(db)
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	associationRepo := repository.NewAssociationTypeRepository(db)
	stakeholderRepo := repository.NewStakeholderRepository(db)
	formRepo := repository.NewFormRepository(db)

	permCache := middleware.NewPermissionCache(roleRepo, cfg.PermissionCacheTTL)

	roleService := service.NewRoleService(roleRepo, auditRepo, txManager, permCache, wsHub, log)
	userService := service.NewUserService(userRepo, roleRepo, profileRepo, auditRepo, txManager, mailQueue, breach,
		service.TokenConfig{
			Secret:     []byte(cfg.JWT.Secret),
			AccessTTL:  cfg.JWT.AccessTTL,
			RefreshTTL: cfg.JWT.RefreshTTL,
		}, log)
	associationService := service.NewAssociationTypeService(associationRepo, auditRepo, txManager, log)
	stakeholderService := service.NewStakeholderService(stakeholderRepo, profileRepo, auditRepo, txManager, breach, log)
	formService := service.NewFormService(formRepo, auditRepo, txManager, log)
	auditService := service.NewAuditService(auditRepo)

	if *seed {
		if err := roleService.Seed(ctx); err != nil {
			log.Fatal("Failed to seed roles", zap.Error(err))
		}
		if err := formService.SeedInputs(ctx); err != nil {
			log.Fatal("Failed to seed form inputs", zap.Error(err))
		}
		if err := userService.EnsureSuperAdmin(ctx, cfg.Seed.SuperAdminEmail, cfg.Seed.SuperAdminPassword); err != nil {
			log.Fatal("Failed to seed super admin", zap.Error(err))
		}
		log.Info("Seed finished")
	}

	jobs, err := scheduler.New(scheduler.Config{
		AssociationExpiry: cfg.AssociationExpiryCron,
		TokenPurge:        cfg.TokenPurgeCron,
	}, associationService, userService, log)
	if err != nil {
		log.Fatal("Failed to configure scheduler", zap.Error(err))
	}
	jobs.Start()

	auth := middleware.NewAuth(middleware.AuthConfig{
		Secret:        []byte(cfg.JWT.Secret),
		SecureCookies: cfg.HTTP.SecureCookies,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
	}, userService, permCache, log)
	gate := policy.NewGate()

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, auth, gate, log)
	roleHandler := handler.NewRoleHandler(roleService, gate, log)
	associationHandler := handler.NewAssociationTypeHandler(associationService, gate, log)
	stakeholderHandler := handler.NewStakeholderHandler(stakeholderService, gate, log)
	formHandler := handler.NewFormHandler(formService, gate, log)
	auditHandler := handler.NewAuditHandler(auditService, gate, log)

	// Set up Gin Router
	gin.SetMode(cfg.HTTP.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(log), gin.Recovery())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, auth.Secret())
	})

	// API Routing
	api := router.Group("/api")
	userHandler.RegisterPublicRoutes(api)

	protected := api.Group("")
	protected.Use(auth.RequireAuth())
	userHandler.RegisterRoutes(protected)
	roleHandler.RegisterRoutes(protected)
	associationHandler.RegisterRoutes(protected)
	stakeholderHandler.RegisterRoutes(protected)
	formHandler.RegisterRoutes(protected)
	auditHandler.RegisterRoutes(protected)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
	jobs.Stop(shutdownCtx)
}
