package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"agent-portal/apperrors"
	"agent-portal/cloud"
	"agent-portal/config"
	"agent-portal/controllers"
	"agent-portal/database"
	"agent-portal/integrations"
	"agent-portal/logger"
	"agent-portal/middleware"
	"agent-portal/repository"
	"agent-portal/routes"
	"agent-portal/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "agent-portal"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// AWS is only touched when one of its features is configured
	var awsCfg *sdkaws.Config
	if cfg.AWSSecretName != "" || cfg.EventsTopicARN != "" || cfg.CloudWatchEnabled {
		loaded, err := cloud.LoadAWSConfig(ctx)
		if err != nil {
			zapLogger.Fatal("Failed to load AWS config", zap.Error(err))
		}
		awsCfg = &loaded
	}

	if cfg.AWSSecretName != "" {
		raw, err := cloud.NewSecretsClient(*awsCfg).GetSecret(ctx, cfg.AWSSecretName)
		if err != nil {
			zapLogger.Fatal("Failed to load secrets", zap.String("secret", cfg.AWSSecretName), zap.Error(err))
		}
		if err := cfg.ApplySecrets(raw); err != nil {
			zapLogger.Fatal("Failed to apply secrets", zap.Error(err))
		}
	}
	if err := cfg.Validate(); err != nil {
		zapLogger.Fatal("Invalid configuration", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()
	store := database.NewStore(redisClient)

	users := repository.NewUserRepository(store)
	agents := repository.NewAgentRepository(store)
	leads := repository.NewLeadRepository(store)
	payments := repository.NewPaymentRepository(store)
	subs := repository.NewSubscriptionRepository(store)
	tokens := repository.NewTokenRepository(store)
	ledger := repository.NewEventLedger(store)

	workflows := integrations.NewN8NClient(cfg.N8NWebhookURL, zapLogger)
	crm := integrations.NewChatwootClient(cfg.ChatwootBaseURL, cfg.ChatwootAccountID, cfg.ChatwootAPIToken, cfg.ChatwootInboxID, zapLogger)
	messenger := integrations.NewBotSailorClient(cfg.BotSailorBaseURL, cfg.BotSailorAPIKey, zapLogger)
	sender := integrations.NewResendClient(cfg.ResendAPIKey, cfg.EmailFrom, zapLogger)

	var snsPublisher cloud.SNSPublisher
	if cfg.EventsTopicARN != "" {
		snsPublisher = cloud.NewSNSClient(*awsCfg)
	}
	events := services.NewEventPublisher(snsPublisher, cfg.EventsTopicARN, zapLogger)

	var metrics middleware.MetricRecorder
	if cfg.CloudWatchEnabled {
		metrics = cloud.NewMetricsClient(*awsCfg, cfg.CloudWatchNamespace, true)
	}

	var (
		gateway  services.PaymentGateway
		canceler services.SubscriptionCanceler
	)
	if cfg.BillingEnabled() {
		stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookKey)
		gateway, canceler = stripeSvc, stripeSvc
	} else {
		zapLogger.Warn("STRIPE_API_KEY not set, billing endpoints are disabled")
	}

	mailer, err := services.NewMailer(sender, cfg.FrontendURL, cfg.AdminEmail, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to load email templates", zap.Error(err))
	}
	tokenSvc := services.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	authSvc := services.NewAuthService(users, tokens, tokenSvc, mailer, events, cfg.IsAdminEmail, zapLogger)
	agentSvc := services.NewAgentService(agents, subs, users, workflows, canceler, mailer, events, zapLogger)
	if cfg.N8NWebhookURL == "" {
		zapLogger.Warn("N8N_WEBHOOK_URL not set, agents activate without provisioning callbacks")
		agentSvc.SetAutoActivate(true)
	}
	leadSvc := services.NewLeadService(leads, agents, users, crm, messenger, workflows, mailer, events, zapLogger)
	billingSvc := services.NewBillingService(gateway, users, agents, payments, subs, ledger, agentSvc, mailer, events, cfg.StripePriceIDs, cfg.Currency, zapLogger)
	dashboardSvc := services.NewDashboardService(users, agents, leads, subs, cfg.Currency)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(zapLogger),
		gin.Recovery(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.RateLimitMiddleware(middleware.NewRateLimiter(ctx, rate.Limit(20), 40, 10*time.Minute)),
		middleware.MetricsMiddleware(metrics, serviceName),
		apperrors.ErrorMiddleware(),
	)

	strict := middleware.NewRateLimiter(ctx, rate.Every(6*time.Second), 5, 10*time.Minute)
	routes.RegisterRoutes(router, routes.Handlers{
		Health:    controllers.NewHealthController(store, cfg.StripePriceIDs, cfg.Currency, zapLogger),
		Auth:      controllers.NewAuthController(authSvc, cfg.RefreshTokenTTL, cfg.IsProduction(), zapLogger),
		Agents:    controllers.NewAgentController(agentSvc, leadSvc, zapLogger),
		Leads:     controllers.NewLeadController(leadSvc, zapLogger),
		Billing:   controllers.NewBillingController(billingSvc, zapLogger),
		Webhooks:  controllers.NewWebhookController(agentSvc, leadSvc, cfg.N8NCallbackToken, cfg.ChatwootWebhookToken, zapLogger),
		Dashboard: controllers.NewDashboardController(dashboardSvc, zapLogger),
		Admin:     controllers.NewAdminController(authSvc, agentSvc, leadSvc, dashboardSvc, zapLogger),
	}, tokenSvc, strict)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("Agent portal API is running", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	zapLogger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Shutdown error", zap.Error(err))
		return
	}
	zapLogger.Info("Server shutdown complete.")
}
