package server

import (
	"context"
	"net/http"
	"time"

	"cryptopay/internal/auth"
	"cryptopay/internal/config"
	"cryptopay/internal/oxapay"
	"cryptopay/internal/payment"
	"cryptopay/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
}

func New(db *sqlx.DB, rdb *redis.Client, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())

	gatewayClient := oxapay.New(oxapay.Config{
		MerchantKey:     cfg.OxaPayMerchantKey,
		PayoutKey:       cfg.OxaPayPayoutKey,
		BaseURL:         cfg.OxaPayBaseURL,
		WebhookSecret:   cfg.OxaPayWebhookSecret,
		CallbackURL:     cfg.OxaPayWebhookURL,
		InvoiceLifetime: cfg.InvoiceLifetimeSecs,
	})

	userRepo := user.NewRepository(db)
	userHandler := user.NewHandler(userRepo, cfg.JWTSecret)

	paymentStore := payment.NewRepository(db)
	paymentService := payment.NewService(paymentStore, gatewayClient)
	paymentHandler := payment.NewHandler(paymentService, userRepo)

	dedupe := payment.NewDeduper(rdb, 10*time.Minute)
	webhookHandler := payment.NewWebhookHandler(paymentService, cfg.OxaPayWebhookSecret, dedupe)

	public := router.Group("/auth")
	public.Use(RateLimitMiddleware(5, 10))
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.Refresh)
	}

	// The gateway authenticates with the shared secret header, not a
	// bearer token.
	router.POST("/payments/webhook", webhookHandler.Handle)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)
		protected.POST("/payments/deposit", paymentHandler.CreateDeposit)
		protected.GET("/payments/status/:invoiceID", paymentHandler.CheckDepositStatus)
		protected.POST("/payments/withdraw", paymentHandler.CreateWithdrawal)
		protected.GET("/payments/withdraw/:transactionID", paymentHandler.CheckWithdrawalStatus)
		protected.GET("/payments/balance", paymentHandler.GetBalance)
		protected.GET("/payments/transactions", paymentHandler.ListTransactions)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
