package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"innkeeper/internal/infra/config"
	"innkeeper/internal/infra/obs"
)

type ARIHTTP interface {
	IngestBatch(c *gin.Context)
}

type PricingHTTP interface {
	Quote(c *gin.Context)
}

type PromoHTTP interface {
	Create(c *gin.Context)
	Validate(c *gin.Context)
	Apply(c *gin.Context)
	CancelUsage(c *gin.Context)
}

type TaxHTTP interface {
	CreateRule(c *gin.Context)
	CreateGroup(c *gin.Context)
	GroupRules(c *gin.Context)
}

type ReservationHTTP interface {
	Create(c *gin.Context)
}

type ProviderHTTP interface {
	Assign(c *gin.Context)
}

type MediaHTTP interface {
	Upload(c *gin.Context)
}

type Handlers struct {
	ARI         ARIHTTP
	Pricing     PricingHTTP
	Promo       PromoHTTP
	Tax         TaxHTTP
	Reservation ReservationHTTP
	Provider    ProviderHTTP
	Media       MediaHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.ARI != nil {
		api.POST("/ari/batches", h.ARI.IngestBatch)
	}
	if h.Pricing != nil {
		api.POST("/quotes", h.Pricing.Quote)
	}
	if h.Promo != nil {
		promoGroup := api.Group("/promocodes")
		promoGroup.POST("", h.Promo.Create)
		promoGroup.POST("/validate", h.Promo.Validate)
		promoGroup.POST("/apply", h.Promo.Apply)
		promoGroup.POST("/usages/:bookingID/cancel", h.Promo.CancelUsage)
	}
	if h.Tax != nil {
		taxGroup := api.Group("/taxes")
		taxGroup.POST("/rules", h.Tax.CreateRule)
		taxGroup.POST("/groups", h.Tax.CreateGroup)
		taxGroup.GET("/groups/:id/rules", h.Tax.GroupRules)
	}
	if h.Reservation != nil {
		api.POST("/reservations", h.Reservation.Create)
	}
	if h.Provider != nil {
		api.PUT("/hotels/:code/provider", h.Provider.Assign)
	}
	if h.Media != nil {
		api.POST("/media", h.Media.Upload)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
