package router

import (
	"fmt"
	"strings"

	"github.com/payguard-next/internal/cache"
	"github.com/payguard-next/internal/config"
	"github.com/payguard-next/internal/constants"
	"github.com/payguard-next/internal/http/handlers"
	"github.com/payguard-next/internal/http/response"
	"github.com/payguard-next/internal/logger"
	"github.com/payguard-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	handler := handlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	redisClient := cache.Client()
	initiateRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:initiate", redisPrefix),
		WindowSeconds: cfg.RateLimit.WindowSeconds,
		MaxRequests:   cfg.RateLimit.MaxRequests,
		Message:       "too many payment requests",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		payments := apiV1.Group("/payments")
		{
			payments.POST("", RateLimitMiddleware(redisClient, initiateRule, KeyByIPAndJSONField("from_account_id")), handler.InitiatePayment)
			payments.GET("", handler.ListPayments)
			payments.GET("/:id", handler.GetPayment)
			payments.POST("/:id/confirm", handler.ConfirmPayment)
			payments.POST("/:id/process", handler.ProcessPayment)
			payments.POST("/:id/cancel", handler.CancelPayment)
			payments.POST("/:id/reverse", handler.ReversePayment)
			payments.POST("/:id/token", handler.IssuePaymentToken)
		}

		// 管理接口
		admin := apiV1.Group("/admin")
		{
			admin.POST("/rules", handler.CreateRule)
			admin.GET("/rules", handler.ListRules)
			admin.GET("/rules/:id", handler.GetRule)
			admin.PUT("/rules/:id", handler.UpdateRule)
			admin.DELETE("/rules/:id", handler.DeleteRule)

			admin.POST("/blacklist", handler.FlagAccount)
			admin.DELETE("/blacklist", handler.UnflagAccount)
			admin.GET("/blacklist", handler.ListBlacklist)
			admin.GET("/blacklist/:account_id", handler.CheckBlacklist)
		}
	}

	return r
}
