package router

import (
	"fmt"
	"strings"
	"sync"

	"github.com/renthportal/renthportal-sub001/internal/cache"
	"github.com/renthportal/renthportal-sub001/internal/config"
	adminhandlers "github.com/renthportal/renthportal-sub001/internal/http/handlers/admin"
	driverhandlers "github.com/renthportal/renthportal-sub001/internal/http/handlers/driver"
	publichandlers "github.com/renthportal/renthportal-sub001/internal/http/handlers/public"
	"github.com/renthportal/renthportal-sub001/internal/logger"
	"github.com/renthportal/renthportal-sub001/internal/provider"

	"github.com/gin-gonic/gin"
)

var registerValidatorsOnce sync.Once

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	registerValidatorsOnce.Do(RegisterValidators)
	r := gin.New()

	// 初始化 Handler（按登录/后台/司机端分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	driverHandler := driverhandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "renth"
	}
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
	}
	uploadLimiter := NewUserRateLimiter(cfg.Security.UploadRateLimit)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	r.MaxMultipartMemory = multipartMemory(cfg.Upload)

	// 本地存储的照片与签名
	if strings.EqualFold(strings.TrimSpace(cfg.Storage.Driver), "local") || strings.TrimSpace(cfg.Storage.Driver) == "" {
		r.Static(staticMountPath(cfg.Storage.PublicBaseURL), cfg.Storage.LocalDir)
	}

	apiV1 := r.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.POST("/login", RateLimitMiddleware(cache.Client(), loginRule, KeyByIPAndJSONField("username")), publicHandler.Login)
			auth.POST("/refresh", publicHandler.Refresh)
		}

		session := apiV1.Group("")
		session.Use(AuthMiddleware(c.AuthService))
		{
			session.GET("/me", publicHandler.Me)
			session.POST("/auth/logout", publicHandler.Logout)
		}

		admin := apiV1.Group("/admin")
		admin.Use(AuthMiddleware(c.AuthService), RBACMiddleware(c.AuthzService))
		{
			admin.POST("/proposals/:id/transfer", adminHandler.TransferProposal)

			admin.GET("/delivery-items", adminHandler.GetDeliveryItems)
			admin.GET("/delivery-items/export", adminHandler.ExportCompletions)
			admin.GET("/delivery-items/:id", adminHandler.GetDeliveryItem)
			admin.POST("/delivery-items/:id/assign-delivery", adminHandler.AssignDelivery)
			admin.POST("/delivery-items/:id/plan-return", adminHandler.PlanReturn)

			admin.GET("/drivers", adminHandler.GetDrivers)
			admin.GET("/assets", adminHandler.GetAssets)
			admin.PATCH("/assets/:id/status", adminHandler.UpdateAssetStatus)

			admin.GET("/asset-sync-jobs", adminHandler.GetAssetSyncJobs)
			admin.POST("/asset-sync-jobs/:id/retry", adminHandler.RetryAssetSyncJob)
			admin.GET("/audit-logs", adminHandler.GetAuditLogs)

			admin.GET("/authz/roles", adminHandler.ListAuthzRoles)
			admin.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
			admin.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
			admin.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
		}

		driver := apiV1.Group("/driver")
		driver.Use(AuthMiddleware(c.AuthService), RBACMiddleware(c.AuthzService))
		{
			driver.GET("/tasks", driverHandler.GetTaskBoard)
			driver.GET("/tasks/:id", driverHandler.GetTask)
			driver.POST("/tasks/:id/:direction/start", driverHandler.StartTask)
			driver.POST("/tasks/:id/:direction/complete", uploadLimiter.Middleware(), driverHandler.CompleteTask)
			driver.GET("/tasks/:id/:direction/record", driverHandler.GetCompletionRecord)
		}
	}

	return r
}

func staticMountPath(publicBaseURL string) string {
	base := strings.TrimSpace(publicBaseURL)
	if base == "" || strings.Contains(base, "://") {
		return "/uploads"
	}
	return "/" + strings.Trim(base, "/")
}

func multipartMemory(cfg config.UploadConfig) int64 {
	photos := int64(cfg.MaxPhotos)
	if photos <= 0 || cfg.MaxSize <= 0 {
		return 32 << 20
	}
	// 照片 + 签名，超出部分写临时文件
	return cfg.MaxSize * (photos + 1)
}
