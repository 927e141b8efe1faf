package provider

import (
	"context"
	"io"

	"github.com/renthportal/renthportal-sub001/internal/authz"
	"github.com/renthportal/renthportal-sub001/internal/cache"
	"github.com/renthportal/renthportal-sub001/internal/config"
	"github.com/renthportal/renthportal-sub001/internal/logger"
	"github.com/renthportal/renthportal-sub001/internal/models"
	"github.com/renthportal/renthportal-sub001/internal/queue"
	"github.com/renthportal/renthportal-sub001/internal/repository"
	"github.com/renthportal/renthportal-sub001/internal/service"
	"github.com/renthportal/renthportal-sub001/internal/storage"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Storage     storage.ObjectStorage

	// Repositories
	UserRepo         repository.UserRepository
	AssetRepo        repository.AssetRepository
	ProposalRepo     repository.ProposalRepository
	DeliveryItemRepo repository.DeliveryItemRepository
	AssetSyncJobRepo repository.AssetSyncJobRepository
	AuditLogRepo     repository.AuditLogRepository

	// Services
	AuthzService          *authz.Service
	AuthService           *service.AuthService
	AuditService          *service.AuditService
	AssetService          *service.AssetService
	AssetSyncService      *service.AssetSyncService
	ProposalService       *service.ProposalService
	DeliveryService       *service.DeliveryService
	CompletionFormService *service.CompletionFormService
	ExportService         *service.ExportService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 队列未启用时返回空客户端，投递即为空操作
	queueClient := queue.NewClient(&cfg.Queue)

	store, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		logger.Errorw("provider_init_storage_failed", "driver", cfg.Storage.Driver, "error", err)
		panic(err)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Storage:     store,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.AssetRepo = repository.NewAssetRepository(db)
	c.ProposalRepo = repository.NewProposalRepository(db)
	c.DeliveryItemRepo = repository.NewDeliveryItemRepository(db)
	c.AssetSyncJobRepo = repository.NewAssetSyncJobRepository(db)
	c.AuditLogRepo = repository.NewAuditLogRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	cfg := c.Config
	c.AuthService = service.NewAuthService(&cfg.JWT, c.UserRepo)
	c.AuditService = service.NewAuditService(c.AuditLogRepo, c.QueueClient)
	c.AssetService = service.NewAssetService(c.AssetRepo, c.AuditService)
	c.AssetSyncService = service.NewAssetSyncService(
		c.AssetSyncJobRepo,
		c.AssetRepo,
		c.DeliveryItemRepo,
		c.AuditService,
		c.QueueClient,
		cfg.Reconcile.MaxAttempts,
		cfg.Reconcile.BatchSize,
	)
	c.ProposalService = service.NewProposalService(c.ProposalRepo, c.DeliveryItemRepo, c.AuditService)
	c.DeliveryService = service.NewDeliveryService(
		c.DeliveryItemRepo,
		c.AssetRepo,
		c.UserRepo,
		c.AssetSyncJobRepo,
		c.AssetSyncService,
		c.AuditService,
		cfg.Delivery.PersistRetryAttempts,
	)
	c.DeliveryService.SetGPSMaxDistance(cfg.Delivery.GPSMaxDistanceMeters)
	c.CompletionFormService = service.NewCompletionFormService(
		c.DeliveryService,
		c.Storage,
		c.QueueClient,
		storage.ImagePolicy{
			MaxSize:      cfg.Upload.MaxSize,
			AllowedTypes: cfg.Upload.AllowedTypes,
			MaxWidth:     cfg.Upload.MaxWidth,
			MaxHeight:    cfg.Upload.MaxHeight,
		},
		cfg.Upload.MaxPhotos,
		cfg.Delivery.OperationTimeout(),
	)
	c.ExportService = service.NewExportService(c.DeliveryItemRepo, cfg.Delivery.Location())
}

// Close 释放容器持有的外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if closer, ok := c.Storage.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warnw("provider_close_storage_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
