package worker

import (
	"context"
	"errors"
	"strings"

	"github.com/renthportal/renthportal-sub001/internal/config"
	"github.com/renthportal/renthportal-sub001/internal/logger"
	"github.com/renthportal/renthportal-sub001/internal/queue"
	"github.com/renthportal/renthportal-sub001/internal/service"

	"github.com/robfig/cron/v3"
)

const defaultReconcileCron = "*/5 * * * *"

// Scheduler 定时补偿未完成的资产状态同步
// 队列启用时只投递扫描任务，由 worker 执行；否则就地执行。
type Scheduler struct {
	cron        *cron.Cron
	spec        string
	assetSync   *service.AssetSyncService
	queueClient *queue.Client
	runCtx      context.Context
}

// NewScheduler 创建定时器
func NewScheduler(cfg config.ReconcileConfig, assetSync *service.AssetSyncService, queueClient *queue.Client) (*Scheduler, error) {
	if assetSync == nil {
		return nil, errors.New("asset sync service is nil")
	}
	spec := strings.TrimSpace(cfg.Cron)
	if spec == "" {
		spec = defaultReconcileCron
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, err
	}
	return &Scheduler{
		cron:        cron.New(),
		spec:        spec,
		assetSync:   assetSync,
		queueClient: queueClient,
		runCtx:      context.Background(),
	}, nil
}

// Name 服务名称
func (s *Scheduler) Name() string {
	return "scheduler"
}

// Start 启动定时器，阻塞直到 ctx 结束
func (s *Scheduler) Start(ctx context.Context) error {
	s.runCtx = ctx
	if _, err := s.cron.AddFunc(s.spec, s.Tick); err != nil {
		return err
	}
	s.cron.Start()
	logger.Infow("scheduler_started", "spec", s.spec, "queue_enabled", s.queueClient.Enabled())
	<-ctx.Done()
	return nil
}

// Stop 停止定时器并等待运行中的任务结束
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Tick 执行一次补偿
func (s *Scheduler) Tick() {
	if s.queueClient.Enabled() {
		if err := s.queueClient.EnqueueAssetSyncSweep(); err != nil {
			logger.Warnw("scheduler_enqueue_sweep_failed", "error", err)
		}
		return
	}
	handled, err := s.assetSync.Sweep(s.runCtx)
	if err != nil {
		logger.Warnw("scheduler_sweep_failed", "handled", handled, "error", err)
		return
	}
	if handled > 0 {
		logger.Infow("scheduler_sweep_done", "handled", handled)
	}
}
