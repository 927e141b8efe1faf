package app

import (
	"errors"

	"github.com/renthportal/renthportal-sub001/internal/config"
	"github.com/renthportal/renthportal-sub001/internal/logger"
	"github.com/renthportal/renthportal-sub001/internal/provider"
	"github.com/renthportal/renthportal-sub001/internal/router"
	"github.com/renthportal/renthportal-sub001/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, *provider.Container, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}
	if mode != ModeAll && mode != ModeAPI && mode != ModeWorker {
		return nil, nil, errors.New("unknown mode: " + mode)
	}

	container := provider.NewContainer(cfg)

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine, cfg.Delivery.OperationTimeout()))
	}

	if mode == ModeAll || mode == ModeWorker {
		// 队列启用时消费异步任务；未启用时同步路径已就地执行，只保留定时补偿
		if cfg.Queue.Enabled {
			consumer := worker.NewConsumer(container)
			workerService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				return nil, nil, err
			}
			services = append(services, workerService)
		} else if mode == ModeWorker {
			logger.Warnw("app_worker_queue_disabled", "hint", "only the reconcile scheduler will run")
		}

		scheduler, err := worker.NewScheduler(cfg.Reconcile, container.AssetSyncService, container.QueueClient)
		if err != nil {
			return nil, nil, err
		}
		services = append(services, scheduler)
	}

	if len(services) == 0 {
		return nil, nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), container, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, container, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	defer container.Close()

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
