package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/config"
	"github.com/renthportal/renthportal-sub001/internal/constants"

	"github.com/hibiken/asynq"
)

// Client 队列客户端封装，未启用时所有 Enqueue 为空操作
type Client struct {
	client *asynq.Client
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) *Client {
	if cfg == nil || !cfg.Enabled {
		return &Client{}
	}
	return &Client{client: asynq.NewClient(buildRedisOpt(cfg))}
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

func (c *Client) enqueue(task *asynq.Task, err error, opts ...asynq.Option) error {
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, opts...)
	return err
}

// EnqueueAssetSync 推送资产同步补偿，带退避重试
func (c *Client) EnqueueAssetSync(payload AssetSyncPayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewAssetSyncTask(payload)
	err = c.enqueue(task, err,
		asynq.Queue(constants.QueueCritical),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(8),
		asynq.TaskID(fmt.Sprintf("asset-sync-%d", payload.JobID)),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// 同一任务已在队列中
		return nil
	}
	return err
}

// EnqueueAssetSyncSweep 推送批量扫描任务，同一时间只保留一个
func (c *Client) EnqueueAssetSyncSweep() error {
	if !c.Enabled() {
		return nil
	}
	return c.enqueue(NewAssetSyncSweepTask(), nil,
		asynq.Queue(constants.QueueDefault),
		asynq.Unique(time.Minute),
		asynq.MaxRetry(0),
	)
}

// EnqueueUploadCleanup 推送孤立上传清理
func (c *Client) EnqueueUploadCleanup(payload UploadCleanupPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewUploadCleanupTask(payload)
	return c.enqueue(task, err, asynq.Queue(constants.QueueLow), asynq.MaxRetry(5))
}

// EnqueueAuditRecord 推送审计日志写入
func (c *Client) EnqueueAuditRecord(payload AuditRecordPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewAuditRecordTask(payload)
	return c.enqueue(task, err, asynq.Queue(constants.QueueLow), asynq.MaxRetry(3))
}

// BuildServerConfig 生成 worker 配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := 10
	queues := map[string]int{
		constants.QueueCritical: 6,
		constants.QueueDefault:  3,
		constants.QueueLow:      1,
	}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			queues = cfg.Queues
		}
	}
	return buildRedisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = fmt.Sprintf("%s:%d", host, port)
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
