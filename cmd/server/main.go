package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/renthportal/renthportal-sub001/internal/config"
	"github.com/renthportal/renthportal-sub001/internal/logger"
	"github.com/renthportal/renthportal-sub001/internal/models"

	"github.com/spf13/cobra"
)

// 构建信息，由 -ldflags 注入
var (
	Version = "dev"
	Commit  = "none"
)

var configFile string

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "renthportal",
		Short:         "RenthPortal 设备租赁交付与回收服务",
		Version:       fmt.Sprintf("%s (commit: %s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径，默认查找 ./config.yml")

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newSeedCommand())
	return cmd
}

// loadRuntime 加载配置、初始化日志与数据库
func loadRuntime() (*config.Config, error) {
	cfg := config.Load(configFile)
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, cfg.Server.Mode == "debug"); err != nil {
		return nil, fmt.Errorf("数据库初始化失败: %w", err)
	}
	return cfg, nil
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
