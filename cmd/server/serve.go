package main

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/renthportal/renthportal-sub001/internal/app"
	"github.com/renthportal/renthportal-sub001/internal/logger"
	"github.com/renthportal/renthportal-sub001/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 API / worker 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRuntime()
			if err != nil {
				return err
			}

			if isWeakSecret(cfg.JWT.SecretKey) {
				if cfg.Server.Mode == "release" {
					return errors.New("JWT secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
				}
				logger.Warnw("jwt_secret_weak", "hint", "configure a strong random secret before production")
			}

			if err := models.AutoMigrate(); err != nil {
				return fmt.Errorf("数据库迁移失败: %w", err)
			}

			// 初始化默认管理员账号
			adminUser := os.Getenv("RP_DEFAULT_ADMIN_USERNAME")
			adminPass := os.Getenv("RP_DEFAULT_ADMIN_PASSWORD")
			if cfg.Server.Mode == "release" && adminPass == "" {
				logger.Warnw("default_admin_skipped", "reason", "RP_DEFAULT_ADMIN_PASSWORD not set")
			} else if err := models.InitDefaultAdmin(adminUser, adminPass); err != nil {
				logger.Warnw("default_admin_init_failed", "error", err)
			}

			if cfg.Server.Mode == "release" {
				gin.SetMode(gin.ReleaseMode)
			}

			return app.Run(app.Options{
				Config:  cfg,
				Logger:  logger.S(),
				Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
				Mode:    mode,
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	return cmd
}
