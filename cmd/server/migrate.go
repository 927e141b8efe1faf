package main

import (
	"fmt"

	"github.com/renthportal/renthportal-sub001/internal/logger"
	"github.com/renthportal/renthportal-sub001/internal/models"

	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadRuntime(); err != nil {
				return err
			}
			if err := models.AutoMigrate(); err != nil {
				return fmt.Errorf("数据库迁移失败: %w", err)
			}
			logger.Infow("migrate_done", "tables", len(models.AllModels()))
			return nil
		},
	}
}
