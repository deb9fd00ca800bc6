package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"forum_go/internal/core/config"
	"forum_go/internal/core/database"
	"forum_go/internal/core/logger"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "forumctl",
	Short: "forum_go maintenance tool",
	Long:  "Schema migration and aggregate recount for a forum_go database",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(configPath); err != nil {
			return err
		}
		return logger.Init(&config.Get().Logging)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "Directory containing config.yaml")
}

func main() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// newContext Ctrl-C 取消正在进行的操作
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openDB 打开配置中的数据库
func openDB() (*sqlx.DB, error) {
	db, err := database.Open(&config.Get().Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}
