package main

import (
	"encoding/json"
	"fmt"

	"forum_go/internal/core/config"
	"forum_go/internal/pkg/util"
	"forum_go/internal/repository"
	"forum_go/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var recountWorkers int

var recountCmd = &cobra.Command{
	Use:   "recount [forum-id]",
	Short: "Recompute forum aggregates from the content tree",
	Long: "Recount every forum, or the subtree rooted at forum-id.\n" +
		"Use after bulk imports or when cached counters look wrong.",
	Args: cobra.MaximumNArgs(1),
	RunE: runRecount,
}

func init() {
	recountCmd.Flags().IntVar(&recountWorkers, "workers", 0, "Forums recounted in parallel (default aggregate.recount_workers)")
	rootCmd.AddCommand(recountCmd)
}

func runRecount(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	var rootID int64
	if len(args) == 1 {
		id, err := util.ParseID(args[0])
		if err != nil {
			return err
		}
		rootID = id
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	// 服务端开启了 redis 时一并清掉 L2
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	workers := cfg.Aggregate.RecountWorkers
	if recountWorkers > 0 {
		workers = recountWorkers
	}

	nodes := repository.NewNodeRepository(db)
	meta := service.NewMetaService(repository.NewMetaRepository(db), redisClient, &cfg.Cache)
	fresh := service.NewFreshnessTracker(nodes, meta)
	engine := service.NewRecountEngine(nodes, meta, fresh, workers)

	ctx, cancel := newContext()
	defer cancel()

	var report *service.RecountReport
	if rootID == 0 {
		report, err = engine.RecountAll(ctx)
	} else {
		report, err = engine.RecountTree(ctx, rootID)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d forums failed", len(report.Failed), report.Forums)
	}
	return nil
}
