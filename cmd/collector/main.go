package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/sourcegraph/conc"

	"github.com/riskibarqy/fpl-collector/internal/app"
	"github.com/riskibarqy/fpl-collector/internal/config"
	"github.com/riskibarqy/fpl-collector/internal/observability"
	"github.com/riskibarqy/fpl-collector/internal/platform/logging"
	"github.com/riskibarqy/fpl-collector/internal/usecase"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)

	shutdownUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}
	stopPyroscope, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}
	pprofSrv, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		logger.Error("start pprof server", "error", err)
		os.Exit(1)
	}

	service, closeStore, err := app.NewCollector(cfg, logger)
	if err != nil {
		logger.Error("build collector", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	exitCode := run(ctx, service, os.Args[1], os.Args[2:], logger)

	stop()

	var shutdown conc.WaitGroup
	shutdown.Go(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownUptrace(shutdownCtx); err != nil {
			logger.Warn("uptrace shutdown failed", "error", err)
		}
	})
	shutdown.Go(func() {
		if err := stopPyroscope(); err != nil {
			logger.Warn("pyroscope stop failed", "error", err)
		}
	})
	shutdown.Go(func() {
		if err := observability.StopPprofServer(pprofSrv, logger, 5*time.Second); err != nil {
			logger.Warn("pprof stop failed", "error", err)
		}
	})
	shutdown.Go(func() {
		if err := closeStore(); err != nil {
			logger.Warn("close store failed", "error", err)
		}
	})
	shutdown.Wait()

	_ = logger.Sync()
	os.Exit(exitCode)
}

func run(ctx context.Context, service *usecase.CollectorService, command string, args []string, logger *logging.Logger) int {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "check":
		check := service.DetectChanges(ctx)
		out := map[string]any{"status": check.Status, "updates": check.Updates}
		if check.Err != nil {
			out["error"] = check.Err.Error()
		}
		return printJSON(out, logger)
	case "sync":
		result, err := service.SyncDatabase(ctx, args)
		if err != nil {
			logger.Error("sync failed", "error", err)
			return 1
		}
		return printJSON(result, logger)
	case "collect":
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "collect requires a league id argument")
			return 2
		}
		leagueID, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid league id %q\n", args[0])
			return 2
		}
		payload, err := service.ExportLeaguePlayerData(ctx, usecase.CollectLeagueInput{LeagueID: leagueID})
		if err != nil {
			logger.Error("collect failed", "league_id", leagueID, "error", err)
			return 1
		}
		fmt.Println(string(payload))
		return 0
	case "gameweek":
		current, err := service.RefreshCurrentGameweek(ctx)
		if err != nil {
			logger.Warn("refresh current gameweek failed", "error", err)
		}
		return printJSON(map[string]int{
			"current_gameweek":      current,
			"last_updated_gameweek": service.GetLastUpdatedGameweek(ctx),
		}, logger)
	case "runs":
		limit := 10
		if len(args) > 0 {
			parsed, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil || parsed <= 0 {
				fmt.Fprintf(os.Stderr, "invalid limit %q\n", args[0])
				return 2
			}
			limit = parsed
		}
		runs, err := service.RecentRuns(ctx, limit)
		if err != nil {
			logger.Error("list sync runs failed", "error", err)
			return 1
		}
		return printJSON(runs, logger)
	default:
		printUsage()
		return 2
	}
}

func printJSON(value any, logger *logging.Logger) int {
	encoded, err := sonic.MarshalIndent(value, "", "  ")
	if err != nil {
		logger.Error("encode output", "error", err)
		return 1
	}
	fmt.Println(string(encoded))
	return 0
}

func printUsage() {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "usage: %s <check|sync|collect|gameweek|runs> [args]\n", name)
	fmt.Fprintln(os.Stderr, "examples:")
	fmt.Fprintf(os.Stderr, "  %s check\n", name)
	fmt.Fprintf(os.Stderr, "  %s sync game_weeks football_players\n", name)
	fmt.Fprintf(os.Stderr, "  %s collect 314159\n", name)
	fmt.Fprintf(os.Stderr, "  %s gameweek\n", name)
	fmt.Fprintf(os.Stderr, "  %s runs 5\n", name)
}
