// Package main runs the fitlog MCP server over stdio, for local MCP clients.
// The same tools are served by the main backend at /mcp over HTTP.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"time"

	"github.com/2beens/fitlog/internal/config"
	"github.com/2beens/fitlog/internal/db"
	"github.com/2beens/fitlog/internal/fitness/calendar"
	"github.com/2beens/fitlog/internal/fitness/exercises"
	fitnessmcp "github.com/2beens/fitlog/internal/fitness/mcp"
	"github.com/2beens/fitlog/internal/fitness/stats"
	"github.com/2beens/fitlog/internal/fitness/workouts"
	"github.com/2beens/fitlog/internal/telemetry/metrics"

	"github.com/go-redis/redis/v8"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	flag.Parse()

	// stdout carries the MCP protocol
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	cal, err := calendar.Load(cfg.Timezone)
	if err != nil {
		log.Fatalf("calendar: %v", err)
	}

	ctx := context.Background()
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBUser:         cfg.PostgresUser,
		DBPassword:     os.Getenv("FITLOG_POSTGRES_PASS"),
		TracingEnabled: false,
	})
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer dbPool.Close()

	metricsManager := metrics.NewManager("fitlog", "mcp_stdio", metrics.SetupPrometheus())
	exercisesRepo := exercises.NewRepo(dbPool)
	logsRepo := workouts.NewRepo(dbPool)

	// sets logged here must bump the generation the backend's stats cache is keyed by
	var (
		statsCache *stats.Cache
		setLogger  *workouts.SetLogger
	)
	if cfg.StatsCacheEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: os.Getenv("FITLOG_REDIS_PASS"),
		})
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Errorf("close redis client: %s", err)
			}
		}()
		statsCache = stats.NewCache(rdb, cfg.StatsCacheSizeMB, time.Duration(cfg.StatsCacheTTLSeconds)*time.Second)
		setLogger = workouts.NewSetLogger(logsRepo, exercisesRepo, statsCache, metricsManager)
	} else {
		setLogger = workouts.NewSetLogger(logsRepo, exercisesRepo, nil, metricsManager)
	}

	statsService := stats.NewService(logsRepo, statsCache, stats.Options{
		Calendar:        cal,
		SplitWindowDays: cfg.TrainingSplitWindowDays,
	}, metricsManager)

	server := fitnessmcp.NewServer(fitnessmcp.Deps{
		Schema:    fitnessmcp.NewPoolSchemaRepo(dbPool),
		Stats:     statsService,
		Sets:      setLogger,
		Exercises: exercisesRepo,
		Logs:      logsRepo,
		Location:  cal.Location(),
	})

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Errorf("mcp stdio session: %s", err)
	}
}
