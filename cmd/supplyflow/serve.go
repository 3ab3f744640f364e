package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/supplyflow/pkg/log"
	"github.com/dukex/supplyflow/pkg/rules"
	"github.com/dukex/supplyflow/pkg/sla"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
)

const (
	defaultPort         = 9091
	defaultRuleCacheTTL = 30 * time.Second
	shutdownTimeout     = 15 * time.Second
)

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run the API, rule engine and SLA scanner",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Persistence URL, file://<dir> or postgres://...",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Cross-instance event transport (none, gochannel, kafka)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "instance-id",
				Usage:   "Identifies this instance on the event transport (generated if empty)",
				Sources: cli.EnvVars("INSTANCE_ID"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL; enables the enqueue action and rule deduplication",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS URL; publishes notifications to NATS",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "transitions-file",
				Usage:   "YAML file overriding the built-in transition tables",
				Sources: cli.EnvVars("TRANSITIONS_FILE"),
			},
			&cli.StringFlag{
				Name:    "rules-file",
				Usage:   "YAML file of rules seeded at startup",
				Sources: cli.EnvVars("RULES_FILE"),
			},
			&cli.DurationFlag{
				Name:    "rule-cache-ttl",
				Usage:   "How long active rules are cached",
				Value:   defaultRuleCacheTTL,
				Sources: cli.EnvVars("RULE_CACHE_TTL"),
			},
			&cli.IntFlag{
				Name:    "max-in-flight",
				Usage:   "Events processed concurrently by the rule engine",
				Value:   rules.DefaultMaxInFlight,
				Sources: cli.EnvVars("MAX_IN_FLIGHT"),
			},
			&cli.StringFlag{
				Name:    "sla-schedule",
				Usage:   "Cron schedule of the approval SLA scan",
				Value:   sla.DefaultSchedule,
				Sources: cli.EnvVars("SLA_SCHEDULE"),
			},
			&cli.FloatFlag{
				Name:    "notify-rate",
				Usage:   "Notifications per second, 0 for unlimited",
				Sources: cli.EnvVars("NOTIFY_RATE"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("supplyflow")

			instanceID := command.String("instance-id")
			if instanceID == "" {
				instanceID = uuid.NewString()
			}

			cfg := Config{
				DatabaseURL:     command.String("database-url"),
				EventBus:        command.String("event-bus"),
				InstanceID:      instanceID,
				RedisURL:        command.String("redis-url"),
				NATSURL:         command.String("nats-url"),
				TransitionsFile: command.String("transitions-file"),
				RulesFile:       command.String("rules-file"),
				RuleCacheTTL:    command.Duration("rule-cache-ttl"),
				MaxInFlight:     command.Int("max-in-flight"),
				SLASchedule:     command.String("sla-schedule"),
				NotifyRate:      command.Float("notify-rate"),
				OTEL:            command.Bool("otel"),
			}

			logger.InfoContext(ctx, "Initializing supplyflow", "instance_id", instanceID, "event_bus", cfg.EventBus)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server, err := NewServer(ctx, cfg, logger)
			if err != nil {
				return err
			}

			return server.Run(ctx, command.Int("port"))
		},
	}
}
