package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/supplyflow/pkg/actions"
	"github.com/dukex/supplyflow/pkg/approvals"
	"github.com/dukex/supplyflow/pkg/cmd"
	"github.com/dukex/supplyflow/pkg/eventbus"
	"github.com/dukex/supplyflow/pkg/lifecycle"
	"github.com/dukex/supplyflow/pkg/otelhelper"
	"github.com/dukex/supplyflow/pkg/persistence"
	"github.com/dukex/supplyflow/pkg/persistence/file"
	"github.com/dukex/supplyflow/pkg/rules"
	"github.com/dukex/supplyflow/pkg/services"
	"github.com/dukex/supplyflow/pkg/sla"
	"github.com/dukex/supplyflow/pkg/transitions"
	"github.com/dukex/supplyflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	DatabaseURL     string
	EventBus        string
	InstanceID      string
	RedisURL        string
	NATSURL         string
	TransitionsFile string
	RulesFile       string
	RuleCacheTTL    time.Duration
	MaxInFlight     int
	SLASchedule     string
	NotifyRate      float64
	OTEL            bool
}

// Server owns every long-running component of one engine instance.
type Server struct {
	cfg    Config
	logger *slog.Logger

	persistence persistence.Persistence
	bus         *eventbus.Bus
	engine      *rules.Engine
	scanner     *sla.Scanner
	watcher     *rules.Watcher
	relay       *eventbus.Relay
	ingest      *eventbus.Ingest
	publisher   message.Publisher
	app         *fiber.App

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	listening bool
	closers   []func(ctx context.Context) error
}

// NewServer wires the components. Nothing runs until Start.
func NewServer(ctx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	err := s.build(ctx)
	if err != nil {
		_ = s.close(ctx)

		return nil, err
	}

	return s, nil
}

func (s *Server) build(ctx context.Context) error {
	var engineOpts []rules.Option

	if s.cfg.OTEL {
		tracer, shutdown, err := otelhelper.NewTracer(ctx, "supplyflow")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		s.closers = append(s.closers, shutdown)
		engineOpts = append(engineOpts, rules.WithTracer(tracer))
	}

	tables, err := transitions.LoadFile(s.cfg.TransitionsFile)
	if err != nil {
		return err
	}

	p, err := cmd.NewPersistence(ctx, s.logger, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open persistence: %w", err)
	}

	s.persistence = p
	s.closers = append(s.closers, p.Close)

	s.bus = eventbus.New(s.logger)
	s.closers = append(s.closers, func(context.Context) error { return s.bus.Close() })

	orchestrator := lifecycle.New(tables, p, s.bus, s.logger)
	manager := approvals.NewManager(p, tables, s.bus, s.logger)

	deps := cmd.ActionDeps{Transitioner: orchestrator, Approvals: manager}

	if s.cfg.RedisURL != "" {
		opts, err := redis.ParseURL(s.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}

		client := redis.NewClient(opts)
		s.closers = append(s.closers, func(context.Context) error { return client.Close() })

		deps.Queue = client
		engineOpts = append(engineOpts, rules.WithDeduper(rules.NewRedisDeduper(client, rules.DefaultDedupeTTL)))
	}

	notifier, closeNotifier, err := cmd.NewNotifier(s.cfg.NATSURL, s.cfg.NotifyRate, s.logger)
	if err != nil {
		return fmt.Errorf("failed to connect notifier: %w", err)
	}

	s.closers = append(s.closers, func(context.Context) error { return closeNotifier() })
	deps.Notifier = notifier

	reg := cmd.NewRegistry(s.logger, deps)

	cache := rules.NewCache(p.RuleRepository(), s.cfg.RuleCacheTTL)

	if fp, ok := p.(*file.Persistence); ok {
		if err := os.MkdirAll(fp.RulesDir(), 0o755); err != nil {
			return fmt.Errorf("failed to create rules directory: %w", err)
		}

		s.watcher = rules.NewWatcher(fp.RulesDir(), cache, s.logger)
	}

	ruleService := services.NewRules(p.RuleRepository(), reg, cache, s.logger)

	if s.cfg.RulesFile != "" {
		if _, err := ruleService.SeedFromFile(ctx, s.cfg.RulesFile); err != nil {
			return err
		}
	}

	if s.cfg.MaxInFlight > 0 {
		engineOpts = append(engineOpts, rules.WithMaxInFlight(int64(s.cfg.MaxInFlight)))
	}

	s.engine = rules.NewEngine(s.bus, cache, actions.NewDispatcher(reg, s.logger), p.ExecutionLogRepository(), s.logger, engineOpts...)

	s.scanner, err = sla.NewScanner(manager, s.cfg.SLASchedule, s.logger)
	if err != nil {
		return err
	}

	pub, sub, err := cmd.NewBridgeChannel(s.cfg.EventBus, s.cfg.InstanceID, s.logger)
	if err != nil {
		return err
	}

	if pub != nil {
		s.publisher = pub
		s.relay = eventbus.NewRelay(s.bus, pub, s.cfg.InstanceID, s.logger)
		s.ingest = eventbus.NewIngest(s.bus, sub, s.cfg.InstanceID, s.logger)
		s.closers = append(s.closers, func(context.Context) error { return closeBridge(pub, sub) })
	}

	handlers := web.NewAPIHandlers(orchestrator, manager, ruleService, p, s.bus, reg,
		validator.New(validator.WithRequiredStructEnabled()))

	s.app = newFiberApp(handlers)

	return nil
}

func newFiberApp(handlers *web.APIHandlers) *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("supplyflow")
	})

	web.Register(app, handlers)

	return app
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Bus() *eventbus.Bus {
	return s.bus
}

// Start launches the background components: rule engine, event bridge, rules
// watcher and SLA scanner.
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.engine.Start()

	if s.relay != nil {
		s.relay.Start()
		s.goRun(ctx, "event ingest", s.ingest.Run)
	}

	if s.watcher != nil {
		s.goRun(ctx, "rules watcher", s.watcher.Run)
	}

	return s.scanner.Start(ctx)
}

func (s *Server) goRun(ctx context.Context, name string, run func(context.Context) error) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		if err := run(ctx); err != nil {
			s.logger.ErrorContext(ctx, name+" stopped", "error", err)
		}
	}()
}

// Run starts everything, serves HTTP on port and shuts down when ctx is done.
func (s *Server) Run(ctx context.Context, port int) error {
	err := s.Start(ctx)
	if err != nil {
		_ = s.Shutdown(context.Background())

		return err
	}

	listenErr := make(chan error, 1)
	s.listening = true

	go func() {
		listenErr <- s.app.Listen(":" + strconv.Itoa(port))
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down supplyflow")
	case err = <-listenErr:
		s.logger.Error("API server stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return errors.Join(err, s.Shutdown(shutdownCtx))
}

// Shutdown stops intake first, then drains the rule engine before closing
// the transport and storage it writes to.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.listening {
		errs = append(errs, s.app.ShutdownWithContext(ctx))
	}

	if s.scanner != nil {
		s.scanner.Stop()
	}

	if s.relay != nil {
		s.relay.Stop()
	}

	if s.cancel != nil {
		s.cancel()
	}

	s.wg.Wait()

	if s.engine != nil {
		s.engine.Stop()
	}

	errs = append(errs, s.close(ctx))

	return errors.Join(errs...)
}

// close runs the closers in reverse order of registration.
func (s *Server) close(ctx context.Context) error {
	var errs []error

	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i](ctx))
	}

	s.closers = nil

	return errors.Join(errs...)
}

func closeBridge(pub message.Publisher, sub message.Subscriber) error {
	err := pub.Close()

	if closer, ok := sub.(interface{ Close() error }); ok && any(sub) != any(pub) {
		err = errors.Join(err, closer.Close())
	}

	return err
}
