package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"betexec/internal/controls"
	"betexec/internal/domain"
	"betexec/internal/engine"
	"betexec/internal/event"
	"betexec/internal/execution"
	"betexec/internal/infra"
	"betexec/internal/infra/redispub"
	"betexec/internal/market"
	"betexec/internal/process"
	"betexec/internal/service"
	"betexec/internal/strategy"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Log     *slog.Logger
	Metrics *infra.Metrics

	Markets    *market.Markets
	Clients    *execution.Clients
	Registry   *strategy.Registry
	Strategies *strategy.Strategies
	Pipeline   *controls.Pipeline
	Sink       *event.ChannelSink
	Router     *engine.Router
	Middleware *market.SimulatedMiddleware
	Reconciler *process.Reconciler
	Books      *process.BookProcessor
	Processor  *engine.Processor
	Orders     *service.OrderService

	venueClients []domain.VenueClient
	redis        *redis.Client
	publisher    *redispub.Publisher
	wg           sync.WaitGroup
}

// NewBootstrap creates a new Bootstrap instance. venueClients are the live
// venue connections, matched to config clients by name.
func NewBootstrap(venueClients ...domain.VenueClient) *Bootstrap {
	return &Bootstrap{
		Registry:     strategy.NewRegistry(),
		venueClients: venueClients,
	}
}

// Initialize loads the configuration at path and wires the execution core.
func (b *Bootstrap) Initialize(path string) error {
	cfg, err := infra.LoadConfig(path)
	if err != nil {
		return err // Let main handle the error
	}
	return b.InitializeWith(cfg)
}

// InitializeWith wires the execution core from an already parsed config.
func (b *Bootstrap) InitializeWith(cfg *infra.Config) error {
	b.Config = cfg

	// 1. Logger & metrics
	if b.Log == nil {
		b.Log = infra.NewLogger(cfg)
	}
	slog.SetDefault(b.Log)
	b.Log.Info("🚀 Bootstrapping betexec...",
		slog.String("version", cfg.App.Version), slog.Bool("simulated", cfg.Execution.Simulated))
	b.Metrics = infra.NewMetrics()
	event.Warmup()

	// 2. Clients
	b.Markets = market.NewMarkets()
	if err := b.initClients(); err != nil {
		return err
	}

	// 3. Strategies
	b.Strategies = strategy.NewStrategies()
	for _, sc := range cfg.Strategies {
		st, err := b.Registry.New(sc)
		if err != nil {
			return fmt.Errorf("strategy %s: %w", sc.Name, err)
		}
		if err := b.Strategies.Add(st); err != nil {
			return err
		}
	}
	b.Log.Info("✅ Strategies loaded", slog.Int("count", len(cfg.Strategies)))

	// 4. Controls
	b.Pipeline = controls.NewPipeline(
		controls.NewOrderValidation(b.Clients, b.Log, b.Metrics),
		controls.NewMarketValidation(b.Markets, b.Log, b.Metrics),
		controls.NewStrategyExposure(b.Markets, b.Log, b.Metrics),
	)

	// 5. Control event sink
	b.Sink = event.NewChannelSink(cfg.Controls.SinkBuffer, b.Metrics.IncEventDropped)
	if addr := cfg.Controls.Redis.Addr; addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Controls.Redis.Password,
			DB:       cfg.Controls.Redis.DB,
		})
		b.publisher = redispub.NewPublisher(b.redis, cfg.Controls.Redis.Channel)
		b.Log.Info("✅ Control events published to Redis", slog.String("addr", addr))
	}

	// 6. Execution
	if err := b.initRouter(); err != nil {
		return err
	}

	// 7. Market data & reconciliation
	b.Middleware = market.NewSimulatedMiddleware(market.TradedMatcher{},
		market.WithLogger(b.Log),
		market.WithFillFunc(func(*domain.Order, decimal.Decimal) { b.Metrics.IncSimulatedFill() }),
	)
	b.Reconciler = process.NewReconciler(b.Markets, b.Strategies, b.Clients, b.Sink, b.Log, b.Metrics)
	b.Books = process.NewBookProcessor(b.Markets, b.Middleware, b.Strategies, b.Metrics, b.Log)
	b.Processor = engine.NewProcessor(cfg.Execution.InboxSize, b.Books, b.Reconciler, b.Log)

	// 8. Strategy-facing order service
	b.Orders = service.NewOrderService(b.Markets, b.Clients, b.Pipeline, b.Router, b.Log)
	return nil
}

func (b *Bootstrap) initClients() error {
	live := make(map[string]domain.VenueClient, len(b.venueClients))
	for _, c := range b.venueClients {
		live[c.Name()] = c
	}

	b.Clients = execution.NewClients()
	for _, cc := range b.Config.Clients {
		client, ok := live[cc.Name]
		exchange := domain.ExchangeType(cc.Exchange)
		if b.Config.Execution.Simulated || exchange == domain.ExchangeSimulated {
			client = execution.NewSimulatedClient(cc.Name, domain.ExchangeSimulated, cc.Limits())
		} else if !ok {
			return fmt.Errorf("client %s: no venue connection for %s: %w", cc.Name, exchange, domain.ErrUnknownClient)
		}
		if err := b.Clients.Add(client); err != nil {
			return err
		}
		b.Log.Info("✅ Client registered",
			slog.String("client", client.Name()), slog.String("exchange", string(client.Exchange())))
	}
	return nil
}

func (b *Bootstrap) initRouter() error {
	deps := execution.Deps{Markets: b.Markets, Sink: b.Sink, Log: b.Log, Metrics: b.Metrics}
	b.Router = engine.NewRouter()
	for _, client := range b.Clients.All() {
		exchange := client.Exchange()
		if _, ok := b.Router.Get(exchange); ok {
			continue
		}

		var exec domain.Execution
		if exchange == domain.ExchangeSimulated {
			exec = execution.NewSimulatedExecution(deps)
		} else {
			exec = execution.NewVenueExecution(exchange, deps)
		}
		dump := filepath.Join(b.Config.Logging.Dir, fmt.Sprintf("sequencer_%s_dump.json", exchange))
		if err := b.Router.Add(engine.NewSequencer(exchange, exec, b.Config.Execution.InboxSize, b.Log, dump)); err != nil {
			return err
		}
	}
	return nil
}

// Start runs the sequencers, the data processor, the control event sink
// and, when enabled, the metrics server. It returns immediately.
func (b *Bootstrap) Start(ctx context.Context) {
	b.Router.Start(ctx)
	b.Log.InfoContext(ctx, "✅ Sequencers started")

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		if err := b.Processor.Run(ctx); err != nil {
			b.Log.Log(ctx, infra.LevelCritical, "Processor stopped", slog.Any("error", err))
		}
	}()
	go func() {
		defer b.wg.Done()
		b.Sink.Run(ctx, b.controlHandler())
	}()

	if b.Config.Metrics.Enabled {
		b.serveMetrics(ctx)
	}
}

func (b *Bootstrap) controlHandler() event.Handler {
	if b.publisher != nil {
		return b.publisher.PublishOrderEvent
	}
	return func(ctx context.Context, ev *event.OrderEvent) error {
		b.Log.DebugContext(ctx, "Control event",
			slog.String("kind", string(ev.Kind)),
			slog.String("order_id", ev.OrderID),
			slog.String("strategy", ev.Strategy),
		)
		return nil
	}
}

func (b *Bootstrap) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", b.Metrics.Handler())
	srv := &http.Server{Addr: b.Config.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		b.Log.Info("📈 Metrics server started", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.Log.Error("Metrics server failed", slog.Any("error", err))
		}
	}()
	go func() {
		defer b.wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// Wait blocks until every worker started by Start has stopped, then
// releases external connections.
func (b *Bootstrap) Wait() error {
	b.Router.Wait()
	b.wg.Wait()
	if b.redis != nil {
		return b.redis.Close()
	}
	return nil
}
