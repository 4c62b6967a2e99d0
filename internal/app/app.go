// Package app assembles the pipeline from configuration: the data
// gateway, the venue, the four stages, the director and its queue, the
// notification channels and the audit journal.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"

	"lia_trading/internal/bridge"
	"lia_trading/internal/broker"
	"lia_trading/internal/engine"
	"lia_trading/internal/event"
	"lia_trading/internal/executor"
	"lia_trading/internal/feed"
	"lia_trading/internal/fx"
	"lia_trading/internal/infra"
	"lia_trading/internal/journal"
	"lia_trading/internal/notify"
	"lia_trading/internal/portfolio"
	"lia_trading/internal/risk"
	"lia_trading/internal/signal"
	"lia_trading/internal/sizing"
)

// queueCapacity bounds the event queue. The director drains one event per
// iteration and each stage emits at most one, so the queue stays shallow
// in practice.
const queueCapacity = 256

// App owns the assembled pipeline and its lifecycle.
type App struct {
	cfg      *infra.Config
	director *engine.Director
	bridge   *bridge.Client
	journal  *journal.Journal
}

// New loads configuration and wires every component. In paper mode both
// data and execution are simulated; in bridge mode market data streams
// from the platform bridge while execution stays on the paper venue.
func New(configPath string) (*App, error) {
	// A missing .env file is fine; variables may come from the shell.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("starting",
		slog.String("app", cfg.App.Name),
		slog.String("mode", cfg.Trading.Mode),
		slog.Any("symbols", cfg.Trading.Symbols),
		slog.String("timeframe", cfg.Trading.Timeframe),
	)

	a := &App{cfg: cfg}

	var data broker.MarketData
	if cfg.Trading.Mode == "bridge" {
		a.bridge = bridge.NewClient(cfg.Bridge.WSURL, cfg.Trading.Symbols, cfg.Trading.Timeframe)
		data = a.bridge
	} else {
		interval, ok := infra.TimeframeDuration(cfg.Trading.Timeframe)
		if !ok {
			return nil, fmt.Errorf("unknown timeframe %q", cfg.Trading.Timeframe)
		}
		data = broker.NewSimFeed(cfg.Trading.Symbols, cfg.Trading.Timeframe, interval)
	}

	venue := broker.NewSimVenue(cfg.Paper.Equity, cfg.Paper.Currency)

	if cfg.Journal.Path != "" {
		a.journal, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
	}

	clock := infra.SystemClock{}
	queue := make(chan event.Event, queueCapacity)

	port := portfolio.New(venue, cfg.Trading.StrategyID)
	converter := fx.NewConverter(data)

	provider := feed.NewProvider(queue, data, cfg.Trading.Symbols, cfg.Trading.Timeframe)
	signals := signal.NewGenerator(queue, data, port, signal.Params{
		StrategyID: cfg.Trading.StrategyID,
		Timeframe:  cfg.Trading.Timeframe,
		RSIPeriod:  cfg.Strategy.RSIPeriod,
		RSIUpper:   cfg.Strategy.RSIUpper,
		RSILower:   cfg.Strategy.RSILower,
		SLPoints:   cfg.Strategy.SLPoints,
		TPPoints:   cfg.Strategy.TPPoints,
	})
	sizer := sizing.NewSizer(queue, venue, cfg.Sizing.FixedVolume)
	riskMgr := risk.NewManager(queue, venue, data, port, converter, cfg.Risk.MaxLeverageFactor)
	exec := executor.NewExecutor(queue, venue, data, clock)

	notifiers := notify.Fanout{notify.Console{}}
	if cfg.Telegram.Enabled {
		notifiers = append(notifiers, notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID))
	}

	a.director = engine.NewDirector(queue, provider, signals, sizer, riskMgr, exec, notifiers, a.journal, clock)
	return a, nil
}

// Run drives the dispatch loop until ctx is cancelled or the loop fails.
func (a *App) Run(ctx context.Context) error {
	if a.bridge != nil {
		a.bridge.Start(ctx)
		defer a.bridge.Stop()
	}
	if a.journal != nil {
		defer a.journal.Close()
	}
	return a.director.Run(ctx)
}
