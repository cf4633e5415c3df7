package cmd

import (
	"fmt"
	"log/slog"

	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/internal/logging"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/notify"
	"github.com/rustyeddy/papertrader/sim"
)

// session is one configured engine with its trader, recorder and bus.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	markets  *market.Registry
	recorder journal.Recorder
	engine   *sim.Engine
	trader   *sim.Trader
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path, envFiles...)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func newSession(cfg *config.Config, logger *slog.Logger, subs ...notify.Bus) (*session, error) {
	markets, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	rec, err := openRecorder(cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("create journal: %w", err)
	}

	bus := notify.NewFanout(logger, notify.NewLogBus(logger, slog.LevelDebug))
	for _, b := range subs {
		bus.Subscribe(b)
	}

	engine := sim.NewEngine(cfg.Account.Account(),
		sim.WithName(cfg.Account.ID),
		sim.WithBus(bus),
		sim.WithRecorder(rec),
		sim.WithLogger(logger),
		sim.WithHistory(journal.NewMemoryHistory(cfg.History.Capacity)),
		sim.WithSerialPublish(),
	)

	return &session{
		cfg:      cfg,
		logger:   logger,
		markets:  markets,
		recorder: rec,
		engine:   engine,
		trader:   sim.NewTrader(engine, markets),
	}, nil
}

func (s *session) Close() error {
	return s.recorder.Close()
}

func openRecorder(cfg config.JournalConfig) (journal.Recorder, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.HistoryFile, cfg.MarketFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	default:
		return journal.Discard, nil
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(cfg.Log.Level, cfg.Log.Format)
}
