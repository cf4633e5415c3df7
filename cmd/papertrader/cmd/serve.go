package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/papertrader/metrics"
	"github.com/rustyeddy/papertrader/notify"
	"github.com/rustyeddy/papertrader/notify/wsfeed"
	"github.com/rustyeddy/papertrader/sim"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a simulation and serve its state over HTTP",
	Long: `Run the configured simulation in real time while serving:

  /ws         websocket feed of engine notifications (JSON)
  /metrics    prometheus metrics
  /account    account snapshot
  /positions  open positions

Price steps are applied after their configured delay. The server keeps
running after the simulation ends until interrupted.

Example:
  papertrader serve -f simulation.yaml --listen :8080`,
	RunE: runServe,
}

var (
	serveConfigPath string
	serveListen     string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "listen address (overrides serve.listen)")
	serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(serveConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serveListen != "" {
		cfg.Serve.Listen = serveListen
	}
	logger := newLogger(cfg)

	reg := prometheus.NewRegistry()
	m, err := metrics.New("papertrader", reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	hub := wsfeed.NewHub(logger)
	queue := notify.NewQueue(notify.NewFanout(logger, hub, m), 1024)

	s, err := newSession(cfg, logger, queue)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := &http.Server{
		Addr:              cfg.Serve.Listen,
		Handler:           newServeMux(s.engine, hub, m, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := queue.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		report, err := s.simulate(ctx, cmd.OutOrStdout(), time.Now(), sleepPacer)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("simulate: %w", err)
		}
		m.ObserveAccount(s.engine.Account())
		fmt.Fprintln(cmd.OutOrStdout(), renderSummary(report, s.engine.Account()))
		logger.Info("simulation finished, still serving")
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hub.Close()
		queue.Close()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newServeMux(e *sim.Engine, hub *wsfeed.Hub, m *metrics.Metrics, reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.HandleFunc("GET /account", func(w http.ResponseWriter, r *http.Request) {
		acct := e.Account()
		m.ObserveAccount(acct)
		writeJSON(w, accountView{
			ID:            acct.ID,
			Currency:      acct.Currency,
			Balance:       acct.Balance,
			UsedMargin:    acct.UsedMargin,
			MarginBalance: acct.MarginBalance(),
			ProfitLoss:    acct.ProfitLoss,
		})
	})
	mux.HandleFunc("GET /positions", func(w http.ResponseWriter, r *http.Request) {
		open := e.Positions()
		out := make([]positionView, 0, len(open))
		for _, p := range open {
			out = append(out, positionView{
				ID:         p.ID.String(),
				Symbol:     p.Symbol,
				Direction:  p.Direction.String(),
				Quantity:   p.Quantity,
				EntryPrice: p.EntryPrice,
				Leverage:   p.Leverage,
				StopLoss:   p.StopLoss,
				TakeProfit: p.TakeProfit,
				Created:    p.CreatedTime,
			})
		}
		writeJSON(w, out)
	})
	return mux
}

type accountView struct {
	ID            string  `json:"id"`
	Currency      string  `json:"currency"`
	Balance       float64 `json:"balance"`
	UsedMargin    float64 `json:"used-margin"`
	MarginBalance float64 `json:"margin-balance"`
	ProfitLoss    float64 `json:"profit-loss"`
}

type positionView struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Direction  string    `json:"direction"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry-price"`
	Leverage   float64   `json:"leverage"`
	StopLoss   float64   `json:"stop-loss"`
	TakeProfit float64   `json:"take-profit"`
	Created    time.Time `json:"created"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("write response", slog.Any("error", err))
	}
}
