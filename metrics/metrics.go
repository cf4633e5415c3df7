// Package metrics exposes engine activity as prometheus metrics. Metrics is
// a notify.Bus, so it is fed by the same notifications as every other
// subscriber.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/notify"
)

const (
	kindLabel   = "kind"
	symbolLabel = "symbol"
)

type Metrics struct {
	events        *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	openPositions *prometheus.GaugeVec
	realized      *prometheus.GaugeVec

	balance    prometheus.Gauge
	usedMargin prometheus.Gauge
}

func New(namespace string, registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Notifications published by the engine",
		}, []string{kindLabel, symbolLabel}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_rejections_total",
			Help:      "Orders rejected for insufficient margin",
		}, []string{symbolLabel}),
		openPositions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_positions",
			Help:      "Positions currently open",
		}, []string{symbolLabel}),
		realized: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realized_profit_loss",
			Help:      "Cumulative realized profit or loss in the quote currency",
		}, []string{symbolLabel}),
		balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "account_balance",
			Help:      "Account balance in the account currency",
		}),
		usedMargin: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "account_used_margin",
			Help:      "Margin locked by open positions",
		}),
	}

	err := errors.Join(
		registerer.Register(m.events),
		registerer.Register(m.rejections),
		registerer.Register(m.openPositions),
		registerer.Register(m.realized),
		registerer.Register(m.balance),
		registerer.Register(m.usedMargin),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) Notify(_ string, ev notify.Event) {
	symbol := ev.Head().Symbol
	m.events.WithLabelValues(ev.Kind().String(), symbol).Inc()

	switch e := ev.(type) {
	case notify.OrderRejected:
		m.rejections.WithLabelValues(symbol).Inc()
	case notify.PositionOpened:
		m.openPositions.WithLabelValues(symbol).Inc()
	case notify.PositionDeleted:
		m.openPositions.WithLabelValues(symbol).Dec()
		m.realized.WithLabelValues(symbol).Add(e.ProfitLoss)
	}
}

// ObserveAccount publishes an account snapshot.
func (m *Metrics) ObserveAccount(acct broker.Account) {
	m.balance.Set(acct.Balance)
	m.usedMargin.Set(acct.UsedMargin)
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
