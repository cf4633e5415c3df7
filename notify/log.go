package notify

import (
	"context"
	"log/slog"
)

// LogBus writes every event through slog.
type LogBus struct {
	logger *slog.Logger
	level  slog.Level
}

func NewLogBus(logger *slog.Logger, level slog.Level) *LogBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogBus{logger: logger, level: level}
}

func (l *LogBus) Notify(sender string, ev Event) {
	h := ev.Head()
	attrs := []slog.Attr{
		slog.String("kind", ev.Kind().String()),
		slog.String("sender", sender),
		slog.String("symbol", h.Symbol),
	}
	if h.RefOrderID != "" {
		attrs = append(attrs, slog.String("ref_order_id", h.RefOrderID))
	}

	switch e := ev.(type) {
	case OrderOpened:
		attrs = append(attrs, slog.String("order_id", e.ID), slog.String("direction", e.Direction.String()), slog.Float64("quantity", e.Quantity))
	case OrderTraded:
		attrs = append(attrs, slog.String("order_id", e.ID), slog.Float64("exec_price", e.ExecPrice), slog.Float64("filled", e.Filled))
	case PositionOpened:
		attrs = append(attrs, slog.String("position_id", e.ID.String()), slog.Float64("entry_price", e.AvgEntryPrice))
	case PositionDeleted:
		attrs = append(attrs, slog.String("position_id", e.ID.String()), slog.Float64("exit_price", e.AvgExitPrice), slog.Float64("profit_loss", e.ProfitLoss))
	case OrderDeleted:
		attrs = append(attrs, slog.String("order_id", e.ID))
	}

	l.logger.LogAttrs(context.Background(), l.level, "notification", attrs...)
}
