package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	symbolStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	priceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	gainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func plStyle(v float64) lipgloss.Style {
	if v < 0 {
		return lossStyle
	}
	return gainStyle
}

func money(v float64) string {
	return plStyle(v).Render(fmt.Sprintf("%+.2f", v))
}

func renderOpen(m market.Market, p broker.Position) string {
	parts := []string{
		headerStyle.Render(" OPEN "),
		symbolStyle.Render(p.Symbol),
		p.Direction.String(),
		fmt.Sprintf("%g", p.Quantity),
		labelStyle.Render("@") + priceStyle.Render(m.FormatPrice(p.EntryPrice)),
	}
	if p.StopLoss > 0 {
		parts = append(parts, labelStyle.Render("sl")+" "+m.FormatPrice(p.StopLoss))
	}
	if p.TakeProfit > 0 {
		parts = append(parts, labelStyle.Render("tp")+" "+m.FormatPrice(p.TakeProfit))
	}
	return strings.Join(parts, " ")
}

func renderStep(m market.Market, bid, ask float64, at time.Time) string {
	return fmt.Sprintf("%s %s %s/%s",
		labelStyle.Render(at.UTC().Format("15:04:05")),
		symbolStyle.Render(m.Symbol),
		priceStyle.Render(m.FormatPrice(bid)),
		priceStyle.Render(m.FormatPrice(ask)))
}

func renderClose(m market.Market, p broker.Position) string {
	return strings.Join([]string{
		headerStyle.Render(" CLOSE "),
		symbolStyle.Render(p.Symbol),
		p.Direction.String(),
		labelStyle.Render("@") + priceStyle.Render(m.FormatPrice(p.ExitPrice)),
		labelStyle.Render("p/l") + " " + money(p.ProfitLoss),
	}, " ")
}

func renderSummary(r journal.Report, acct broker.Account) string {
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			labelStyle.Width(16).Render(label),
			value)
	}
	rows := []string{
		headerStyle.Render(" SUMMARY "),
		row("Balance", fmt.Sprintf("%.2f %s", acct.Balance, acct.Currency)),
		row("Used margin", fmt.Sprintf("%.2f", acct.UsedMargin)),
		row("Realized P/L", money(acct.ProfitLoss)),
		row("Trades", fmt.Sprintf("%d (%d won, %d lost)", r.Trades, r.Wins, r.Losses)),
		row("Win rate", fmt.Sprintf("%.1f%%", r.WinRate*100)),
		row("Return", plStyle(r.ReturnPct).Render(fmt.Sprintf("%.2f%%", r.ReturnPct))),
		row("Max drawdown", fmt.Sprintf("%.2f%%", r.MaxDDPct)),
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
