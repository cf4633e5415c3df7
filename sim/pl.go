package sim

import (
	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/market"
)

// Realized is the outcome of closing quantity at exit.
type Realized struct {
	PriceDelta      float64 // signed by direction, positive is profit
	Pips            float64
	GainLoss        float64 // quote currency
	GainLossRate    float64 // GainLoss / realized cost
	GainLossAccount float64 // account currency
	RealizedCost    float64
}

// Booked reports whether the close moves the balance. A flat close or a
// zero notional leaves every P/L field at zero.
func (r Realized) Booked() bool {
	return r.RealizedCost > 0 && r.GainLoss != 0
}

func Realize(m market.Market, d broker.Direction, entry, exit, quantity float64) Realized {
	delta := exit - entry
	if d == broker.Short {
		delta = entry - exit
	}

	effective := (delta / m.OnePipMeans) * m.ValuePerPip
	r := Realized{
		PriceDelta:   delta,
		Pips:         m.Pips(delta),
		GainLoss:     effective * quantity,
		RealizedCost: m.RealizedCost(quantity),
	}
	if r.Booked() {
		r.GainLossRate = r.GainLoss / r.RealizedCost
		r.GainLossAccount = r.GainLoss / m.BaseExchangeRate
	}
	return r
}
