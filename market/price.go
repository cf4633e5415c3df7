package market

import "github.com/shopspring/decimal"

// RoundPrice rounds p half away from zero to the market precision. Binary
// floats cannot do this reliably, so it goes through decimal.
func (m Market) RoundPrice(p float64) float64 {
	f, _ := decimal.NewFromFloat(p).Round(m.Precision).Float64()
	return f
}

// FormatPrice renders p with exactly Precision decimals.
func (m Market) FormatPrice(p float64) string {
	return decimal.NewFromFloat(p).StringFixed(m.Precision)
}

// Pips converts a price delta into pips.
func (m Market) Pips(delta float64) float64 {
	if m.OnePipMeans == 0 {
		return 0
	}
	d, _ := decimal.NewFromFloat(delta).Div(decimal.NewFromFloat(m.OnePipMeans)).Float64()
	return d
}
