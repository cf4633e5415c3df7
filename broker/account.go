package broker

// Account is the paper ledger. Balance only moves on realized profit or
// loss; opening a position only locks margin.
type Account struct {
	ID         string
	Name       string
	Currency   string
	Balance    float64
	UsedMargin float64
	ProfitLoss float64 // cumulative realized P/L, account currency
}

// MarginBalance is the free margin. It is derived on every call so it can
// never drift from Balance and UsedMargin.
func (a Account) MarginBalance() float64 {
	return a.Balance - a.UsedMargin
}

func (a Account) HasMargin(cost float64) bool {
	return a.MarginBalance() >= cost
}

// AddUsedMargin locks (positive) or releases (negative) margin. Float
// residue from a release never leaves UsedMargin below zero.
func (a *Account) AddUsedMargin(amount float64) {
	a.UsedMargin += amount
	if a.UsedMargin < 0 {
		a.UsedMargin = 0
	}
}

// AddRealizedProfitLoss books a realized gain or loss already converted to
// the account currency.
func (a *Account) AddRealizedProfitLoss(amount float64) {
	a.Balance += amount
	a.ProfitLoss += amount
}
