package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ZakatRate is the standard rate applied to net eligible wealth.
var ZakatRate = decimal.NewFromFloat(0.025)

// ZakatAssessment is the result of a Zakat calculation for one user.
type ZakatAssessment struct {
	NetWealth decimal.Decimal `json:"net_wealth"`
	Nisab     decimal.Decimal `json:"nisab"`
	Eligible  bool            `json:"eligible"`
	Due       decimal.Decimal `json:"due"`
	DueDate   time.Time       `json:"due_date"`
}

// AssessZakat computes the amount due on net eligible wealth. Zakat is
// owed only when net wealth meets or exceeds the nisab threshold.
// Negative net wealth never produces a due amount.
func AssessZakat(assets, liabilities, nisab decimal.Decimal, dueDate time.Time) ZakatAssessment {
	net := assets.Sub(liabilities)
	if net.IsNegative() {
		net = decimal.Zero
	}

	a := ZakatAssessment{
		NetWealth: net,
		Nisab:     nisab,
		DueDate:   dueDate,
		Due:       decimal.Zero,
	}

	if nisab.IsPositive() && net.GreaterThanOrEqual(nisab) {
		a.Eligible = true
		a.Due = net.Mul(ZakatRate).Round(2)
	}
	return a
}
