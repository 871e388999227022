package plan

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is an amount in the smallest currency unit.
// For example, 29.00 EUR is Amount: 2900, Currency: "EUR".
type Money struct {
	Amount   int64  `yaml:"amount" json:"amount"`
	Currency string `yaml:"currency" json:"currency"`
}

// Format renders the amount for display in the given language, e.g. "€ 29.00".
// Unknown currency codes fall back to the plain decimal value.
func (m Money) Format(tag language.Tag) string {
	p := message.NewPrinter(tag)
	value := float64(m.Amount) / 100

	unit, err := currency.ParseISO(m.Currency)
	if err != nil {
		return p.Sprintf("%.2f", value)
	}
	return p.Sprint(currency.Symbol(unit.Amount(value)))
}
