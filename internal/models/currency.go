package models

// Currency is an ISO 4217 currency code. The set is closed: households
// settle in one of these and transactions may only be entered in them.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyCAD Currency = "CAD"
)

// Valid reports whether c is a supported currency code.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyUSD, CurrencyCAD:
		return true
	}
	return false
}
