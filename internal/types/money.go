// README: Currency helpers shared by pricing and the reconciler.
package types

import "github.com/shopspring/decimal"

// RoundCents rounds half away from zero at the cent.
func RoundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Split returns total divided evenly across n passengers, rounded at the cent.
// A non-positive n yields 0.
func Split(total float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return decimal.NewFromFloat(total).Div(decimal.NewFromInt(int64(n))).Round(2).InexactFloat64()
}
