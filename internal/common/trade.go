package common

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Notional is price * quantity, the cash value exchanged by the trade.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(t.Quantity)
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"trade %s: %s @ %s (buy=%s sell=%s aggressor=%s)",
		t.TradeID, t.Quantity, t.Price, t.BuyOrderID, t.SellOrderID, t.Aggressor,
	)
}
