package engine

import (
	"github.com/shopspring/decimal"

	"matchcore/internal/common"
)

// acceptablePrice reports whether a resting level at levelPrice may still
// be walked by an incoming order of side at limitPrice: buys accept asks at
// or below their limit, sells accept bids at or above theirs.
func acceptablePrice(side common.Side, limitPrice, levelPrice decimal.Decimal) bool {
	if side == common.Buy {
		return levelPrice.LessThanOrEqual(limitPrice)
	}
	return levelPrice.GreaterThanOrEqual(limitPrice)
}

// matchLimit walks the opposite side's priority-ordered levels while the
// incoming limit order still crosses, filling against the front order of
// each level in strict FIFO order. Trades price at the passive order's
// resting price (price improvement accrues to the aggressor), per
// spec.md §4.1.
func (b *Book) matchLimit(order *common.Order) []common.Trade {
	opposite := b.sideTree(order.Side.Opposite())
	var trades []common.Trade

	for order.RemainingQuantity().Sign() > 0 {
		lvl, ok := opposite.Min()
		if !ok {
			break
		}
		if !acceptablePrice(order.Side, order.Price, lvl.Price) {
			break
		}
		trades = append(trades, b.fillAgainstLevel(order, lvl, order.Side.Opposite())...)
	}
	return trades
}

// matchMarket walks the opposite side until the incoming order is filled or
// the side is exhausted. There is no price check; any unfilled remainder is
// cancelled by the caller, never rested.
func (b *Book) matchMarket(order *common.Order) []common.Trade {
	opposite := b.sideTree(order.Side.Opposite())
	var trades []common.Trade

	for order.RemainingQuantity().Sign() > 0 {
		lvl, ok := opposite.Min()
		if !ok {
			break
		}
		trades = append(trades, b.fillAgainstLevel(order, lvl, order.Side.Opposite())...)
	}
	return trades
}

// fillAgainstLevel drains the front of lvl against order until either the
// order is satisfied or the level is exhausted, producing one trade per
// resting order consumed (partially or fully). oppositeSide identifies
// which side lvl belongs to for index/level bookkeeping.
func (b *Book) fillAgainstLevel(order *common.Order, lvl *PriceLevel, oppositeSide common.Side) []common.Trade {
	var trades []common.Trade

	for order.RemainingQuantity().Sign() > 0 && !lvl.empty() {
		passive := lvl.front()
		fillQty := decimal.Min(order.RemainingQuantity(), passive.RemainingQuantity())

		order.Fill(fillQty)
		passive.Fill(fillQty)
		lvl.reduce(fillQty)

		trades = append(trades, b.recordTrade(order, passive, fillQty, lvl.Price))

		if passive.RemainingQuantity().Sign() <= 0 {
			lvl.popFront()
			b.removeFromIndex(passive.OrderID)
		}
	}

	b.dropLevelIfEmpty(oppositeSide, lvl)
	return trades
}

// recordTrade builds the Trade record for one aggressor/passive fill. The
// trade price is always the passive order's resting price.
func (b *Book) recordTrade(aggressor, passive *common.Order, qty, price decimal.Decimal) common.Trade {
	buyID, sellID := aggressor.OrderID, passive.OrderID
	if aggressor.Side == common.Sell {
		buyID, sellID = passive.OrderID, aggressor.OrderID
	}
	return common.Trade{
		TradeID:     b.nextTradeID(),
		Price:       price,
		Quantity:    qty,
		BuyOrderID:  buyID,
		SellOrderID: sellID,
		Aggressor:   aggressor.Side,
		Timestamp:   aggressor.Timestamp,
	}
}

// fokFeasible walks the opposite side, without mutating the book,
// accumulating eligible quantity (respecting the limit price for a limit
// FOK order) until it reaches order's full requested quantity or exhausts
// the side. This pre-check makes FOK atomic: no order is ever matched and
// then rejected (spec.md §9 calls out the source's non-atomic FOK as a bug
// to fix, not replicate).
func (b *Book) fokFeasible(order *common.Order) bool {
	opposite := b.sideTree(order.Side.Opposite())
	needed := order.Quantity
	accumulated := decimal.Zero

	opposite.Scan(func(lvl *PriceLevel) bool {
		if order.Type == common.Limit && !acceptablePrice(order.Side, order.Price, lvl.Price) {
			return false
		}
		accumulated = accumulated.Add(lvl.TotalQuantity)
		return accumulated.LessThan(needed)
	})

	return accumulated.GreaterThanOrEqual(needed)
}
