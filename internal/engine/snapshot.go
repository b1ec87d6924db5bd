package engine

import (
	"time"

	"matchcore/internal/common"
)

const defaultSnapshotLevels = 10

// GetSnapshot returns the top-N aggregated levels per side, sorted by price
// priority, plus cached top-of-book statistics. levels <= 0 defaults to 10.
// The snapshot is timestamped with the wall clock; callers driving simulated
// time (e.g. the replay engine) should use GetSnapshotAt instead.
func (b *Book) GetSnapshot(levels int) common.Snapshot {
	return b.GetSnapshotAt(levels, time.Now().UnixNano())
}

// GetSnapshotAt behaves like GetSnapshot but stamps the snapshot with the
// caller-supplied timestamp, so a replay driver can keep snapshots on the
// same simulated-time axis as the orders that produced them.
func (b *Book) GetSnapshotAt(levels int, timestampNs int64) common.Snapshot {
	if levels <= 0 {
		levels = defaultSnapshotLevels
	}

	snap := common.Snapshot{
		Timestamp: timestampNs,
		Symbol:    b.Symbol,
		Bids:      make([]common.PriceLevelView, 0, levels),
		Asks:      make([]common.PriceLevelView, 0, levels),
	}

	b.bids.Scan(func(lvl *PriceLevel) bool {
		if len(snap.Bids) >= levels {
			return false
		}
		snap.Bids = append(snap.Bids, common.PriceLevelView{Price: lvl.Price, Quantity: lvl.TotalQuantity})
		return true
	})
	b.asks.Scan(func(lvl *PriceLevel) bool {
		if len(snap.Asks) >= levels {
			return false
		}
		snap.Asks = append(snap.Asks, common.PriceLevelView{Price: lvl.Price, Quantity: lvl.TotalQuantity})
		return true
	})

	if bid, ok := b.BestBid(); ok {
		v := bid
		snap.BestBid = &v
	}
	if ask, ok := b.BestAsk(); ok {
		v := ask
		snap.BestAsk = &v
	}
	if spread, ok := b.Spread(); ok {
		v := spread
		snap.Spread = &v
	}
	if mid, ok := b.MidPrice(); ok {
		v := mid
		snap.MidPrice = &v
	}
	if last, ok := b.LastTradePrice(); ok {
		v := last
		snap.LastTradePrice = &v
	}
	return snap
}
