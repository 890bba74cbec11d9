package service

import (
	"time"

	"github.com/shopspring/decimal"

	"matchbook/domain/types"
)

type Rate struct {
	Maker decimal.Decimal
	Taker decimal.Decimal
}

// FeeSchedule maps fee ids to rates. Unknown ids trade for free.
type FeeSchedule map[types.FeeID]Rate

func (s FeeSchedule) GetFee(id types.FeeID) (maker, taker decimal.Decimal) {
	r, ok := s[id]
	if !ok {
		return decimal.Zero, decimal.Zero
	}
	return r.Maker, r.Taker
}

type SystemClock struct{}

func (SystemClock) SecondsFromEpoch() int64 { return time.Now().Unix() }
