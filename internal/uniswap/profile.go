package uniswap

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/shopspring/decimal"

	"lpbreakdown/internal/model"
	"lpbreakdown/internal/pricemath"
)

// BuildProfile turns the sparse liquidity_net samples of a snapshot into an
// ascending per-band liquidity curve anchored on the active liquidity, values
// each band as its own range position, and keeps the bands whose tick lies
// strictly within activeTick*(1 ± depth).
func BuildProfile(snapshot model.TickProfileSnapshot, depth decimal.Decimal) ([]model.TickBand, error) {
	if len(snapshot.Ticks) == 0 {
		return []model.TickBand{}, nil
	}
	spacing := int64(snapshot.TickSpacing)
	if spacing <= 0 {
		return nil, fmt.Errorf("non-positive tick spacing %d", snapshot.TickSpacing)
	}

	// Scanner output is descending; sort keeps the result ascending even for
	// unordered input.
	records := make([]model.TickRecord, len(snapshot.Ticks))
	for i, rec := range snapshot.Ticks {
		records[len(records)-1-i] = rec
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Tick < records[j].Tick })

	known := make(map[int64]model.TickRecord, len(records))
	for _, rec := range records {
		known[int64(rec.Tick)] = rec
	}
	minTick := int64(records[0].Tick)
	maxTick := int64(records[len(records)-1].Tick)

	bands := make([]model.TickBand, 0, (maxTick-minTick)/spacing+1)
	shape := new(big.Int)
	for tick := minTick; tick < maxTick; tick += spacing {
		net, gross := new(big.Int), new(big.Int)
		if rec, ok := known[tick]; ok {
			if rec.LiquidityNet != nil {
				net.Set(rec.LiquidityNet)
			}
			if rec.LiquidityGross != nil {
				gross.Set(rec.LiquidityGross)
			}
		}
		shape = new(big.Int).Add(shape, net)
		bands = append(bands, model.TickBand{
			Tick:           int32(tick),
			TickUpper:      int32(tick + spacing),
			LiquidityNet:   net,
			LiquidityGross: gross,
			LiquidityShape: shape,
		})
	}

	activeLower := FloorDiv(int64(snapshot.ActiveTick), spacing) * spacing
	activeLiquidity := snapshot.ActiveLiquidity
	if activeLiquidity == nil {
		activeLiquidity = new(big.Int)
	}
	offset := new(big.Int).Sub(activeLiquidity, cumulativeSumAt(bands, activeLower))

	activeTick := decimal.NewFromInt32(snapshot.ActiveTick)
	depthInTicks := activeTick.Mul(depth)
	lowerBound := activeTick.Sub(depthInTicks)
	upperBound := activeTick.Add(depthInTicks)

	adjustment := DisplayAdjustment(snapshot.Token0.Decimals, snapshot.Token1.Decimals)
	prices := make(map[int64]decimal.Decimal)
	tickPrice := func(tick int64) decimal.Decimal {
		if p, ok := prices[tick]; ok {
			return p
		}
		p := pricemath.TickToPrice(tick)
		prices[tick] = p
		return p
	}

	out := make([]model.TickBand, 0, len(bands))
	for _, band := range bands {
		band.Liquidity = new(big.Int).Add(band.LiquidityShape, offset)

		tick := decimal.NewFromInt32(band.Tick)
		if !tick.GreaterThan(lowerBound) || !tick.LessThan(upperBound) {
			continue
		}

		band.VirtualRatio = tickPrice(int64(band.Tick))
		band.VirtualRatioUpper = tickPrice(int64(band.TickUpper))
		band.Ratio = band.VirtualRatio.Mul(adjustment)
		band.RatioUpper = band.VirtualRatioUpper.Mul(adjustment)

		amount0, amount1, err := RangeAmounts(
			snapshot.VirtualRatio,
			band.VirtualRatio,
			band.VirtualRatioUpper,
			decimal.NewFromBigInt(band.Liquidity, 0),
		)
		if err != nil {
			return nil, fmt.Errorf("band %d: %w", band.Tick, err)
		}
		band.Token0UnderlyingVirtual = amount0
		band.Token1UnderlyingVirtual = amount1
		band.Token0Underlying = AdjustDecimals(amount0, snapshot.Token0.Decimals)
		band.Token1Underlying = AdjustDecimals(amount1, snapshot.Token1.Decimals)

		out = append(out, band)
	}
	return out, nil
}

// cumulativeSumAt is the running liquidity_net total over grid ticks <= tick.
func cumulativeSumAt(bands []model.TickBand, tick int64) *big.Int {
	idx := sort.Search(len(bands), func(i int) bool { return int64(bands[i].Tick) > tick })
	if idx == 0 {
		return new(big.Int)
	}
	return bands[idx-1].LiquidityShape
}
