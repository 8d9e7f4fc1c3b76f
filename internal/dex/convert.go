package dex

import (
	"bytes"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"lpbreakdown/internal/model"
)

// PopulatedTick mirrors the TickLens PopulatedTick struct as decoded by the
// ABI package.
type PopulatedTick struct {
	Tick           *big.Int
	LiquidityNet   *big.Int
	LiquidityGross *big.Int
}

// TickRecords converts a decoded getPopulatedTicksInWord output into tick
// records, preserving order.
func TickRecords(value interface{}) (ticks []model.TickRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unsupported populated ticks type %T", value)
		}
	}()

	switch v := value.(type) {
	case []model.TickRecord:
		return v, nil
	case []PopulatedTick:
		return populatedToRecords(v)
	}

	converted, ok := abi.ConvertType(value, new([]PopulatedTick)).(*[]PopulatedTick)
	if !ok {
		return nil, fmt.Errorf("unsupported populated ticks type %T", value)
	}
	return populatedToRecords(*converted)
}

func populatedToRecords(in []PopulatedTick) ([]model.TickRecord, error) {
	out := make([]model.TickRecord, 0, len(in))
	for _, pt := range in {
		if pt.Tick == nil || pt.LiquidityNet == nil || pt.LiquidityGross == nil {
			return nil, fmt.Errorf("populated tick with missing fields")
		}
		tick, err := Int24FromBig(pt.Tick)
		if err != nil {
			return nil, err
		}
		out = append(out, model.TickRecord{
			Tick:           tick,
			LiquidityNet:   new(big.Int).Set(pt.LiquidityNet),
			LiquidityGross: new(big.Int).Set(pt.LiquidityGross),
		})
	}
	return out, nil
}

// Bytes32ToString trims trailing NULs from a bytes32 value.
func Bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func AsAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func AsBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func AsUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return boundUint8(uint64(v))
	case uint32:
		return boundUint8(uint64(v))
	case uint64:
		return boundUint8(v)
	case *big.Int:
		if v == nil || !v.IsUint64() {
			return 0, fmt.Errorf("uint8 overflow: %s", v.String())
		}
		return boundUint8(v.Uint64())
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func boundUint8(v uint64) (uint8, error) {
	if v > math.MaxUint8 {
		return 0, fmt.Errorf("uint8 overflow: %d", v)
	}
	return uint8(v), nil
}

func Int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
