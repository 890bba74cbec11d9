package wire

import (
	"encoding/binary"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	decimalSize  = 16
	maxScale     = 28
	scaleShift   = 16
	scaleMask    = 0x00FF0000
	signMask     = 0x80000000
	reservedMask = ^uint32(scaleMask | signMask)
)

var maxMantissa = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(1))

// putDecimal writes d as lo, mid, hi, flags: a 96-bit unsigned mantissa
// and flags holding the scale in bits 16-23 and the sign in bit 31.
func putDecimal(buf []byte, d decimal.Decimal) error {
	exp := d.Exponent()
	mant := d.Coefficient()
	// drop trailing zeros only; any other digit past the scale limit is an error
	if exp < -maxScale {
		ten, rem := big.NewInt(10), new(big.Int)
		for exp < -maxScale {
			q, r := new(big.Int).QuoRem(mant, ten, rem)
			if r.Sign() != 0 {
				return ErrDecimalOverflow
			}
			mant = q
			exp++
		}
	}
	scale := uint32(0)
	if exp > 0 {
		mant.Mul(mant, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
	} else {
		scale = uint32(-exp)
	}
	neg := mant.Sign() < 0
	mant.Abs(mant)
	if mant.Cmp(maxMantissa) > 0 {
		return ErrDecimalOverflow
	}

	var words [12]byte
	mant.FillBytes(words[:]) // big-endian hi..lo
	binary.LittleEndian.PutUint32(buf[0:4], binary.BigEndian.Uint32(words[8:12]))
	binary.LittleEndian.PutUint32(buf[4:8], binary.BigEndian.Uint32(words[4:8]))
	binary.LittleEndian.PutUint32(buf[8:12], binary.BigEndian.Uint32(words[0:4]))

	flags := scale << scaleShift
	if neg && mant.Sign() != 0 {
		flags |= signMask
	}
	binary.LittleEndian.PutUint32(buf[12:16], flags)
	return nil
}

func readDecimal(buf []byte) (decimal.Decimal, error) {
	flags := binary.LittleEndian.Uint32(buf[12:16])
	scale := (flags & scaleMask) >> scaleShift
	if flags&reservedMask != 0 || scale > maxScale {
		return decimal.Decimal{}, ErrDecimalOverflow
	}

	var words [12]byte
	binary.BigEndian.PutUint32(words[0:4], binary.LittleEndian.Uint32(buf[8:12]))
	binary.BigEndian.PutUint32(words[4:8], binary.LittleEndian.Uint32(buf[4:8]))
	binary.BigEndian.PutUint32(words[8:12], binary.LittleEndian.Uint32(buf[0:4]))
	mant := new(big.Int).SetBytes(words[:])
	if flags&signMask != 0 {
		mant.Neg(mant)
	}
	return decimal.NewFromBigInt(mant, -int32(scale)), nil
}
