// Package bigint provides the arbitrary-precision non-negative integer
// arithmetic the rank/unrank and record-codec algorithms are built on.
//
// It is a thin, non-negative-only wrapper around math/big.Int: the Go
// ecosystem's dependable big-integer implementation, playing the same
// role here that gmpy played in the original Python implementation this
// module is descended from.
package bigint

import (
	"fmt"
	"math/big"
)

// Int is an arbitrary-precision non-negative integer.
type Int struct {
	v big.Int
}

// Zero is the additive identity. The zero value of Int is also valid and
// equal to Zero.
func Zero() *Int {
	return &Int{}
}

// FromUint64 builds an Int from a uint64.
func FromUint64(n uint64) *Int {
	i := &Int{}
	i.v.SetUint64(n)
	return i
}

// FromBytes interprets buf as a big-endian non-negative integer.
func FromBytes(buf []byte) *Int {
	i := &Int{}
	i.v.SetBytes(buf)
	return i
}

// FromBigInt builds an Int holding a copy of v's value; later changes to
// v do not affect the result. It panics if v is negative.
func FromBigInt(v *big.Int) *Int {
	if v.Sign() < 0 {
		panic("bigint: negative value")
	}
	i := &Int{}
	i.v.Set(v)
	return i
}

// Clone returns an independent copy.
func (i *Int) Clone() *Int {
	c := &Int{}
	c.v.Set(&i.v)
	return c
}

// Bytes returns the big-endian encoding of i, left-zero-padded to at
// least minLen bytes.
func (i *Int) Bytes(minLen int) []byte {
	raw := i.v.Bytes()
	if len(raw) >= minLen {
		return raw
	}
	out := make([]byte, minLen)
	copy(out[minLen-len(raw):], raw)
	return out
}

// BitLen returns the number of bits required to represent i; BitLen(0) == 0.
func (i *Int) BitLen() int {
	return i.v.BitLen()
}

// Sign returns -1, 0 or 1, though this package only ever produces 0 or 1.
func (i *Int) Sign() int {
	return i.v.Sign()
}

// IsZero reports whether i == 0.
func (i *Int) IsZero() bool {
	return i.v.Sign() == 0
}

// Add returns a + b.
func Add(a, b *Int) *Int {
	r := &Int{}
	r.v.Add(&a.v, &b.v)
	return r
}

// Sub returns a - b. The caller guarantees a >= b; Sub panics otherwise,
// since a negative result has no representation in this package.
func Sub(a, b *Int) *Int {
	if a.Cmp(b) < 0 {
		panic("bigint: subtraction would be negative")
	}
	r := &Int{}
	r.v.Sub(&a.v, &b.v)
	return r
}

// Lsh returns a << n.
func Lsh(a *Int, n uint) *Int {
	r := &Int{}
	r.v.Lsh(&a.v, n)
	return r
}

// Rsh returns a >> n.
func Rsh(a *Int, n uint) *Int {
	r := &Int{}
	r.v.Rsh(&a.v, n)
	return r
}

// MaskLow returns a with only its low n bits kept, i.e. a & ((1<<n)-1).
func MaskLow(a *Int, n uint) *Int {
	if n == 0 {
		return Zero()
	}
	mask := &big.Int{}
	mask.Lsh(big.NewInt(1), n)
	mask.Sub(mask, big.NewInt(1))
	r := &Int{}
	r.v.And(&a.v, mask)
	return r
}

// Cmp returns -1, 0 or +1 as a is less than, equal to, or greater than b.
func (i *Int) Cmp(o *Int) int {
	return i.v.Cmp(&o.v)
}

// Equal reports whether i == o.
func (i *Int) Equal(o *Int) bool {
	return i.Cmp(o) == 0
}

// String renders i in base 10, for logging and test failure messages.
func (i *Int) String() string {
	return i.v.String()
}

// PeelOff splits c, a totalBits-bit non-negative integer, into
//
//	(high, low) such that c == (high << keepLowBits) | low,
//	0 <= low  < 2^keepLowBits, and
//	0 <= high < 2^(totalBits - keepLowBits).
//
// It panics if keepLowBits > totalBits or c does not fit in totalBits
// bits; both indicate a caller bug, not a data-dependent failure.
func PeelOff(totalBits, keepLowBits uint, c *Int) (high, low *Int) {
	if keepLowBits > totalBits {
		panic(fmt.Sprintf("bigint: PeelOff keepLowBits %d > totalBits %d", keepLowBits, totalBits))
	}
	if c.BitLen() > int(totalBits) {
		panic(fmt.Sprintf("bigint: PeelOff value has %d bits, exceeds totalBits %d", c.BitLen(), totalBits))
	}
	low = MaskLow(c, keepLowBits)
	high = Rsh(c, keepLowBits)
	return high, low
}
