package bigint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytesRoundTrip(t *testing.T) {
	i := FromUint64(0x0123456789ABCDEF)
	b := i.Bytes(16)
	require.Len(t, b, 16)
	require.Equal(t, i.String(), FromBytes(b).String())
}

func TestBytesMinLenPadsWithZeros(t *testing.T) {
	i := FromUint64(1)
	b := i.Bytes(4)
	require.Equal(t, []byte{0, 0, 0, 1}, b)
}

func TestAddSub(t *testing.T) {
	a := FromUint64(40)
	b := FromUint64(2)
	require.Equal(t, "42", Add(a, b).String())
	require.Equal(t, "38", Sub(a, b).String())
}

func TestSubPanicsOnNegativeResult(t *testing.T) {
	require.Panics(t, func() {
		Sub(FromUint64(1), FromUint64(2))
	})
}

func TestShifts(t *testing.T) {
	a := FromUint64(1)
	require.Equal(t, "256", Lsh(a, 8).String())
	require.Equal(t, "0", Rsh(a, 1).String())
}

func TestMaskLow(t *testing.T) {
	a := FromUint64(0xFF)
	require.Equal(t, "15", MaskLow(a, 4).String())
	require.Equal(t, "0", MaskLow(a, 0).String())
}

func TestPeelOff(t *testing.T) {
	c := FromUint64(0x1FF) // 9 bits: 1_1111_1111
	high, low := PeelOff(9, 4, c)
	require.Equal(t, "31", high.String()) // top 5 bits: 11111
	require.Equal(t, "15", low.String())  // low 4 bits: 1111
	recombined := Add(Lsh(high, 4), low)
	require.True(t, recombined.Equal(c))
}

func TestPeelOffZeroKeep(t *testing.T) {
	c := FromUint64(42)
	high, low := PeelOff(6, 0, c)
	require.True(t, low.IsZero())
	require.True(t, high.Equal(c))
}

func TestPeelOffPanicsOnOversizedInput(t *testing.T) {
	require.Panics(t, func() {
		PeelOff(4, 2, FromUint64(1000))
	})
}
