package dfa

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drand/fte/bigint"
)

// newLanguageUnchecked builds a Language the way New does, but without
// the capacity >= 1 carrier-usability gate, so tests can exercise the
// raw rank/unrank mathematics against spec.md §8's toy DFA scenario
// (^[ab]{4}$, capacity == -124) that New is required to reject.
func newLanguageUnchecked(a *Automaton, mtu int, fixedSlice bool) *Language {
	table := buildTable(a, mtu)
	numWords := bigint.Zero()
	offset := bigint.Zero()
	if fixedSlice {
		numWords = table.At(mtu, a.Start)
		for i := 0; i < mtu; i++ {
			offset = bigint.Add(offset, table.At(i, a.Start))
		}
	} else {
		for i := 0; i <= mtu; i++ {
			numWords = bigint.Add(numWords, table.At(i, a.Start))
		}
	}
	return &Language{
		Name: "test", Automaton: a, N: mtu, FixedSlice: fixedSlice,
		table: table, numWords: numWords, offset: offset,
		capacity: numWords.BitLen() - 1 - 128,
	}
}

func TestNewRejectsLanguageWithCapacityTooSmall(t *testing.T) {
	a := buildChainAutomaton(4, []byte{'a', 'b'})
	_, err := New(nil, "toy-ab4", a, 4, true)
	require.ErrorIs(t, err, ErrCapacityTooSmall)
}

func TestNewRejectsEmptyLanguage(t *testing.T) {
	// An automaton whose start state can never reach an accepting state.
	a := NewAutomaton(2, 0)
	a.SetTransition(0, 'a', 1)
	// no accepting states at all
	_, err := New(nil, "empty", a, 4, true)
	require.ErrorIs(t, err, ErrLanguageIsEmptySet)
}

func TestRankUnrankRoundTripToyChain(t *testing.T) {
	a := buildChainAutomaton(4, []byte{'a', 'b'})
	l := newLanguageUnchecked(a, 4, true)
	require.Equal(t, "16", l.numWords.String())

	for _, word := range []string{"aaaa", "aaab", "abab", "bbbb", "baba"} {
		c, err := l.Rank([]byte(word))
		require.NoError(t, err)
		back, err := l.Unrank(c)
		require.NoError(t, err)
		require.Equal(t, word, string(back))
	}
}

func TestUnrankRankRoundTripToyChain(t *testing.T) {
	a := buildChainAutomaton(4, []byte{'a', 'b'})
	l := newLanguageUnchecked(a, 4, true)

	for i := uint64(0); i < 16; i++ {
		word, err := l.Unrank(bigint.FromUint64(i))
		require.NoError(t, err)
		require.Len(t, word, 4)
		back, err := l.Rank(word)
		require.NoError(t, err)
		require.Equal(t, i, mustUint64(back))
	}
}

func TestRankMonotonicLexicographicOrder(t *testing.T) {
	a := buildChainAutomaton(4, []byte{'a', 'b'})
	l := newLanguageUnchecked(a, 4, true)

	pairs := [][2]string{
		{"aaaa", "aaab"},
		{"aaab", "abaa"},
		{"abbb", "baaa"},
		{"baaa", "bbbb"},
	}
	for _, p := range pairs {
		x, err := l.Rank([]byte(p[0]))
		require.NoError(t, err)
		y, err := l.Rank([]byte(p[1]))
		require.NoError(t, err)
		require.True(t, x.Cmp(y) < 0, "rank(%s) should be < rank(%s)", p[0], p[1])
	}
}

func TestRankFailsOnUndefinedTransition(t *testing.T) {
	a := buildChainAutomaton(4, []byte{'a', 'b'})
	l := newLanguageUnchecked(a, 4, true)
	_, err := l.Rank([]byte("aaac"))
	require.ErrorIs(t, err, ErrRankFailure)
}

func TestRankFailsWhenFinalStateNotAccepting(t *testing.T) {
	a := buildChainAutomaton(4, []byte{'a', 'b'})
	l := newLanguageUnchecked(a, 4, true)
	_, err := l.Rank([]byte("aaa")) // length 3, never reaches the accept state
	require.ErrorIs(t, err, ErrRankFailure)
}

func TestUnrankFailsOnOutOfRangeInteger(t *testing.T) {
	a := buildChainAutomaton(4, []byte{'a', 'b'})
	l := newLanguageUnchecked(a, 4, true)
	_, err := l.Unrank(bigint.FromUint64(16)) // numWords == 16, so 16 is out of range
	require.ErrorIs(t, err, ErrUnrankFailure)
}

func TestFixedSliceLargeLanguageCapacityAndRoundTrip(t *testing.T) {
	a := buildChainAutomaton(200, []byte{'a', 'b'})
	l, err := New(nil, "ab200", a, 200, true)
	require.NoError(t, err)
	require.Equal(t, 72, l.Capacity()) // floor(log2(2^200)) - 128 == 72

	c := bigint.FromBytes([]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF, 0x01})
	word, err := l.Unrank(c)
	require.NoError(t, err)
	require.Len(t, word, 200)
	for _, b := range word {
		require.True(t, b == 'a' || b == 'b')
	}

	back, err := l.Rank(word)
	require.NoError(t, err)
	require.True(t, back.Equal(c))
}

func TestVariableLengthHTTPVerbRoundTrip(t *testing.T) {
	a := buildHTTPVerbAutomaton()
	l, err := New(nil, "httpRequest", a, 64, false)
	require.NoError(t, err)
	require.GreaterOrEqual(t, l.Capacity(), 50)

	c := bigint.FromUint64(0x0002_5A5A_5A5A_5A5A) // arbitrary ~50-bit payload
	word, err := l.Unrank(c)
	require.NoError(t, err)
	require.LessOrEqual(t, len(word), 64)
	require.True(t, string(word[:4]) == "GET " || string(word[:5]) == "POST ")

	back, err := l.Rank(word)
	require.NoError(t, err)
	require.True(t, back.Equal(c))
}

func TestNextTemplateCapacity(t *testing.T) {
	a := buildChainAutomaton(200, []byte{'a', 'b'})
	l, err := New(nil, "ab200", a, 200, true)
	require.NoError(t, err)

	cap, err := l.NextTemplateCapacity("000", 50)
	require.NoError(t, err)
	require.Equal(t, 72, cap)

	_, err = l.NextTemplateCapacity("000", 1000)
	require.ErrorIs(t, err, ErrCapacityTooSmall)
}

func mustUint64(i *bigint.Int) uint64 {
	b := i.Bytes(8)
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}
