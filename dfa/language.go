// Package dfa implements the DFA language engine: loading a DFA for a
// named language and a maximum word length (the MTU), precomputing the
// suffix-count table T, and exposing rank and unrank, per spec.md §4.2.
package dfa

import (
	"github.com/drand/fte/bigint"
	"github.com/drand/fte/log"
)

// Language is an immutable DFA plus a fixed maximum length N, per
// spec.md §3's data model. Once constructed it may be used concurrently
// by any number of Rank/Unrank calls without locking.
type Language struct {
	Name       string
	Automaton  *Automaton
	N          int
	FixedSlice bool

	table    *Table
	numWords *bigint.Int
	offset   *bigint.Int
	capacity int
}

// New builds a Language from an already-loaded automaton. It is the
// expensive call the registry exists to guard against repeating: the
// table build is O(N * |Q| * |Sigma|).
//
// New never consults configuration or touches the filesystem; callers
// (typically the registry) are responsible for resolving the DFA file
// for name and handing this function a parsed Automaton, per spec.md §6
// ("we assume a DFA is delivered already parsed").
func New(logger log.Logger, name string, a *Automaton, mtu int, fixedSlice bool) (*Language, error) {
	if logger == nil {
		logger = log.DefaultLogger()
	}
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

	if numWords.IsZero() {
		logger.Errorw("language is the empty set", "language", name, "mtu", mtu)
		return nil, ErrLanguageIsEmptySet
	}

	capacity := numWords.BitLen() - 1 - 128
	if capacity < 1 {
		logger.Errorw("language capacity too small to be usable as a carrier",
			"language", name, "mtu", mtu, "capacity", capacity)
		return nil, ErrCapacityTooSmall
	}

	logger.Debugw("language constructed",
		"language", name, "mtu", mtu, "fixed_slice", fixedSlice,
		"num_words_bits", numWords.BitLen(), "capacity", capacity)

	return &Language{
		Name:       name,
		Automaton:  a,
		N:          mtu,
		FixedSlice: fixedSlice,
		table:      table,
		numWords:   numWords,
		offset:     offset,
		capacity:   capacity,
	}, nil
}

// Capacity is floor(log2(NumWords)) - 128: the usable payload bits per
// record after reserving 128 bits for the encrypted header.
func (l *Language) Capacity() int { return l.capacity }

// NumWords is the count of accepted words in the externally visible rank
// space [0, NumWords).
func (l *Language) NumWords() *bigint.Int { return l.numWords.Clone() }

// NextTemplateCapacity returns the language's capacity, or an error if
// minCapacity exceeds it. It mirrors original_source's
// getNextTemplateCapacity(partition, minCapacity) hook for a future
// Compound encoder (spec.md §9 "Polymorphism"); partition is unused in
// this single-language engine, matching spec.md §4.4's degenerate
// partition scheme.
func (l *Language) NextTemplateCapacity(_ string, minCapacity int) (int, error) {
	if minCapacity > l.capacity {
		return 0, ErrCapacityTooSmall
	}
	return l.capacity, nil
}

// Rank walks the automaton from the start state reading x, returning the
// integer rank of x in [0, NumWords), per spec.md §4.2.
func (l *Language) Rank(x []byte) (*bigint.Int, error) {
	c := bigint.Zero()
	r := len(x)
	if r > l.N || (l.FixedSlice && r != l.N) {
		return nil, ErrRankFailure
	}

	// Shorter words rank below length-r words. In fixed-slice mode this
	// sum is exactly offset, which is subtracted again below.
	for j := 0; j < r; j++ {
		c = bigint.Add(c, l.table.At(j, l.Automaton.Start))
	}

	q := l.Automaton.Start
	for i, a := range x {
		remaining := r - i - 1
		for _, b := range l.Automaton.Symbols(q) {
			if b >= a {
				break
			}
			next, _ := l.Automaton.Delta(q, b)
			c = bigint.Add(c, l.table.At(remaining, next))
		}
		next, ok := l.Automaton.Delta(q, a)
		if !ok {
			return nil, ErrRankFailure
		}
		q = next
	}

	if !l.Automaton.Accept[q] {
		return nil, ErrRankFailure
	}

	if l.FixedSlice {
		c = bigint.Sub(c, l.offset)
	}
	return c, nil
}

// Unrank is the inverse of Rank: given an integer in [0, NumWords) it
// reconstructs the accepted word, per spec.md §4.2.
func (l *Language) Unrank(c *bigint.Int) ([]byte, error) {
	c = c.Clone()
	if l.FixedSlice {
		c = bigint.Add(c, l.offset)
	}

	// Find the length slab c falls in. In fixed-slice mode the added
	// offset consumes every slab shorter than N, so r ends up N.
	r := l.N
	found := false
	for j := 0; j <= l.N; j++ {
		s := l.table.At(j, l.Automaton.Start)
		if c.Cmp(s) < 0 {
			r = j
			found = true
			break
		}
		c = bigint.Sub(c, s)
	}
	if !found {
		return nil, ErrUnrankFailure
	}

	out := make([]byte, 0, r)
	q := l.Automaton.Start
	for i := 0; i < r; i++ {
		remaining := r - i - 1
		chosen := false
		for _, b := range l.Automaton.Symbols(q) {
			next, _ := l.Automaton.Delta(q, b)
			s := l.table.At(remaining, next)
			if c.Cmp(s) < 0 {
				out = append(out, b)
				q = next
				chosen = true
				break
			}
			c = bigint.Sub(c, s)
		}
		if !chosen {
			return nil, ErrUnrankFailure
		}
	}

	if !l.Automaton.Accept[q] {
		return nil, ErrUnrankFailure
	}
	return out, nil
}
