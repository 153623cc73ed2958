package dfa

import "github.com/drand/fte/bigint"

// Table holds T[q][i], the number of strings of length exactly i accepted
// from state q, for i in [0, N]. It is stored column-major (one slice per
// length, indexed by state) per spec.md §4.2's "Design notes": T
// dominates memory at |Q| * (N+1) big integers, and building it
// length-by-length lets each column reuse the previous one without
// retaining unrelated lengths alive longer than necessary.
type Table struct {
	n   int
	cols [][]*bigint.Int // cols[i][q] = T[q][i], i in [0, n]
}

// buildTable materializes T bottom-up per spec.md §4.2/§3:
//
//	T[q][0]   = 1 if q accepting else 0
//	T[q][i+1] = sum over a in Sigma with delta(q,a) != bottom of T[delta(q,a)][i]
func buildTable(a *Automaton, n int) *Table {
	t := &Table{n: n, cols: make([][]*bigint.Int, n+1)}

	col0 := make([]*bigint.Int, a.NumStates)
	for q := 0; q < a.NumStates; q++ {
		if a.Accept[q] {
			col0[q] = bigint.FromUint64(1)
		} else {
			col0[q] = bigint.Zero()
		}
	}
	t.cols[0] = col0

	for i := 0; i < n; i++ {
		prev := t.cols[i]
		cur := make([]*bigint.Int, a.NumStates)
		for q := 0; q < a.NumStates; q++ {
			sum := bigint.Zero()
			for _, b := range a.Symbols(q) {
				next, _ := a.Delta(q, b)
				sum = bigint.Add(sum, prev[next])
			}
			cur[q] = sum
		}
		t.cols[i+1] = cur
	}
	return t
}

// At returns T[q][length].
func (t *Table) At(length, q int) *bigint.Int {
	return t.cols[length][q]
}
