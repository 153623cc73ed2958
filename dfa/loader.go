package dfa

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Loader resolves a parsed Automaton. spec.md §6 treats the on-disk DFA
// file format as implementation-defined and requires only that the
// loader expose delta, q0, the accept predicate and the alphabet; this
// interface is the seam a test or an alternate storage backend plugs
// into instead of the default file-backed loader.
type Loader interface {
	Load(path string) (*Automaton, error)
}

// Closer is a capability a Loader may optionally implement to release
// per-language resources (an mmap'd DFA file, say) when a registry
// tears down. FileLoader holds no such resource; it reads and closes
// its os.File within Load and does not implement Closer.
type Closer interface {
	Close(name string) error
}

// FileLoader reads the binary .dfa container format defined by
// WriteAutomaton below: a flat, self-describing transition table. There is no
// third-party serialization library in the example corpus suited to a
// small fixed-shape binary container like this (protobuf/grpc-gateway
// wire formats in the teacher's stack exist to serve RPC messages across
// service boundaries, not an on-disk automaton blob); encoding/binary is
// the direct, dependency-free fit, so no library is wired here (see
// DESIGN.md).
type FileLoader struct{}

const (
	dfaMagic   uint32 = 0x46544400 // "FTD\x00"
	dfaVersion uint16 = 1
)

// Load reads path and parses it as a dfaMagic-tagged automaton.
func (FileLoader) Load(path string) (*Automaton, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAutomaton(bufio.NewReader(f))
}

// ReadAutomaton parses the binary container format from r:
//
//	uint32 magic
//	uint16 version
//	uint32 numStates
//	uint32 start
//	uint32 numAccept,  []uint32 accept state ids
//	uint32 numTransitions, []{uint32 state, uint8 symbol, uint32 next}
func ReadAutomaton(r io.Reader) (*Automaton, error) {
	var magic uint32
	var version uint16
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("dfa: reading magic: %w", err)
	}
	if magic != dfaMagic {
		return nil, fmt.Errorf("dfa: bad magic %#x", magic)
	}
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("dfa: reading version: %w", err)
	}
	if version != dfaVersion {
		return nil, fmt.Errorf("dfa: unsupported version %d", version)
	}

	var numStates, start, numAccept uint32
	if err := binary.Read(r, binary.BigEndian, &numStates); err != nil {
		return nil, fmt.Errorf("dfa: reading numStates: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &start); err != nil {
		return nil, fmt.Errorf("dfa: reading start: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &numAccept); err != nil {
		return nil, fmt.Errorf("dfa: reading numAccept: %w", err)
	}

	a := NewAutomaton(int(numStates), int(start))
	for i := uint32(0); i < numAccept; i++ {
		var q uint32
		if err := binary.Read(r, binary.BigEndian, &q); err != nil {
			return nil, fmt.Errorf("dfa: reading accept state %d: %w", i, err)
		}
		a.SetAccept(int(q), true)
	}

	var numTransitions uint32
	if err := binary.Read(r, binary.BigEndian, &numTransitions); err != nil {
		return nil, fmt.Errorf("dfa: reading numTransitions: %w", err)
	}
	for i := uint32(0); i < numTransitions; i++ {
		var q, next uint32
		var symbol uint8
		if err := binary.Read(r, binary.BigEndian, &q); err != nil {
			return nil, fmt.Errorf("dfa: reading transition %d state: %w", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &symbol); err != nil {
			return nil, fmt.Errorf("dfa: reading transition %d symbol: %w", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &next); err != nil {
			return nil, fmt.Errorf("dfa: reading transition %d next: %w", i, err)
		}
		a.SetTransition(int(q), symbol, int(next))
	}
	return a, nil
}

// WriteAutomaton serializes a in the format ReadAutomaton understands.
// Used by tooling that compiles a DFA offline; the core never calls it.
func WriteAutomaton(w io.Writer, a *Automaton) error {
	if err := binary.Write(w, binary.BigEndian, dfaMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, dfaVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(a.NumStates)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(a.Start)); err != nil {
		return err
	}

	var acceptStates []uint32
	for q, ok := range a.Accept {
		if ok {
			acceptStates = append(acceptStates, uint32(q))
		}
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(acceptStates))); err != nil {
		return err
	}
	for _, q := range acceptStates {
		if err := binary.Write(w, binary.BigEndian, q); err != nil {
			return err
		}
	}

	type transition struct {
		q, next uint32
		symbol  uint8
	}
	var transitions []transition
	for q := 0; q < a.NumStates; q++ {
		for _, b := range a.Symbols(q) {
			next, _ := a.Delta(q, b)
			transitions = append(transitions, transition{uint32(q), uint32(next), b})
		}
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(transitions))); err != nil {
		return err
	}
	for _, tr := range transitions {
		if err := binary.Write(w, binary.BigEndian, tr.q); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, tr.symbol); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, tr.next); err != nil {
			return err
		}
	}
	return nil
}
