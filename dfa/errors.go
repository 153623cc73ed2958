package dfa

import "errors"

// Named error conditions, per spec.md §6 "Error surface" and §7
// "Error handling design". Defined beside the code that raises them,
// matching the teacher's convention (e.g. ecies.Encrypt/Decrypt define
// their own sentinel errors locally rather than importing a shared
// errors package).
var (
	// ErrLanguageDoesntExist is returned when the named DFA file cannot
	// be located under general.dfa_dir.
	ErrLanguageDoesntExist = errors.New("dfa: language does not exist")

	// ErrLanguageIsEmptySet is returned when a loaded language accepts
	// zero words (num_words == 0) for the configured mtu/fixed_slice.
	ErrLanguageIsEmptySet = errors.New("dfa: language is the empty set")

	// ErrCapacityTooSmall is returned when floor(log2(num_words)) - 128
	// is less than 1: spec.md §3 requires "capacity >= 1 for a language
	// to be usable as a carrier", naming the invariant but not an error;
	// we name it so construction fails loudly instead of producing a
	// Language no caller could safely use.
	ErrCapacityTooSmall = errors.New("dfa: language capacity too small to carry any payload bits")

	// ErrRankFailure is returned when rank cannot walk the automaton to
	// an accepting state for the given word (undefined transition, or
	// the final state is not accepting).
	ErrRankFailure = errors.New("dfa: rank failure")

	// ErrUnrankFailure is returned when an integer falls outside
	// [0, num_words) and therefore names no accepted word.
	ErrUnrankFailure = errors.New("dfa: unrank failure")
)
