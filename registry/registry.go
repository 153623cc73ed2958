// Package registry implements the process-wide language registry,
// per spec.md §4.4: construct each named DFA language's Table at most
// once no matter how many callers race for it, and hand out a ready
// record.Codec built on top.
//
// The double-checked construction pattern mirrors the teacher's own
// guard against repeating expensive, idempotent work: DefaultLogger in
// log/log.go gates its one-time zap construction behind sync.Once. A
// registry needs the same guard per cache key rather than once per
// process, so it is built from a mutex-guarded map of per-key
// *sync.Once rather than a single top-level sync.Once.
package registry

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	multierror "github.com/hashicorp/go-multierror"

	"github.com/drand/fte/aeadheader"
	"github.com/drand/fte/config"
	"github.com/drand/fte/dfa"
	"github.com/drand/fte/log"
	"github.com/drand/fte/metrics"
	"github.com/drand/fte/record"
)

// entry is one cached, fully-built language plus its codec.
type entry struct {
	once     sync.Once
	language *dfa.Language
	codec    *record.Codec
	err      error
}

// Registry caches *dfa.Language/*record.Codec pairs by name, building
// each one at most once. The zero value is not usable; construct one
// with New.
type Registry struct {
	cfg    *config.Config
	loader dfa.Loader
	ae     aeadheader.Primitive
	logger log.Logger
	clock  clockwork.Clock

	mu    sync.Mutex
	cache map[string]*entry
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithLoader overrides the default dfa.FileLoader, e.g. for tests that
// never touch the filesystem.
func WithLoader(l dfa.Loader) Option {
	return func(r *Registry) { r.loader = l }
}

// WithLogger overrides the default logger.
func WithLogger(l log.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithClock overrides the default real clock, for deterministic tests
// of build-duration logging.
func WithClock(c clockwork.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// New builds a Registry over cfg. The AE primitive is shared by every
// codec the registry hands out, matching spec.md §6's single
// operator-provisioned master secret per process.
func New(cfg *config.Config, ae aeadheader.Primitive, opts ...Option) *Registry {
	r := &Registry{
		cfg:    cfg,
		ae:     ae,
		loader: dfa.FileLoader{},
		logger: log.DefaultLogger(),
		clock:  clockwork.NewRealClock(),
		cache:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry, built from the cfg and ae
// passed on the first call; later calls ignore their arguments. The
// tests and cmd/fte construct their own Registry with New instead.
func Default(cfg *config.Config, ae aeadheader.Primitive) *Registry {
	defaultOnce.Do(func() {
		defaultReg = New(cfg, ae)
	})
	return defaultReg
}

func (r *Registry) entryFor(name string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cache[name]
	if !ok {
		e = &entry{}
		r.cache[name] = e
	}
	return e
}

// Codec returns the ready-to-use record.Codec for the named language,
// building it (and the underlying dfa.Language) on first request. Every
// later call, including ones racing the first, returns the same
// *record.Codec built exactly once: spec.md §8's "Registry idempotence"
// scenario.
func (r *Registry) Codec(name string) (*record.Codec, error) {
	lc, ok := r.cfg.Language(name)
	if !ok {
		return nil, fmt.Errorf("registry: %w: %q", dfa.ErrLanguageDoesntExist, name)
	}

	e := r.entryFor(name)
	e.once.Do(func() {
		start := r.clock.Now()
		automaton, err := r.loader.Load(r.cfg.DFAPath(name))
		if err != nil {
			e.err = fmt.Errorf("registry: loading %q: %w: %v", name, dfa.ErrLanguageDoesntExist, err)
			return
		}
		lang, err := dfa.New(r.logger, name, automaton, lc.MTU, lc.FixedSlice)
		if err != nil {
			e.err = err
			return
		}
		e.language = lang
		e.codec = &record.Codec{
			Language:    record.Wrap(lang),
			AE:          r.ae,
			AllowAEBits: lc.AllowAEBits,
			MaxCellSize: r.cfg.MaxCellSize(),
			Logger:      r.logger,
			Name:        name,
		}
		metrics.LanguageCapacityBits.WithLabelValues(name).Set(float64(lang.Capacity()))
		log.ForLanguage(r.logger, name).Infow("language built",
			"mtu", lc.MTU, "capacity", lang.Capacity(),
			"build_duration", r.clock.Now().Sub(start))
	})
	if e.err != nil {
		return nil, e.err
	}
	return e.codec, nil
}

// Language returns the cached dfa.Language backing name, if it has been
// built, primarily so httpapi's /languages endpoint can report capacity
// and num_words without re-deriving them.
func (r *Registry) Language(name string) (*dfa.Language, bool) {
	r.mu.Lock()
	e, ok := r.cache[name]
	r.mu.Unlock()
	if !ok || e.language == nil {
		return nil, false
	}
	return e.language, true
}

// GetPartitions returns the set of partition names this registry
// serves. The engine is single-language per spec.md §4.4's degenerate
// partition scheme, so there is exactly one, fixed, partition: a future
// Compound encoder (spec.md §9 "Polymorphism") would return one entry
// per sub-language instead.
func (r *Registry) GetPartitions() []string {
	return []string{"000"}
}

// DeterminePartition returns the partition a message belongs to. With a
// single degenerate partition this ignores msg entirely; it exists as
// the seam a Compound encoder's content-sniffing dispatch would occupy.
func (r *Registry) DeterminePartition(_ []byte) string {
	return "000"
}

// Teardown releases every cached language. There is no per-language
// file handle to close in this implementation (dfa.FileLoader reads and
// closes eagerly in Load), so teardown's only real job today is
// clearing the cache; it is still structured to aggregate per-language
// release failures via go-multierror; so a future Loader that does hold
// a handle (an mmap'd DFA file, say) can plug in without registry's
// callers changing how they handle teardown errors.
func (r *Registry) Teardown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs *multierror.Error
	if closer, ok := r.loader.(dfa.Closer); ok {
		for name := range r.cache {
			if err := closer.Close(name); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("registry: releasing %q: %w", name, err))
			}
		}
	}
	r.cache = make(map[string]*entry)
	return errs.ErrorOrNil()
}
