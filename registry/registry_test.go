package registry_test

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/drand/fte/aeadheader"
	"github.com/drand/fte/config"
	"github.com/drand/fte/dfa"
	"github.com/drand/fte/log"
	"github.com/drand/fte/registry"
)

// countingLoader builds the same small fixed-length automaton on every
// call but counts how many times Load actually ran, so tests can assert
// the registry coalesces concurrent callers onto a single build.
type countingLoader struct {
	calls int32
	n     int
}

func (l *countingLoader) Load(string) (*dfa.Automaton, error) {
	atomic.AddInt32(&l.calls, 1)
	a := dfa.NewAutomaton(l.n+1, 0)
	for i := 0; i < l.n; i++ {
		a.SetTransition(i, 'a', i+1)
		a.SetTransition(i, 'b', i+1)
	}
	a.SetAccept(l.n, true)
	return a, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{General: config.General{DFADir: "/unused"}}
	cfg.Languages.Regex = map[string]config.LanguageConfig{"ab": {MTU: 140, FixedSlice: true, AllowAEBits: true}}
	cfg.Runtime.FTE.RecordLayer.MaxCellSize = 4096
	return cfg
}

func testAE(t *testing.T) aeadheader.Primitive {
	t.Helper()
	ae, err := aeadheader.New([]byte("registry test master secret"))
	require.NoError(t, err)
	return ae
}

func TestCodec_BuildsOnceUnderConcurrency(t *testing.T) {
	loader := &countingLoader{n: 140}
	reg := registry.New(testConfig(), testAE(t), registry.WithLoader(loader))

	const callers = 10
	var wg sync.WaitGroup
	codecs := make([]interface{}, callers)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			c, err := reg.Codec("ab")
			require.NoError(t, err)
			codecs[i] = c
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, loader.calls)
	first := codecs[0]
	for _, c := range codecs {
		require.Same(t, first, c)
	}
}

func TestCodec_UnknownLanguage(t *testing.T) {
	reg := registry.New(testConfig(), testAE(t), registry.WithLoader(&countingLoader{n: 140}))
	_, err := reg.Codec("nope")
	require.ErrorIs(t, err, dfa.ErrLanguageDoesntExist)
}

func TestCodec_PropagatesLanguageConstructionError(t *testing.T) {
	cfg := testConfig()
	cfg.Languages.Regex["ab"] = config.LanguageConfig{MTU: 1, FixedSlice: true, AllowAEBits: true}
	reg := registry.New(cfg, testAE(t), registry.WithLoader(&countingLoader{n: 1}))

	_, err := reg.Codec("ab")
	require.ErrorIs(t, err, dfa.ErrCapacityTooSmall)
}

func TestLanguage_ReflectsBuiltState(t *testing.T) {
	reg := registry.New(testConfig(), testAE(t), registry.WithLoader(&countingLoader{n: 140}))

	_, ok := reg.Language("ab")
	require.False(t, ok, "not built yet")

	_, err := reg.Codec("ab")
	require.NoError(t, err)

	lang, ok := reg.Language("ab")
	require.True(t, ok)
	require.Equal(t, 140, lang.N)
}

func TestPartitions(t *testing.T) {
	reg := registry.New(testConfig(), testAE(t), registry.WithLoader(&countingLoader{n: 140}))
	require.Equal(t, []string{"000"}, reg.GetPartitions())
	require.Equal(t, "000", reg.DeterminePartition([]byte("anything")))
}

func TestTeardown_ClearsCache(t *testing.T) {
	reg := registry.New(testConfig(), testAE(t), registry.WithLoader(&countingLoader{n: 140}))
	_, err := reg.Codec("ab")
	require.NoError(t, err)

	require.NoError(t, reg.Teardown())

	_, ok := reg.Language("ab")
	require.False(t, ok, "teardown should drop cached state")
}

func TestWithClock_UsedForBuildDuration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var buf bytes.Buffer
	logger := log.New(zapcore.AddSync(&buf), log.InfoLevel, true)
	reg := registry.New(testConfig(), testAE(t), registry.WithLoader(&countingLoader{n: 140}),
		registry.WithClock(clock), registry.WithLogger(logger))
	_, err := reg.Codec("ab")
	require.NoError(t, err)

	// The fake clock never advances, so the logged build duration is
	// exactly zero; a real clock would log a non-zero fraction of a second.
	require.Contains(t, buf.String(), `"build_duration":0}`)
}
