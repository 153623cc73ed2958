package dfa

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadAutomatonRoundTrip(t *testing.T) {
	original := buildHTTPVerbAutomaton()

	var buf bytes.Buffer
	require.NoError(t, WriteAutomaton(&buf, original))

	parsed, err := ReadAutomaton(&buf)
	require.NoError(t, err)

	require.Equal(t, original.NumStates, parsed.NumStates)
	require.Equal(t, original.Start, parsed.Start)
	require.Equal(t, original.Accept, parsed.Accept)

	for q := 0; q < original.NumStates; q++ {
		for b := 0; b < 256; b++ {
			wantNext, wantOK := original.Delta(q, byte(b))
			gotNext, gotOK := parsed.Delta(q, byte(b))
			require.Equal(t, wantOK, gotOK)
			require.Equal(t, wantNext, gotNext)
		}
	}
}

func TestFileLoaderRoundTrip(t *testing.T) {
	a := buildChainAutomaton(4, []byte{'a', 'b'})
	dir := t.TempDir()
	path := filepath.Join(dir, "toy.dfa")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteAutomaton(f, a))
	require.NoError(t, f.Close())

	loaded, err := (FileLoader{}).Load(path)
	require.NoError(t, err)
	require.Equal(t, a.NumStates, loaded.NumStates)
}

func TestFileLoaderMissingFile(t *testing.T) {
	_, err := (FileLoader{}).Load(filepath.Join(t.TempDir(), "nope.dfa"))
	require.Error(t, err)
}

func TestReadAutomatonRejectsBadMagic(t *testing.T) {
	_, err := ReadAutomaton(bytes.NewReader([]byte{0, 0, 0, 0, 0, 1}))
	require.Error(t, err)
}
