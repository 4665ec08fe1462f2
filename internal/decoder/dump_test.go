package decoder

import (
	"os"
	"testing"

	"github.com/erik-persson/oric-toolbox/internal/sound"
	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drainAndClose exhausts a ByteDecoder and, if it implements Close,
// flushes its diagnostic dump.
func drainAndClose(t *testing.T, dec interface {
	DecodeByte() (tapefmt.DecodedByte, bool)
}) {
	t.Helper()
	for {
		if _, ok := dec.DecodeByte(); !ok {
			break
		}
	}
	if c, ok := dec.(closeableForTest); ok {
		require.NoError(t, c.Close())
	}
}

type closeableForTest interface {
	Close() error
}

func TestDemodDecoderDumpWritesFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	src := sound.NewMem(9600, 48000)
	opts := tapefmt.DefaultOptions()
	opts.Filename = "silence.wav"
	opts.Dump = true
	d := NewDemodDecoder(src, opts)

	drainAndClose(t, d)

	_, statErr := os.Stat("dump-demod.wav")
	assert.NoError(t, statErr)
}

func TestXenonDecoderDumpWritesFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	src := sound.NewMem(9600, 48000)
	opts := tapefmt.DefaultOptions()
	opts.Filename = "silence.wav"
	opts.Dump = true
	d := NewXenonDecoder(src, opts)

	drainAndClose(t, d)

	_, statErr := os.Stat("dump-xenon.wav")
	assert.NoError(t, statErr)
}

func TestDualDecoderDumpWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	src := sound.NewMem(9600, 48000)
	opts := tapefmt.DefaultOptions()
	opts.Filename = "silence.wav"
	opts.Dump = true
	d := NewDualDecoder(src, opts)

	drainAndClose(t, d)

	_, err = os.Stat("dump-dual-slow.wav")
	assert.NoError(t, err)
	_, err = os.Stat("dump-dual-fast.wav")
	assert.NoError(t, err)
}
