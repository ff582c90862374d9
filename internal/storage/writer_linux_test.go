//go:build linux

package storage

import (
	"syscall"
	"testing"

	"github.com/nsvirk/nsequotes/internal/quote/quotetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// limitFileSize caps the size of files this process may write until the
// returned func is called.
func limitFileSize(t *testing.T, size uint64) func() {
	t.Helper()
	var prev syscall.Rlimit
	require.NoError(t, syscall.Getrlimit(syscall.RLIMIT_FSIZE, &prev))

	limited := prev
	limited.Cur = size
	require.NoError(t, syscall.Setrlimit(syscall.RLIMIT_FSIZE, &limited))

	restored := false
	restore := func() {
		if !restored {
			restored = true
			require.NoError(t, syscall.Setrlimit(syscall.RLIMIT_FSIZE, &prev))
		}
	}
	t.Cleanup(restore)
	return restore
}

func TestWriter_FailedFirstWriteKeepsHeader(t *testing.T) {
	w, _ := newTestWriter(t)
	raw := quotetest.Document("SBIN", quotetest.Call("25-Jan-2024", "X1", 600))
	doc := parse(t, raw)
	path, err := w.ContractPath("SBIN", "25-Jan-2024", "X1")
	require.NoError(t, err)

	restore := limitFileSize(t, 0)
	result, err := w.Write("SBIN", raw, doc)
	restore()

	require.Error(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.NoFileExists(t, path)

	result, err = w.Write("SBIN", raw, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Written)

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, header, lines[0])
}
