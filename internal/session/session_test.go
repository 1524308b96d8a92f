package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/sidepop/internal/host"
	"github.com/jmylchreest/sidepop/internal/rules"
)

func testSnapshot(buffer string) Snapshot {
	return Snapshot{
		Buffer: buffer,
		Decision: rules.Decision{
			Buffer: buffer,
			Side:   host.SideBottom,
			Size:   rules.FractionSize(0.25),
			TTL:    5 * time.Second,
			Quit:   true,
		},
	}
}

func newTestFile(t *testing.T) *File {
	t.Helper()
	f, err := NewFile(filepath.Join(t.TempDir(), "session.jsonl"))
	require.NoError(t, err)
	return f
}

func TestFile_LoadMissing(t *testing.T) {
	f := newTestFile(t)

	snaps, err := f.Load()
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestFile_AppendLoad(t *testing.T) {
	f := newTestFile(t)

	require.NoError(t, f.Append(testSnapshot("*Help*")))
	require.NoError(t, f.Append(testSnapshot("*grep*")))

	snaps, err := f.Load()
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "*Help*", snaps[0].Buffer)
	assert.Equal(t, "*grep*", snaps[1].Buffer)
	assert.NotZero(t, snaps[0].SavedAt)

	d := snaps[0].Decision
	assert.Equal(t, host.SideBottom, d.Side)
	assert.Equal(t, rules.FractionSize(0.25), d.Size)
	assert.Equal(t, 5*time.Second, d.TTL)
}

func TestFile_WritesSchemaHeader(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, f.Append(testSnapshot("*Help*")))

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"sidepop_schema_version":1`)
}

func TestFile_UnsupportedSchema(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, os.WriteFile(f.Path(),
		[]byte(`{"sidepop_schema_version":99,"created_at":0}`+"\n"), 0600))

	_, err := f.Load()
	assert.Error(t, err)
}

func TestFile_SkipsMalformedLines(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, f.Append(testSnapshot("*Help*")))

	// Corrupt the file with a partial line
	fh, err := os.OpenFile(f.Path(), os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = fh.WriteString("{\"buffer\": \"*tru\n")
	require.NoError(t, err)
	require.NoError(t, fh.Close())

	require.NoError(t, f.Append(testSnapshot("*grep*")))

	snaps, err := f.Load()
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "*Help*", snaps[0].Buffer)
	assert.Equal(t, "*grep*", snaps[1].Buffer)
}

func TestFile_Rewrite(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, f.Append(testSnapshot("*old*")))

	require.NoError(t, f.Rewrite([]Snapshot{testSnapshot("*new*")}))

	snaps, err := f.Load()
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "*new*", snaps[0].Buffer)
}

func TestFile_Clear(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, f.Append(testSnapshot("*Help*")))
	require.NoError(t, f.Clear())

	snaps, err := f.Load()
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestFile_Closed(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, f.Close())

	assert.ErrorIs(t, f.Append(testSnapshot("x")), ErrClosed)
	_, err := f.Load()
	assert.ErrorIs(t, err, ErrClosed)
}
