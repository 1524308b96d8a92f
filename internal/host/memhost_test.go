package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemHost_Split(t *testing.T) {
	h := NewMemHost(80, 24)

	id, err := h.Split(SideBottom, 6, -1)
	require.NoError(t, err)
	assert.True(t, h.Live(id))

	size, ok := h.WindowSize(id)
	require.True(t, ok)
	assert.Equal(t, 6, size)
}

func TestMemHost_SplitCapacity(t *testing.T) {
	h := NewMemHost(80, 10)

	// 10 rows: the main region keeps one, so 9 are available vertically
	_, err := h.Split(SideBottom, 5, -1)
	require.NoError(t, err)
	_, err = h.Split(SideTop, 4, -1)
	require.NoError(t, err)

	_, err = h.Split(SideBottom, 1, -1)
	assert.ErrorIs(t, err, ErrSplitImpossible)

	// Columns are a separate axis and still free
	_, err = h.Split(SideLeft, 20, -1)
	assert.NoError(t, err)
}

func TestMemHost_SplitInsertionIndex(t *testing.T) {
	h := NewMemHost(80, 24)

	a, err := h.Split(SideBottom, 3, -1)
	require.NoError(t, err)
	b, err := h.Split(SideBottom, 3, -1)
	require.NoError(t, err)

	// Insert between the two
	c, err := h.Split(SideBottom, 3, 1)
	require.NoError(t, err)

	assert.Equal(t, []WindowID{a, c, b}, h.SideWindows(SideBottom))
}

func TestMemHost_CloseFiresHooks(t *testing.T) {
	h := NewMemHost(80, 24)

	var deleted []WindowID
	h.OnDelete(func(id WindowID) { deleted = append(deleted, id) })

	id, err := h.Split(SideBottom, 4, -1)
	require.NoError(t, err)

	require.NoError(t, h.Close(id))
	assert.Equal(t, []WindowID{id}, deleted)
	assert.False(t, h.Live(id))

	assert.ErrorIs(t, h.Close(id), ErrNoWindow)
}

func TestMemHost_CloseSelectedFiresFocus(t *testing.T) {
	h := NewMemHost(80, 24)

	id, err := h.Split(SideBottom, 4, -1)
	require.NoError(t, err)
	require.NoError(t, h.Select(id))

	var events [][2]WindowID
	h.OnFocus(func(prev, cur WindowID) { events = append(events, [2]WindowID{prev, cur}) })

	require.NoError(t, h.Close(id))
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0][0])
	assert.Equal(t, WindowID(""), events[0][1])
	assert.Equal(t, WindowID(""), h.Selected())
}

func TestMemHost_Meta(t *testing.T) {
	h := NewMemHost(80, 24)

	id, err := h.Split(SideRight, 20, -1)
	require.NoError(t, err)

	require.NoError(t, h.SetMeta(id, "k", "v"))
	v, ok := h.Meta(id, "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, h.DeleteMeta(id, "k"))
	_, ok = h.Meta(id, "k")
	assert.False(t, ok)
}

func TestMemHost_SaveRestoreLayout(t *testing.T) {
	h := NewMemHost(80, 24)
	h.SetMainBuffer("main.txt")

	before, err := h.SaveLayout()
	require.NoError(t, err)

	id, err := h.Split(SideBottom, 6, -1)
	require.NoError(t, err)
	require.NoError(t, h.SetBuffer(id, "*Help*"))
	require.NoError(t, h.Select(id))

	var deleted []WindowID
	h.OnDelete(func(id WindowID) { deleted = append(deleted, id) })

	require.NoError(t, h.RestoreLayout(before))

	// The restore is the host's own teardown: no deletion hooks
	assert.Empty(t, deleted)
	assert.False(t, h.Live(id))
	assert.Equal(t, "main.txt", h.MainBuffer())

	after, err := h.SaveLayout()
	require.NoError(t, err)
	assert.Equal(t, before, after, "identical states serialize identically")
}

func TestMemHost_MetaSurvivesSaveRestore(t *testing.T) {
	h := NewMemHost(80, 24)

	id, err := h.Split(SideBottom, 6, -1)
	require.NoError(t, err)
	require.NoError(t, h.SetMeta(id, "marker", "1"))

	snap, err := h.SaveLayout()
	require.NoError(t, err)

	fresh := NewMemHost(1, 1)
	require.NoError(t, fresh.RestoreLayout(snap))

	v, ok := fresh.Meta(id, "marker")
	require.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestMemHost_RequestDisplayInterception(t *testing.T) {
	h := NewMemHost(80, 24)

	handled, err := h.Split(SideTop, 3, -1)
	require.NoError(t, err)

	h.OnDisplay(func(buffer string, override *Override) (WindowID, bool) {
		if buffer == "*Help*" {
			return handled, true
		}
		return "", false
	})

	win, err := h.RequestDisplay("*Help*", nil)
	require.NoError(t, err)
	assert.Equal(t, handled, win)

	// Unhandled requests get the default bottom split
	win, err = h.RequestDisplay("other", nil)
	require.NoError(t, err)
	require.NotEqual(t, WindowID(""), win)

	info, ok := h.Info(win)
	require.True(t, ok)
	assert.Equal(t, SideBottom, info.Side)
	assert.Equal(t, "other", info.Buffer)
}

func TestMemHost_ContentSize(t *testing.T) {
	h := NewMemHost(80, 24)

	h.SetContentSize("*Messages*", 40, 7)
	cols, rows := h.ContentSize("*Messages*")
	assert.Equal(t, 40, cols)
	assert.Equal(t, 7, rows)

	// Unmeasured buffers fall back to a name-derived estimate
	_, rows = h.ContentSize("one\ntwo\nthree")
	assert.Equal(t, 3, rows)
}

func TestMemHost_Resize(t *testing.T) {
	h := NewMemHost(80, 24)

	id, err := h.Split(SideBottom, 6, -1)
	require.NoError(t, err)

	require.NoError(t, h.Resize(id, 10))
	size, _ := h.WindowSize(id)
	assert.Equal(t, 10, size)

	// Growing past capacity fails, shrinking back is fine
	assert.Error(t, h.Resize(id, 24))
	assert.NoError(t, h.Resize(id, 2))
}
