package store_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-tilepyramid/store"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, st interface {
	store.Store
	Mapped() int
}) {
	t.Helper()

	page := int(max(st.Alignment(), 16))
	data := bytes.Repeat([]byte("0123456789abcdef"), 3*page/16)
	_, err := st.WriteAt(data[:page], 0)
	require.NoError(t, err)
	_, err = st.WriteAt(data[page:], int64(page))
	require.NoError(t, err)

	// unaligned ranges, including one crossing a page boundary
	for _, r := range [][2]int{{0, 16}, {5, 11}, {page - 3, 7}, {2*page + 1, page - 1}} {
		b, err := st.Map(int64(r[0]), r[1])
		require.NoError(t, err)
		require.Equal(t, data[r[0]:r[0]+r[1]], b)
		require.Equal(t, 1, st.Mapped())
		require.NoError(t, st.Unmap(b))
		require.Equal(t, 0, st.Mapped())
	}

	a, err := st.Map(3, 5)
	require.NoError(t, err)
	b, err := st.Map(3, 5)
	require.NoError(t, err)
	require.Equal(t, 2, st.Mapped())
	require.NoError(t, st.Unmap(a))
	require.NoError(t, st.Unmap(b))
	require.Equal(t, 0, st.Mapped())

	require.ErrorIs(t, st.Unmap(make([]byte, 4)), store.ErrNotMapped)
	require.ErrorIs(t, st.Unmap(nil), store.ErrNotMapped)
}

func TestMemory(t *testing.T) {
	st := store.NewMemory()
	testStore(t, st)
	require.Equal(t, 48, st.Len())

	_, err := st.Map(0, st.Len()+1)
	require.Error(t, err)
	require.NoError(t, st.Close())
}

func TestFileTemp(t *testing.T) {
	dir := t.TempDir()
	st, err := store.CreateTemp(dir)
	require.NoError(t, err)
	testStore(t, st)

	name := st.Name()
	require.NoError(t, st.Close())
	_, err = os.Stat(name)
	require.True(t, os.IsNotExist(err), "temporary store not removed: %v", err)
}

func TestFileCreateOpen(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "tiles.cache")
	st, err := store.Create(filePath)
	require.NoError(t, err)
	testStore(t, st)

	// leftover mappings are released on Close
	_, err = st.Map(0, 8)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	reopened, err := store.Open(filePath)
	require.NoError(t, err)
	defer reopened.Close()

	size, err := reopened.Size()
	require.NoError(t, err)
	require.Equal(t, 3*int64(os.Getpagesize()), size)

	b, err := reopened.Map(17, 4)
	require.NoError(t, err)
	require.Equal(t, []byte("1234"), b)
	require.NoError(t, reopened.Unmap(b))
}

func TestFileMapPastEnd(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "short.cache")
	require.NoError(t, os.WriteFile(filePath, make([]byte, 16), 0644))

	st, err := store.Open(filePath)
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Map(8, 9)
	require.Error(t, err)
	_, err = st.Map(1<<20, 16)
	require.Error(t, err)
	require.Equal(t, 0, st.Mapped())

	b, err := st.Map(8, 8)
	require.NoError(t, err)
	require.NoError(t, st.Unmap(b))

	created, err := store.Create(filepath.Join(t.TempDir(), "tiles.cache"))
	require.NoError(t, err)
	defer created.Close()
	_, err = created.Map(0, 4)
	require.Error(t, err)
	_, err = created.WriteAt([]byte("abcd"), 0)
	require.NoError(t, err)
	b, err = created.Map(0, 4)
	require.NoError(t, err)
	require.Equal(t, []byte("abcd"), b)
	require.NoError(t, created.Unmap(b))
}
