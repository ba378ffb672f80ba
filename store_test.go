package facecapture

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestStoreSave(t *testing.T) {

	st, err := NewStore(t.TempDir(), 90)
	require.NoError(t, err)

	img := gocv.NewMatWithSize(30, 20, gocv.MatTypeCV8UC3)
	defer img.Close()

	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

	c, err := st.Save(img, at)
	require.NoError(t, err)

	assert.Equal(t, 20, c.Width)
	assert.Equal(t, 30, c.Height)
	assert.Equal(t, at, c.CapturedAt)

	name := filepath.Base(c.Path)
	assert.True(t, strings.HasPrefix(name, "face_bbox_20240309_140507_"), name)
	assert.True(t, strings.HasSuffix(name, c.Handle+".jpg"), name)

	// JPEG start of image marker
	require.GreaterOrEqual(t, len(c.JPEG), 2)
	assert.Equal(t, []byte{0xff, 0xd8}, c.JPEG[:2])

	path, err := st.Path(c.Handle)
	require.NoError(t, err)
	assert.Equal(t, c.Path, path)

	require.NoError(t, st.Remove(c.Handle))

	_, err = os.Stat(c.Path)
	assert.True(t, os.IsNotExist(err))

	_, err = st.Path(c.Handle)
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestStoreSaveEmpty(t *testing.T) {

	st, err := NewStore(t.TempDir(), 90)
	require.NoError(t, err)

	empty := gocv.NewMat()
	defer empty.Close()

	_, err = st.Save(empty, time.Now())
	assert.Error(t, err)
}

func TestStorePathRejectsBadHandle(t *testing.T) {

	st, err := NewStore(t.TempDir(), 90)
	require.NoError(t, err)

	_, err = st.Path("../../etc/passwd")
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestStoreCleanup(t *testing.T) {

	st, err := NewStore(t.TempDir(), 90)
	require.NoError(t, err)

	write := func(name string, age time.Duration) string {
		p := filepath.Join(st.Dir(), name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

		mt := time.Now().Add(-age)
		require.NoError(t, os.Chtimes(p, mt, mt))

		return p
	}

	stale := write("face_bbox_20240101_000000_a.jpg", 48*time.Hour)
	fresh := write("face_bbox_20240102_000000_b.jpg", time.Hour)
	other := write("notes.txt", 48*time.Hour)

	n, err := st.Cleanup(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(fresh)
	assert.NoError(t, err)

	_, err = os.Stat(other)
	assert.NoError(t, err)
}
