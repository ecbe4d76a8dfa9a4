package daemon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoscrub/core"
	"photoscrub/internal/config"
)

// ─── fixtures ────────────────────────────────────────────────────────────────

func pngChunkBytes(typ string, data []byte) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(len(data)))
	out = append(out, typ...)
	out = append(out, data...)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	sum := make([]byte, 4)
	binary.BigEndian.PutUint32(sum, crc.Sum32())
	return append(out, sum...)
}

func testPNG(extra ...[]byte) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})
	buf.Write(pngChunkBytes("IHDR", []byte{0, 0, 0, 8, 0, 0, 0, 8, 8, 2, 0, 0, 0}))
	for _, c := range extra {
		buf.Write(c)
	}
	buf.Write(pngChunkBytes("IDAT", []byte{1, 2, 3}))
	buf.Write(pngChunkBytes("IEND", nil))
	return buf.Bytes()
}

// testTIFF carries a single Make entry, with the string stored past the
// entry table. TIFF is a format the engine can read but not rewrite.
func testTIFF(manufacturer string) []byte {
	le := binary.LittleEndian
	out := []byte("II\x2A\x00")
	out = le.AppendUint32(out, 8)  // IFD0 offset
	out = le.AppendUint16(out, 1)  // entry count
	out = le.AppendUint16(out, 0x010F)
	out = le.AppendUint16(out, 2)  // ASCII
	out = le.AppendUint32(out, uint32(len(manufacturer)+1))
	out = le.AppendUint32(out, 26) // value offset, right after the IFD
	out = le.AppendUint32(out, 0)  // no next IFD
	out = append(out, manufacturer...)
	return append(out, 0)
}

func testFLAC(artist string) []byte {
	var vorbis bytes.Buffer
	le := binary.LittleEndian
	n := make([]byte, 4)
	le.PutUint32(n, 4)
	vorbis.Write(n)
	vorbis.WriteString("test")
	le.PutUint32(n, 1)
	vorbis.Write(n)
	entry := "ARTIST=" + artist
	le.PutUint32(n, uint32(len(entry)))
	vorbis.Write(n)
	vorbis.WriteString(entry)

	out := []byte("fLaC")
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, 0<<24|34)
	out = append(out, header...)
	out = append(out, make([]byte, 34)...)
	binary.BigEndian.PutUint32(header, 1<<31|4<<24|uint32(vorbis.Len()))
	out = append(out, header...)
	out = append(out, vorbis.Bytes()...)
	return append(out, 0xFF, 0xF8, 0x69, 0x18)
}

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := config.Default()
	cfg.Log.File = filepath.Join(t.TempDir(), "daemon.log")
	cfg.Log.Level = "error"
	d, err := New(cfg)
	require.NoError(t, err)
	return d
}

// ─── daemon ──────────────────────────────────────────────────────────────────

func TestNew_StatusBeforeStart(t *testing.T) {
	d := newTestDaemon(t)

	st := d.Status()
	assert.False(t, st.Running)
	assert.Empty(t, st.RunID)
}

func TestNew_UnwritableLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Log.File = filepath.Join(t.TempDir(), "missing", "daemon.log")

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestHandleFile_ScrubsSensitiveImageInPlace(t *testing.T) {
	d := newTestDaemon(t)
	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, testPNG(
		pngChunkBytes("tEXt", []byte("Author\x00Jane Doe")),
	), 0o640))

	require.NoError(t, d.handleFile(path))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(out, []byte("Jane Doe")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	assert.Equal(t, 1, d.processed)
	assert.Equal(t, 0, d.failed)
}

func TestHandleFile_LeavesCleanImageAlone(t *testing.T) {
	d := newTestDaemon(t)
	path := filepath.Join(t.TempDir(), "clean.png")
	original := testPNG()
	require.NoError(t, os.WriteFile(path, original, 0o644))

	require.NoError(t, d.handleFile(path))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, out)
	assert.Equal(t, 0, d.processed)
}

func TestHandleFile_FailsOpenOnUnrewritableFormat(t *testing.T) {
	d := newTestDaemon(t)
	path := filepath.Join(t.TempDir(), "scan.tif")
	original := testTIFF("Apple")
	require.NoError(t, os.WriteFile(path, original, 0o644))

	err := d.handleFile(path)
	assert.True(t, errors.Is(err, core.ErrEncodeFailure))

	out, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, original, out)
	assert.Equal(t, 0, d.processed)
	assert.Equal(t, 1, d.failed)
}

func TestHandleFile_RoutesAudio(t *testing.T) {
	d := newTestDaemon(t)
	path := filepath.Join(t.TempDir(), "song.flac")
	require.NoError(t, os.WriteFile(path, testFLAC("Jane Doe"), 0o644))

	require.NoError(t, d.handleFile(path))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(out, []byte("Jane Doe")))
	assert.Equal(t, 1, d.processed)
}

func TestHandleFile_SkipsUnknownFormat(t *testing.T) {
	d := newTestDaemon(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("grocery list"), 0o644))

	require.NoError(t, d.handleFile(path))
	assert.Equal(t, 0, d.processed)
	assert.Equal(t, 0, d.failed)
}
