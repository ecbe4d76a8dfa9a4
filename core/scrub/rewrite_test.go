package scrub

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoscrub/core"
)

func TestStrip_JPEGRemovesSensitiveMetadata(t *testing.T) {
	res := Strip(testJPEG(xmpSegment(testXMPPacket)))

	require.NoError(t, res.Err)
	assert.True(t, res.Clean)
	assert.Equal(t, core.FmtJPEG, res.Format)
	assert.Equal(t, core.RiskHigh, res.Analysis.Risk)
	assert.Len(t, res.PayloadDigest, 64)

	m := Parse(res.Data)
	assert.Nil(t, m.GPS)
	assert.Nil(t, m.Device)
	assert.Nil(t, m.Caption)
	assert.Equal(t, "RGB", m.ColorModel)

	after := Analyze(res.Data)
	assert.False(t, after.HasSensitiveData)
	assert.Equal(t, core.RiskNone, after.Risk)
}

func TestStrip_PreservesEntropyTail(t *testing.T) {
	res := Strip(testJPEG(jpegSegment(0xFE, []byte("holiday notes"))))

	require.True(t, res.Clean)
	assert.True(t, bytes.HasSuffix(res.Data, []byte{0xAB, 0xCD, 0xFF, 0xD9}))
	assert.False(t, bytes.Contains(res.Data, []byte("holiday notes")))
}

func TestStrip_PNGKeepsPixelChunks(t *testing.T) {
	res := Strip(testPNG(
		pngChunkBytes("tEXt", []byte("Author\x00Jane Doe")),
		pngChunkBytes("tIME", []byte{0x07, 0xE8, 1, 15, 8, 30, 0}),
	))

	require.True(t, res.Clean)
	assert.Equal(t, core.FmtPNG, res.Format)
	assert.True(t, res.Analysis.HasCaption)
	assert.True(t, res.Analysis.HasTimestamps)
	assert.True(t, bytes.Contains(res.Data, pngChunkBytes("IDAT", []byte{1, 2, 3})))
	assert.False(t, bytes.Contains(res.Data, []byte("Jane Doe")))
}

func TestStrip_Idempotent(t *testing.T) {
	for name, data := range map[string][]byte{
		"jpeg": testJPEG(xmpSegment(testXMPPacket)),
		"png":  testPNG(pngChunkBytes("tEXt", []byte("Comment\x00first pass"))),
	} {
		first := Strip(data)
		require.True(t, first.Clean, name)

		second := Strip(first.Data)
		require.True(t, second.Clean, name)
		assert.Equal(t, first.Data, second.Data, name)
		assert.False(t, second.Analysis.HasSensitiveData, name)
		assert.Equal(t, first.PayloadDigest, second.PayloadDigest, name)
	}
}

func TestStrip_FailsOpenOnTIFF(t *testing.T) {
	original := []byte("II\x2A\x00\x08\x00\x00\x00\x00\x00")
	res := Strip(original)

	assert.False(t, res.Clean)
	assert.Equal(t, original, res.Data)
	assert.Equal(t, core.FmtTIFF, res.Format)
	assert.True(t, errors.Is(res.Err, core.ErrEncodeFailure))
}

func TestStrip_FailsOpenOnUnknownFormat(t *testing.T) {
	original := []byte("definitely not an image")
	res := Strip(original)

	assert.False(t, res.Clean)
	assert.Equal(t, original, res.Data)
	assert.Equal(t, core.FmtUnknown, res.Format)
	assert.True(t, errors.Is(res.Err, core.ErrUnrecognizedFormat))
	assert.Empty(t, res.PayloadDigest)
}

func TestRewrite_Strict(t *testing.T) {
	out, err := Rewrite(testPNG(pngChunkBytes("tEXt", []byte("Author\x00Jane Doe"))))
	require.NoError(t, err)
	assert.False(t, Analyze(out).HasSensitiveData)

	_, err = Rewrite([]byte("garbage"))
	assert.True(t, errors.Is(err, core.ErrUnrecognizedFormat))

	_, err = Rewrite([]byte("II\x2A\x00\x08\x00\x00\x00\x00\x00"))
	assert.True(t, errors.Is(err, core.ErrEncodeFailure))
}

func TestFile_WritesCleanCopyPreservingMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	dst := filepath.Join(dir, "out.png")
	require.NoError(t, os.WriteFile(src, testPNG(
		pngChunkBytes("tEXt", []byte("Author\x00Jane Doe")),
	), 0o600))

	res, err := File(src, dst)
	require.NoError(t, err)
	assert.True(t, res.Clean)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	written, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, res.Data, written)
	assert.False(t, Analyze(written).HasSensitiveData)
}

func TestFile_InPlace(t *testing.T) {
	src := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(src, testPNG(
		pngChunkBytes("tEXt", []byte("Comment\x00drop me")),
	), 0o644))

	res, err := File(src, src)
	require.NoError(t, err)
	require.True(t, res.Clean)

	after, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(after, []byte("drop me")))
}

func TestFile_NeverWritesWhenNotClean(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.tif")
	dst := filepath.Join(dir, "scan_clean.tif")
	require.NoError(t, os.WriteFile(src, []byte("II\x2A\x00\x08\x00\x00\x00\x00\x00"), 0o644))

	res, err := File(src, dst)
	require.NoError(t, err)
	assert.False(t, res.Clean)
	assert.Error(t, res.Err)

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	res, err := File(filepath.Join(dir, "absent.jpg"), filepath.Join(dir, "out.jpg"))
	assert.Error(t, err)
	assert.Nil(t, res)
}
