package container

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoscrub/core"
)

// testIHDR describes an 8x8 truecolor image.
var testIHDR = []byte{0, 0, 0, 8, 0, 0, 0, 8, 8, 2, 0, 0, 0}

func deflate(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func buildPNG(chunks ...pngChunk) []byte {
	var buf bytes.Buffer
	buf.Write(pngSignature)
	for _, c := range chunks {
		writePNGChunk(&buf, c.typ, c.data)
	}
	return buf.Bytes()
}

func TestPNG_DecodeClassifiesChunks(t *testing.T) {
	xmpPacket := []byte("<x:xmpmeta/>")
	itxtXMP := append([]byte(xmpKeyword), 0, 0, 0, 0, 0)
	itxtXMP = append(itxtXMP, xmpPacket...)

	data := buildPNG(
		pngChunk{"IHDR", testIHDR},
		pngChunk{"tEXt", []byte("Author\x00Jane Doe")},
		pngChunk{"zTXt", append([]byte("Comment\x00\x00"), deflate(t, []byte("compressed remark"))...)},
		pngChunk{"iTXt", itxtXMP},
		pngChunk{"eXIf", []byte("II\x2A\x00exif-shaped")},
		pngChunk{"tIME", []byte{0x07, 0xE7, 6, 15, 10, 30, 0}},
		pngChunk{"pHYs", []byte{0, 0, 0x0B, 0x13, 0, 0, 0x0B, 0x13, 1}},
		pngChunk{"IDAT", []byte{1, 2, 3, 4}},
		pngChunk{"IEND", nil},
	)

	p, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, core.FmtPNG, p.Format)
	require.Len(t, p.Meta, 6)

	assert.Equal(t, KindText, p.Meta[0].Kind)
	assert.Equal(t, "Author", p.Meta[0].Name)
	assert.Equal(t, []byte("Jane Doe"), p.Meta[0].Data)

	assert.Equal(t, KindText, p.Meta[1].Kind)
	assert.Equal(t, "Comment", p.Meta[1].Name)
	assert.Equal(t, []byte("compressed remark"), p.Meta[1].Data)

	assert.Equal(t, KindXMP, p.Meta[2].Kind)
	assert.Equal(t, xmpPacket, p.Meta[2].Data)

	assert.Equal(t, KindEXIF, p.Meta[3].Kind)

	assert.Equal(t, KindTime, p.Meta[4].Kind)
	assert.Len(t, p.Meta[4].Data, 7)

	assert.Equal(t, KindOther, p.Meta[5].Kind)
	assert.Equal(t, "pHYs", p.Meta[5].Name)
}

func TestPNG_CompressedITXT(t *testing.T) {
	itxt := append([]byte("Description\x00"), 1, 0)
	itxt = append(itxt, 0, 0) // empty language and translated keyword
	itxt = append(itxt, deflate(t, []byte("squeezed text"))...)

	data := buildPNG(
		pngChunk{"IHDR", testIHDR},
		pngChunk{"iTXt", itxt},
		pngChunk{"IDAT", []byte{1}},
		pngChunk{"IEND", nil},
	)

	p, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, p.Meta, 1)
	assert.Equal(t, KindText, p.Meta[0].Kind)
	assert.Equal(t, "Description", p.Meta[0].Name)
	assert.Equal(t, []byte("squeezed text"), p.Meta[0].Data)
}

func TestPNG_RoundTrip(t *testing.T) {
	data := buildPNG(
		pngChunk{"IHDR", testIHDR},
		pngChunk{"tEXt", []byte("Software\x00darkroom 2.1")},
		pngChunk{"IDAT", []byte{9, 9, 9}},
		pngChunk{"IEND", nil},
	)
	p, err := Decode(data)
	require.NoError(t, err)

	safe := []byte("II\x2A\x00\x08\x00\x00\x00")
	out, err := Encode(p, safe)
	require.NoError(t, err)

	// The eXIf chunk sits directly after IHDR.
	ihdrEnd := len(pngSignature) + 8 + len(testIHDR) + 4
	assert.Equal(t, "eXIf", string(out[ihdrEnd+4:ihdrEnd+8]))

	again, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, p.PayloadDigest, again.PayloadDigest)
	require.Len(t, again.Meta, 1)
	assert.Equal(t, KindEXIF, again.Meta[0].Kind)
	assert.Equal(t, safe, again.Meta[0].Data)
}

func TestPNG_EncodeWithoutExif(t *testing.T) {
	original := buildPNG(
		pngChunk{"IHDR", testIHDR},
		pngChunk{"IDAT", []byte{5, 5}},
		pngChunk{"IEND", nil},
	)
	p, err := Decode(original)
	require.NoError(t, err)

	out, err := Encode(p, nil)
	require.NoError(t, err)
	assert.Equal(t, original, out)
}

func TestPNG_MalformedTextChunksDropped(t *testing.T) {
	data := buildPNG(
		pngChunk{"IHDR", testIHDR},
		pngChunk{"tEXt", []byte("no null terminator")},
		pngChunk{"zTXt", []byte("Comment\x00\x00not actually zlib")},
		pngChunk{"IDAT", []byte{1}},
		pngChunk{"IEND", nil},
	)

	p, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, p.Meta)
}

func TestPNG_DecodeErrors(t *testing.T) {
	t.Run("bad signature", func(t *testing.T) {
		_, err := pngCodec{}.Decode([]byte("not a png at all"))
		assert.True(t, errors.Is(err, core.ErrUndecodablePayload))
	})

	t.Run("truncated chunk", func(t *testing.T) {
		data := append([]byte{}, pngSignature...)
		data = append(data, 0x00, 0x00, 0x10, 0x00, 'I', 'D', 'A', 'T')
		_, err := pngCodec{}.Decode(data)
		assert.True(t, errors.Is(err, core.ErrUndecodablePayload))
	})

	t.Run("missing ihdr", func(t *testing.T) {
		_, err := pngCodec{}.Decode(buildPNG(pngChunk{"IDAT", []byte{1}}))
		assert.True(t, errors.Is(err, core.ErrUndecodablePayload))
	})
}
