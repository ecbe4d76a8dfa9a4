package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoscrub/core"
)

func isoBox(typ string, payload []byte) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(8+len(payload)))
	out = append(out, typ...)
	return append(out, payload...)
}

func TestDecode_UnknownFormat(t *testing.T) {
	_, err := Decode([]byte("certainly not an image"))
	assert.True(t, errors.Is(err, core.ErrUnrecognizedFormat))
}

func TestDecode_BMPHasNoCodec(t *testing.T) {
	_, err := Decode([]byte{0x42, 0x4D, 0x00, 0x00, 0x00, 0x00})
	assert.True(t, errors.Is(err, core.ErrUnrecognizedFormat))
}

func TestDecode_StampsFormat(t *testing.T) {
	p, err := Decode(buildPNG(
		pngChunk{"IHDR", testIHDR},
		pngChunk{"IDAT", []byte{1}},
		pngChunk{"IEND", nil},
	))
	require.NoError(t, err)
	assert.Equal(t, core.FmtPNG, p.Format)
}

func TestPayloadDigest_Stable(t *testing.T) {
	a := payloadDigest([]byte("one"), []byte("two"))
	b := payloadDigest([]byte("one"), []byte("two"))
	c := payloadDigest([]byte("onetwo"))

	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, payloadDigest([]byte("three")))
}

func TestTIFF_ParseOnly(t *testing.T) {
	data := []byte("II\x2A\x00\x08\x00\x00\x00\x00\x00")

	p, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, core.FmtTIFF, p.Format)
	require.Len(t, p.Meta, 1)
	assert.Equal(t, KindEXIF, p.Meta[0].Kind)
	assert.Equal(t, data, p.Meta[0].Data)

	_, err = Encode(p, []byte("safe"))
	assert.True(t, errors.Is(err, core.ErrEncodeFailure))
}

func TestTIFF_ShortHeader(t *testing.T) {
	_, err := tiffCodec{}.Decode([]byte("II\x2A"))
	assert.True(t, errors.Is(err, core.ErrUndecodablePayload))
}

func TestHEIC_ExifInsideMeta(t *testing.T) {
	exifPayload := append([]byte{0, 0, 0, 0}, []byte("II\x2A\x00device")...)
	metaPayload := append([]byte{0, 0, 0, 0}, isoBox("Exif", exifPayload)...)
	data := bytes.Join([][]byte{
		isoBox("ftyp", []byte("heic\x00\x00\x00\x00heicmif1")),
		isoBox("meta", metaPayload),
		isoBox("mdat", []byte("pixel payload")),
	}, nil)

	p, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, core.FmtHEIC, p.Format)
	require.Len(t, p.Meta, 1)
	assert.Equal(t, KindEXIF, p.Meta[0].Kind)
	assert.Equal(t, []byte("II\x2A\x00device"), p.Meta[0].Data)

	_, err = Encode(p, nil)
	assert.True(t, errors.Is(err, core.ErrEncodeFailure))
}

func TestHEIC_LargeAndZeroSizeBoxes(t *testing.T) {
	exifPayload := append([]byte{0, 0, 0, 0}, []byte("II\x2A\x00x")...)
	inner := isoBox("Exif", exifPayload)

	// size==1 pushes the real size into a 64-bit field.
	var large bytes.Buffer
	binary.Write(&large, binary.BigEndian, uint32(1))
	large.WriteString("meta")
	binary.Write(&large, binary.BigEndian, uint64(16+4+len(inner)))
	large.Write([]byte{0, 0, 0, 0})
	large.Write(inner)

	// size==0 runs to the end of the file.
	var tail bytes.Buffer
	binary.Write(&tail, binary.BigEndian, uint32(0))
	tail.WriteString("mdat")
	tail.WriteString("rest of the file")

	data := bytes.Join([][]byte{
		isoBox("ftyp", []byte("heic\x00\x00\x00\x00")),
		large.Bytes(),
		tail.Bytes(),
	}, nil)

	p, err := heicCodec{}.Decode(data)
	require.NoError(t, err)
	require.Len(t, p.Meta, 1)
	assert.Equal(t, []byte("II\x2A\x00x"), p.Meta[0].Data)
}

func TestHEIC_MalformedSizeStopsWalk(t *testing.T) {
	data := isoBox("ftyp", []byte("heic\x00\x00\x00\x00"))
	data = append(data, 0, 0, 0, 5, 'j', 'u', 'n', 'k') // box claiming size 5

	p, err := heicCodec{}.Decode(data)
	require.NoError(t, err)
	assert.Empty(t, p.Meta)
}
