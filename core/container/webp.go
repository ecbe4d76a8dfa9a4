package container

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/image/webp"

	"photoscrub/core"
)

// VP8X feature flags, byte 0 of the chunk.
const (
	vp8xFlagICC   = 0x20
	vp8xFlagAlpha = 0x10
	vp8xFlagEXIF  = 0x08
	vp8xFlagXMP   = 0x04
	vp8xFlagAnim  = 0x02
)

type webpChunk struct {
	fourcc string
	data   []byte
}

type webpState struct {
	keep   []webpChunk
	vp8x   []byte // nil when the source had no VP8X chunk
	width  int    // canvas dims for VP8X synthesis, 0 when unknown
	height int
}

type webpCodec struct{}

func (webpCodec) Decode(data []byte) (*Parts, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return nil, fmt.Errorf("%w: bad RIFF header", core.ErrUndecodablePayload)
	}

	st := &webpState{}
	var meta []Segment
	i := 12
	for i+8 <= len(data) {
		fourcc := string(data[i : i+4])
		size := int(binary.LittleEndian.Uint32(data[i+4 : i+8]))
		if i+8+size > len(data) {
			return nil, fmt.Errorf("%w: truncated %s chunk", core.ErrUndecodablePayload, fourcc)
		}
		chunkData := data[i+8 : i+8+size]
		i += 8 + size
		if size%2 == 1 {
			i++ // chunks are padded to even offsets
		}

		switch fourcc {
		case "VP8X":
			st.vp8x = append([]byte(nil), chunkData...)
		case "EXIF":
			meta = append(meta, Segment{Kind: KindEXIF, Data: chunkData})
		case "XMP ":
			meta = append(meta, Segment{Kind: KindXMP, Data: chunkData})
		case "ICCP":
			meta = append(meta, Segment{Kind: KindICC, Data: chunkData})
		default:
			st.keep = append(st.keep, webpChunk{fourcc: fourcc, data: chunkData})
		}
	}
	if len(st.keep) == 0 {
		return nil, fmt.Errorf("%w: no image chunks", core.ErrUndecodablePayload)
	}

	// Canvas dims are needed if a VP8X has to be synthesized later.
	if st.vp8x == nil {
		if cfg, err := webp.DecodeConfig(bytes.NewReader(data)); err == nil {
			st.width, st.height = cfg.Width, cfg.Height
		}
	}

	chunks := make([][]byte, 0, len(st.keep)*2)
	for _, c := range st.keep {
		chunks = append(chunks, []byte(c.fourcc), c.data)
	}
	return &Parts{
		Meta:          meta,
		PayloadDigest: payloadDigest(chunks...),
		opaque:        st,
	}, nil
}

func (webpCodec) Encode(p *Parts, exifData []byte) ([]byte, error) {
	st, ok := p.opaque.(*webpState)
	if !ok || len(st.keep) == 0 {
		return nil, fmt.Errorf("%w: not a decoded WebP", core.ErrEncodeFailure)
	}

	vp8x, err := buildVP8X(st, len(exifData) > 0)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	buf.Write([]byte{0, 0, 0, 0}) // size backfilled below
	buf.WriteString("WEBP")
	if vp8x != nil {
		writeWebPChunk(&buf, "VP8X", vp8x)
	}
	for _, c := range st.keep {
		writeWebPChunk(&buf, c.fourcc, c.data)
	}
	if len(exifData) > 0 {
		writeWebPChunk(&buf, "EXIF", exifData)
	}

	out := buf.Bytes()
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	return out, nil
}

// buildVP8X returns the VP8X chunk for the output, or nil when the file
// needs none. An existing chunk keeps its alpha and animation bits but
// has the metadata bits rewritten to match what is actually emitted.
func buildVP8X(st *webpState, withEXIF bool) ([]byte, error) {
	if st.vp8x != nil {
		if len(st.vp8x) < 10 {
			return nil, fmt.Errorf("%w: short VP8X chunk", core.ErrEncodeFailure)
		}
		out := append([]byte(nil), st.vp8x...)
		out[0] &^= vp8xFlagICC | vp8xFlagEXIF | vp8xFlagXMP
		if withEXIF {
			out[0] |= vp8xFlagEXIF
		}
		return out, nil
	}
	if !withEXIF {
		return nil, nil
	}
	if st.width < 1 || st.height < 1 {
		return nil, fmt.Errorf("%w: canvas dimensions unknown", core.ErrEncodeFailure)
	}

	// Flags byte, 3 reserved bytes, then width-1 and height-1 as 24-bit
	// little-endian values.
	out := make([]byte, 10)
	out[0] = vp8xFlagEXIF
	putUint24(out[4:7], uint32(st.width-1))
	putUint24(out[7:10], uint32(st.height-1))
	return out, nil
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func writeWebPChunk(buf *bytes.Buffer, fourcc string, data []byte) {
	buf.WriteString(fourcc)
	size := make([]byte, 4)
	binary.LittleEndian.PutUint32(size, uint32(len(data)))
	buf.Write(size)
	buf.Write(data)
	if len(data)%2 == 1 {
		buf.WriteByte(0)
	}
}
