package container

import (
	"bytes"
	"fmt"

	"photoscrub/core"
)

const (
	gifExtension = 0x21
	gifImageDesc = 0x2C
	gifTrailer   = 0x3B
	gifLabelComm = 0xFE
	gifLabelAppl = 0xFF
)

// gifXMPIdent is the application extension identifier Adobe uses to
// smuggle XMP packets into GIF files.
const gifXMPIdent = "XMP DataXMP"

type gifState struct {
	prefix []byte   // header, logical screen descriptor, global color table
	blocks [][]byte // kept extension and image blocks, verbatim
}

type gifCodec struct{}

// Decode walks the block structure properly instead of scanning for
// byte patterns, so comment-like bytes inside LZW image data are never
// mistaken for an extension.
func (gifCodec) Decode(data []byte) (*Parts, error) {
	if len(data) < 13 || (!bytes.HasPrefix(data, []byte("GIF87a")) && !bytes.HasPrefix(data, []byte("GIF89a"))) {
		return nil, fmt.Errorf("%w: bad GIF header", core.ErrUndecodablePayload)
	}

	prefixLen := 13
	packed := data[10]
	if packed&0x80 != 0 {
		prefixLen += 3 << ((packed & 0x07) + 1) // global color table
	}
	if prefixLen > len(data) {
		return nil, fmt.Errorf("%w: truncated color table", core.ErrUndecodablePayload)
	}

	st := &gifState{prefix: data[:prefixLen]}
	var meta []Segment
	i := prefixLen
	for i < len(data) {
		switch data[i] {
		case gifTrailer:
			i = len(data)
		case gifExtension:
			if i+2 > len(data) {
				return nil, fmt.Errorf("%w: truncated extension", core.ErrUndecodablePayload)
			}
			label := data[i+1]
			end, payload, err := walkGIFSubBlocks(data, i+2)
			if err != nil {
				return nil, err
			}
			switch {
			case label == gifLabelComm:
				meta = append(meta, Segment{Kind: KindText, Name: "Comment", Data: payload})
			case label == gifLabelAppl && bytes.HasPrefix(payload, []byte(gifXMPIdent)):
				meta = append(meta, Segment{Kind: KindXMP, Data: payload[len(gifXMPIdent):]})
			default:
				st.blocks = append(st.blocks, data[i:end])
			}
			i = end
		case gifImageDesc:
			start := i
			if i+10 > len(data) {
				return nil, fmt.Errorf("%w: truncated image descriptor", core.ErrUndecodablePayload)
			}
			if data[i+9]&0x80 != 0 {
				i += 3 << ((data[i+9] & 0x07) + 1) // local color table
			}
			i += 10 + 1 // descriptor plus LZW minimum code size
			end, _, err := walkGIFSubBlocks(data, i)
			if err != nil {
				return nil, err
			}
			st.blocks = append(st.blocks, data[start:end])
			i = end
		default:
			return nil, fmt.Errorf("%w: unknown block 0x%02X", core.ErrUndecodablePayload, data[i])
		}
	}

	chunks := make([][]byte, 0, len(st.blocks)+1)
	chunks = append(chunks, st.prefix)
	chunks = append(chunks, st.blocks...)
	return &Parts{
		Meta:          meta,
		PayloadDigest: payloadDigest(chunks...),
		opaque:        st,
	}, nil
}

// walkGIFSubBlocks advances past a sub-block chain starting at i and
// returns the offset after the terminator along with the concatenated
// payload.
func walkGIFSubBlocks(data []byte, i int) (int, []byte, error) {
	var payload []byte
	for {
		if i >= len(data) {
			return 0, nil, fmt.Errorf("%w: unterminated sub-blocks", core.ErrUndecodablePayload)
		}
		n := int(data[i])
		i++
		if n == 0 {
			return i, payload, nil
		}
		if i+n > len(data) {
			return 0, nil, fmt.Errorf("%w: truncated sub-block", core.ErrUndecodablePayload)
		}
		payload = append(payload, data[i:i+n]...)
		i += n
	}
}

// Encode ignores exifData: GIF has no EXIF carrier, so the safe block
// simply has nowhere to go.
func (gifCodec) Encode(p *Parts, exifData []byte) ([]byte, error) {
	st, ok := p.opaque.(*gifState)
	if !ok || len(st.prefix) == 0 {
		return nil, fmt.Errorf("%w: not a decoded GIF", core.ErrEncodeFailure)
	}

	var buf bytes.Buffer
	buf.Write(st.prefix)
	for _, b := range st.blocks {
		buf.Write(b)
	}
	buf.WriteByte(gifTrailer)
	return buf.Bytes(), nil
}
