package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"

	"photoscrub/core"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// Chunks that are metadata and get dropped on rewrite. Everything else
// (IHDR, PLTE, tRNS, IDAT, the APNG chunks, unknown chunks) is payload.
var pngMetaChunks = map[string]bool{
	"tEXt": true,
	"iTXt": true,
	"zTXt": true,
	"eXIf": true,
	"tIME": true,
	"iCCP": true,
	"sRGB": true,
	"gAMA": true,
	"cHRM": true,
	"bKGD": true,
	"hIST": true,
	"pHYs": true,
	"sBIT": true,
	"sPLT": true,
}

const xmpKeyword = "XML:com.adobe.xmp"

type pngChunk struct {
	typ  string
	data []byte
}

type pngState struct {
	keep []pngChunk
}

type pngCodec struct{}

func (pngCodec) Decode(data []byte) (*Parts, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, fmt.Errorf("%w: bad PNG signature", core.ErrUndecodablePayload)
	}

	st := &pngState{}
	var meta []Segment
	i := len(pngSignature)
	for i+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[i : i+4]))
		typ := string(data[i+4 : i+8])
		if i+8+length+4 > len(data) {
			return nil, fmt.Errorf("%w: truncated %s chunk", core.ErrUndecodablePayload, typ)
		}
		chunkData := data[i+8 : i+8+length]
		i += 8 + length + 4 // skip CRC; it is recomputed on write

		if pngMetaChunks[typ] {
			if seg, ok := classifyPNGChunk(typ, chunkData); ok {
				meta = append(meta, seg)
			}
			continue
		}
		st.keep = append(st.keep, pngChunk{typ: typ, data: chunkData})
		if typ == "IEND" {
			break
		}
	}
	if len(st.keep) == 0 || st.keep[0].typ != "IHDR" {
		return nil, fmt.Errorf("%w: missing IHDR", core.ErrUndecodablePayload)
	}

	chunks := make([][]byte, 0, len(st.keep)*2)
	for _, c := range st.keep {
		chunks = append(chunks, []byte(c.typ), c.data)
	}
	return &Parts{
		Meta:          meta,
		PayloadDigest: payloadDigest(chunks...),
		opaque:        st,
	}, nil
}

// classifyPNGChunk lifts one metadata chunk. A malformed text chunk is
// dropped on the floor: one bad block never poisons the rest.
func classifyPNGChunk(typ string, data []byte) (Segment, bool) {
	switch typ {
	case "eXIf":
		return Segment{Kind: KindEXIF, Data: data}, true
	case "tIME":
		return Segment{Kind: KindTime, Data: data}, true
	case "iCCP":
		return Segment{Kind: KindICC, Data: data}, true
	case "tEXt":
		keyword, text, ok := splitPNGKeyword(data)
		if !ok {
			return Segment{}, false
		}
		return Segment{Kind: KindText, Name: keyword, Data: text}, true
	case "zTXt":
		keyword, rest, ok := splitPNGKeyword(data)
		if !ok || len(rest) < 1 {
			return Segment{}, false
		}
		text, err := inflate(rest[1:]) // rest[0] is the compression method
		if err != nil {
			return Segment{}, false
		}
		return Segment{Kind: KindText, Name: keyword, Data: text}, true
	case "iTXt":
		return classifyITXT(data)
	default:
		return Segment{Kind: KindOther, Name: typ, Data: data}, true
	}
}

// classifyITXT decodes keyword, compression flag and method, language
// tag, translated keyword, then the text itself.
func classifyITXT(data []byte) (Segment, bool) {
	keyword, rest, ok := splitPNGKeyword(data)
	if !ok || len(rest) < 2 {
		return Segment{}, false
	}
	compressed := rest[0] == 1
	rest = rest[2:]
	for i := 0; i < 2; i++ { // language tag, translated keyword
		null := bytes.IndexByte(rest, 0)
		if null < 0 {
			return Segment{}, false
		}
		rest = rest[null+1:]
	}
	text := rest
	if compressed {
		var err error
		if text, err = inflate(rest); err != nil {
			return Segment{}, false
		}
	}
	if keyword == xmpKeyword {
		return Segment{Kind: KindXMP, Data: text}, true
	}
	return Segment{Kind: KindText, Name: keyword, Data: text}, true
}

func splitPNGKeyword(data []byte) (keyword string, rest []byte, ok bool) {
	null := bytes.IndexByte(data, 0)
	if null <= 0 {
		return "", nil, false
	}
	return string(data[:null]), data[null+1:], true
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (pngCodec) Encode(p *Parts, exifData []byte) ([]byte, error) {
	st, ok := p.opaque.(*pngState)
	if !ok || len(st.keep) == 0 || st.keep[0].typ != "IHDR" {
		return nil, fmt.Errorf("%w: not a decoded PNG", core.ErrEncodeFailure)
	}

	var buf bytes.Buffer
	buf.Write(pngSignature)
	writePNGChunk(&buf, "IHDR", st.keep[0].data)
	if len(exifData) > 0 {
		writePNGChunk(&buf, "eXIf", exifData)
	}
	for _, c := range st.keep[1:] {
		writePNGChunk(&buf, c.typ, c.data)
	}
	return buf.Bytes(), nil
}

func writePNGChunk(buf *bytes.Buffer, typ string, data []byte) {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	buf.Write(length)
	buf.WriteString(typ)
	buf.Write(data)

	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	sum := make([]byte, 4)
	binary.BigEndian.PutUint32(sum, crc.Sum32())
	buf.Write(sum)
}
