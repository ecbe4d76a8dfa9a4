// Package container splits image files into their pixel payload and raw
// metadata segments, and rebuilds them around a replacement metadata
// block. Pixel payloads pass through bit-identical; the package never
// decodes or re-encodes image data.
package container

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"photoscrub/core"
)

// Kind labels what a lifted metadata segment contains.
type Kind int

const (
	KindEXIF Kind = iota // raw TIFF block
	KindXMP              // XMP packet (XML)
	KindIPTC             // Photoshop 8BIM resource blocks
	KindICC              // ICC colour profile
	KindText             // keyword/text pair or free-text comment
	KindTime             // PNG tIME, 7 raw bytes
	KindOther            // recognised metadata with no dedicated parser
)

// Segment is one metadata block lifted out of a container. Data holds
// the payload with container framing and category prefixes removed.
// Name carries the text keyword for KindText segments when the format
// has one (PNG chunks); it is empty for plain comments.
type Segment struct {
	Kind Kind
	Name string
	Data []byte
}

// Parts is a decoded container: its metadata segments plus a digest of
// the pixel payload. The opaque field keeps whatever the codec needs to
// reassemble the file.
type Parts struct {
	Format        core.FormatID
	Meta          []Segment
	PayloadDigest string

	opaque any
}

// Codec splits and rebuilds one container format.
type Codec interface {
	// Decode splits data into payload structure and metadata segments.
	Decode(data []byte) (*Parts, error)
	// Encode rebuilds the container with exifData as its only metadata
	// segment. Codecs whose format has no EXIF carrier ignore exifData;
	// codecs that cannot rebuild at all return ErrEncodeFailure.
	Encode(p *Parts, exifData []byte) ([]byte, error)
}

var codecs = map[core.FormatID]Codec{
	core.FmtJPEG: jpegCodec{},
	core.FmtPNG:  pngCodec{},
	core.FmtWebP: webpCodec{},
	core.FmtGIF:  gifCodec{},
	core.FmtTIFF: tiffCodec{},
	core.FmtHEIC: heicCodec{},
}

// Decode identifies the container from its bytes and splits it.
func Decode(data []byte) (*Parts, error) {
	id := core.DetectFormat(data)
	c, ok := codecs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnrecognizedFormat, id)
	}
	p, err := c.Decode(data)
	if err != nil {
		return nil, err
	}
	p.Format = id
	return p, nil
}

// Encode rebuilds a decoded container around the given safe EXIF block.
func Encode(p *Parts, exifData []byte) ([]byte, error) {
	c, ok := codecs[p.Format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnrecognizedFormat, p.Format)
	}
	return c.Encode(p, exifData)
}

// payloadDigest hashes the pixel payload chunks in order. Two decodes
// of the same image data always produce the same digest, which is how
// the rewriter proves it left the pixels alone.
func payloadDigest(chunks ...[]byte) string {
	h := blake3.New()
	for _, c := range chunks {
		h.Write(c)
	}
	return hex.EncodeToString(h.Sum(nil))
}
