package container

import (
	"fmt"

	"photoscrub/core"
)

// tiffCodec reads but never writes. A TIFF file is one big IFD tree
// where image strips and metadata share the same structure, so there is
// no payload to carry over without re-encoding the image itself.
type tiffCodec struct{}

func (tiffCodec) Decode(data []byte) (*Parts, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: short TIFF header", core.ErrUndecodablePayload)
	}
	return &Parts{
		Meta:          []Segment{{Kind: KindEXIF, Data: data}},
		PayloadDigest: payloadDigest(data),
		opaque:        nil,
	}, nil
}

func (tiffCodec) Encode(p *Parts, exifData []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: TIFF rewriting is not supported", core.ErrEncodeFailure)
}
