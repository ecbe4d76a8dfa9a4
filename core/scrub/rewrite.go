package scrub

import (
	"fmt"
	"io/fs"
	"os"

	"photoscrub/core"
	"photoscrub/core/container"
	"photoscrub/core/exifmeta"
)

// Rewrite is the strict form of Strip: it returns the scrubbed bytes or
// an error, never the original input.
func Rewrite(data []byte) ([]byte, error) {
	p, err := container.Decode(data)
	if err != nil {
		return nil, err
	}
	return encodeVerified(p, core.Sanitize(modelFromParts(p)))
}

// Strip removes sensitive metadata from an image and reports what was
// found. It fails open: on any error Data is the original input, Clean
// is false, and Err carries the reason. Callers that must not leak
// metadata have to check Clean.
func Strip(data []byte) *core.StripResult {
	res := &core.StripResult{
		Data:   data,
		Format: core.DetectFormat(data),
	}
	p, err := container.Decode(data)
	if err != nil {
		res.Err = err
		return res
	}
	model := modelFromParts(p)
	res.Analysis = core.Classify(model)
	res.PayloadDigest = p.PayloadDigest

	out, err := encodeVerified(p, core.Sanitize(model))
	if err != nil {
		res.Err = err
		return res
	}
	res.Data = out
	res.Clean = true
	return res
}

// File scrubs src and writes the result to dst, preserving the source
// file mode. Nothing is written when the file could not be cleaned, so
// a fail-open result never overwrites dst with metadata still inside.
// I/O problems come back as the error; scrub problems live in the
// result's Err field.
func File(src, dst string) (*core.StripResult, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	res := Strip(data)
	if !res.Clean {
		return res, nil
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(src); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(dst, res.Data, mode); err != nil {
		return res, err
	}
	return res, nil
}

// encodeVerified rebuilds the container around the safe block, then
// proves the rewrite left the pixels alone by re-decoding its own
// output and comparing payload digests.
func encodeVerified(p *container.Parts, safe *core.MetadataModel) ([]byte, error) {
	out, err := container.Encode(p, exifmeta.Build(safe))
	if err != nil {
		return nil, err
	}
	check, err := container.Decode(out)
	if err != nil {
		return nil, fmt.Errorf("%w: rewritten file does not decode: %v", core.ErrEncodeFailure, err)
	}
	if check.PayloadDigest != p.PayloadDigest {
		return nil, fmt.Errorf("%w: payload digest changed during rewrite", core.ErrEncodeFailure)
	}
	return out, nil
}
