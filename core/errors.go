package core

import "errors"

// Error taxonomy for the scrub pipeline. Callers match with errors.Is;
// wrapped values add the failing format or block for context.
var (
	// ErrUnrecognizedFormat means the bytes match no container the
	// engine can work with. Parsing degrades to an empty model;
	// rewriting is impossible.
	ErrUnrecognizedFormat = errors.New("unrecognized container format")

	// ErrUndecodablePayload means the container was identified but its
	// structure could not be walked (truncated chunk, bad framing).
	ErrUndecodablePayload = errors.New("undecodable container payload")

	// ErrEncodeFailure means the rewritten container could not be
	// produced or failed post-write verification.
	ErrEncodeFailure = errors.New("container encode failure")

	// ErrMalformedSubBlock marks a single bad metadata block inside an
	// otherwise sound container. It is scoped to one category and never
	// aborts parsing.
	ErrMalformedSubBlock = errors.New("malformed metadata sub-block")
)
