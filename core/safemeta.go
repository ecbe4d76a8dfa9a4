package core

// Sanitize derives the allow-listed safe model from a parsed one.
// Everything not named here is dropped; nothing is ever added from
// outside the source model:
//
//   - orientation is copied when valid (1..8), else defaults to 1
//   - pixel dimensions are copied when present, never fabricated
//   - the colour model is forced to RGB
//   - resolution is forced to 72x72 pixels per inch
//
// GPS, device, timestamp, camera, and caption blocks never survive.
func Sanitize(m *MetadataModel) *MetadataModel {
	safe := &MetadataModel{
		ColorModel: "RGB",
		Resolution: &Resolution{X: 72, Y: 72, Unit: ResolutionInch},
	}

	orientation := 1
	if m != nil && m.Orientation != nil && *m.Orientation >= 1 && *m.Orientation <= 8 {
		orientation = *m.Orientation
	}
	safe.Orientation = &orientation

	if m != nil {
		if m.PixelWidth != nil {
			w := *m.PixelWidth
			safe.PixelWidth = &w
		}
		if m.PixelHeight != nil {
			h := *m.PixelHeight
			safe.PixelHeight = &h
		}
	}
	return safe
}
