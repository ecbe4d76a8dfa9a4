// Package scrub is the privacy pipeline. It parses whatever metadata an
// image carries, classifies what is sensitive, and rebuilds the file
// with only a minimal allow-list block. Rewriting fails open: when a
// file cannot be rebuilt safely the original bytes come back unchanged,
// marked not clean. Callers that must not leak metadata have to check
// StripResult.Clean before using the output.
package scrub

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"photoscrub/core"
	"photoscrub/core/container"
	"photoscrub/core/exifmeta"
	"photoscrub/core/iptc"
)

// Sources apply in fixed precedence. Later sources only fill fields the
// earlier ones left empty, except keywords, which accumulate.
var parseOrder = []container.Kind{
	container.KindEXIF,
	container.KindIPTC,
	container.KindXMP,
	container.KindText,
	container.KindTime,
}

// Parse extracts a unified metadata model from raw image bytes. It
// never fails: undecodable input or a corrupt metadata category just
// leaves the matching fields empty.
func Parse(data []byte) *core.MetadataModel {
	p, err := container.Decode(data)
	if err != nil {
		return &core.MetadataModel{}
	}
	return modelFromParts(p)
}

func modelFromParts(p *container.Parts) *core.MetadataModel {
	m := &core.MetadataModel{}
	for _, kind := range parseOrder {
		for _, seg := range p.Meta {
			if seg.Kind == kind {
				applySegment(seg, m)
			}
		}
	}
	return m
}

// Analyze parses and classifies in one step.
func Analyze(data []byte) core.PrivacyAnalysis {
	return core.Classify(Parse(data))
}

// InspectFile reads one file and reports everything found in it.
func InspectFile(path string) (*core.InspectReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := core.DetectFormat(data)
	if format == core.FmtUnknown {
		return nil, fmt.Errorf("%w: %s", core.ErrUnrecognizedFormat, path)
	}
	m := Parse(data)
	return &core.InspectReport{
		Path:     path,
		Format:   format,
		Model:    m,
		Analysis: core.Classify(m),
	}, nil
}

func applySegment(seg container.Segment, m *core.MetadataModel) {
	switch seg.Kind {
	case container.KindEXIF:
		exifmeta.Parse(seg.Data, m) // a bad block leaves its category empty
	case container.KindIPTC:
		iptc.Parse(seg.Data, m)
	case container.KindXMP:
		parseXMP(seg.Data, m)
	case container.KindText:
		applyText(seg.Name, string(seg.Data), m)
	case container.KindTime:
		applyPNGTime(seg.Data, m)
	}
}

// ─── XMP ─────────────────────────────────────────────────────────────────────

// Wrapper elements that carry no property name of their own.
var xmpStructural = map[string]bool{
	"xmpmeta":     true,
	"RDF":         true,
	"Description": true,
	"Alt":         true,
	"Bag":         true,
	"Seq":         true,
	"li":          true,
}

// parseXMP streams tokens rather than unmarshalling a schema, since XMP
// packets in the wild mix the verbose rdf:li form with the compact
// attribute form freely. The enclosing property name sticks across
// rdf:Alt/rdf:li wrappers so list values land on the right field.
func parseXMP(data []byte, m *core.MetadataModel) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var current string
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !xmpStructural[t.Name.Local] {
				current = t.Name.Local
			}
			for _, attr := range t.Attr {
				if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
					continue
				}
				applyXMPField(attr.Name.Local, attr.Value, m)
			}
		case xml.CharData:
			if val := strings.TrimSpace(string(t)); val != "" && current != "" {
				applyXMPField(current, val, m)
			}
		}
	}
}

func applyXMPField(key, val string, m *core.MetadataModel) {
	switch key {
	case "description":
		fill(&captionOf(m).Caption, val)
	case "title", "Headline":
		fill(&captionOf(m).Headline, val)
	case "creator":
		fill(&captionOf(m).Byline, val)
	case "rights":
		fill(&captionOf(m).CopyrightNotice, val)
	case "subject":
		c := captionOf(m)
		c.Keywords = append(c.Keywords, val)
	case "Credit":
		fill(&captionOf(m).Credit, val)
	case "Source":
		fill(&captionOf(m).Source, val)
	case "City":
		fill(&captionOf(m).City, val)
	case "State":
		fill(&captionOf(m).Province, val)
	case "Country":
		fill(&captionOf(m).Country, val)
	case "CreatorTool":
		fill(&deviceOf(m).Software, val)
	case "Make":
		fill(&deviceOf(m).Make, val)
	case "Model":
		fill(&deviceOf(m).Model, val)
	case "SerialNumber":
		fill(&deviceOf(m).SerialNumber, val)
	case "Lens", "LensModel":
		fill(&deviceOf(m).LensModel, val)
	case "CreateDate", "DateTimeOriginal":
		if t := parseXMPTime(val); t != nil && timestampsOf(m).Original == nil {
			timestampsOf(m).Original = t
		}
	case "ModifyDate":
		if t := parseXMPTime(val); t != nil && timestampsOf(m).Modified == nil {
			timestampsOf(m).Modified = t
		}
	case "GPSLatitude":
		if v, ok := parseXMPCoord(val, "S"); ok && gpsOf(m).Latitude == nil {
			gpsOf(m).Latitude = &v
		}
	case "GPSLongitude":
		if v, ok := parseXMPCoord(val, "W"); ok && gpsOf(m).Longitude == nil {
			gpsOf(m).Longitude = &v
		}
	}
}

var xmpTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseXMPTime(val string) *time.Time {
	for _, layout := range xmpTimeLayouts {
		if t, err := time.Parse(layout, val); err == nil {
			return &t
		}
	}
	return nil
}

// parseXMPCoord reads the XMP GPS form "48,51.45212N" or "2,17,40E":
// degrees, then minutes (possibly fractional) or minutes and seconds,
// with a trailing hemisphere letter.
func parseXMPCoord(val, negSuffix string) (float64, bool) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, false
	}
	neg := strings.HasSuffix(val, negSuffix)
	val = strings.TrimRight(val, "NSEW")

	var out float64
	for i, part := range strings.Split(val, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || i > 2 {
			return 0, false
		}
		switch i {
		case 0:
			out = f
		case 1:
			out += f / 60
		case 2:
			out += f / 3600
		}
	}
	if neg {
		out = -out
	}
	return out, true
}

// ─── Text chunks and comments ────────────────────────────────────────────────

var textTimeLayouts = []string{
	time.RFC1123,
	time.RFC1123Z,
	"2006:01:02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// applyText maps PNG text keywords and free-standing comments onto the
// model. An empty name is a bare comment (JPEG COM, GIF comment).
func applyText(name, val string, m *core.MetadataModel) {
	val = strings.TrimSpace(val)
	if val == "" {
		return
	}
	switch name {
	case "", "Comment", "Description":
		fill(&captionOf(m).Caption, val)
	case "Title":
		fill(&captionOf(m).Headline, val)
	case "Author":
		fill(&captionOf(m).Byline, val)
	case "Copyright":
		fill(&captionOf(m).CopyrightNotice, val)
	case "Source":
		fill(&captionOf(m).Source, val)
	case "Software":
		fill(&deviceOf(m).Software, val)
	case "Creation Time":
		for _, layout := range textTimeLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				if timestampsOf(m).Original == nil {
					timestampsOf(m).Original = &t
				}
				break
			}
		}
	}
}

// applyPNGTime reads the 7-byte tIME chunk: big-endian year, then
// month, day, hour, minute, second. tIME records last modification.
func applyPNGTime(b []byte, m *core.MetadataModel) {
	if len(b) < 7 {
		return
	}
	t := time.Date(int(binary.BigEndian.Uint16(b[0:2])), time.Month(b[2]), int(b[3]),
		int(b[4]), int(b[5]), int(b[6]), 0, time.UTC)
	if timestampsOf(m).Modified == nil {
		timestampsOf(m).Modified = &t
	}
}

// ─── Fill-if-empty helpers ───────────────────────────────────────────────────

func captionOf(m *core.MetadataModel) *core.CaptionInfo {
	if m.Caption == nil {
		m.Caption = &core.CaptionInfo{}
	}
	return m.Caption
}

func deviceOf(m *core.MetadataModel) *core.DeviceInfo {
	if m.Device == nil {
		m.Device = &core.DeviceInfo{}
	}
	return m.Device
}

func timestampsOf(m *core.MetadataModel) *core.TimestampInfo {
	if m.Timestamps == nil {
		m.Timestamps = &core.TimestampInfo{}
	}
	return m.Timestamps
}

func gpsOf(m *core.MetadataModel) *core.GPSInfo {
	if m.GPS == nil {
		m.GPS = &core.GPSInfo{}
	}
	return m.GPS
}

func fill(field *string, val string) {
	if *field == "" {
		*field = val
	}
}
