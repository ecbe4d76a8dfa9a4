package core

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOutPath(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		dst    string
		suffix string
		want   string
	}{
		{"explicit dst wins", "a/in.jpg", "b/out.jpg", "_clean", "b/out.jpg"},
		{"suffix before extension", "photo.jpg", "", "_clean", "photo_clean.jpg"},
		{"no extension", "photo", "", "_clean", "photo_clean"},
		{"empty suffix means in place", "photo.png", "", "", "photo.png"},
		{"dotted directory untouched", "x.y/photo.png", "", "-s", "x.y/photo-s.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveOutPath(tt.src, tt.dst, tt.suffix))
		})
	}
}

func TestPrintReport_Text(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Writer: &buf}

	lat, lon := 51.5074, -0.1278
	m := &MetadataModel{
		GPS:    &GPSInfo{Latitude: &lat, Longitude: &lon},
		Device: &DeviceInfo{Make: "Apple", Model: "iPhone 15 Pro"},
	}
	p.PrintReport(&InspectReport{
		Path:     "holiday.jpg",
		Format:   FmtJPEG,
		Model:    m,
		Analysis: Classify(m),
	})

	out := buf.String()
	assert.Contains(t, out, "File  : holiday.jpg")
	assert.Contains(t, out, "Format: JPEG")
	assert.Contains(t, out, "Risk  : high")
	assert.Contains(t, out, "51.507400")
	assert.Contains(t, out, "iPhone 15 Pro")
}

func TestPrintReport_TextEmptyModel(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Writer: &buf}

	p.PrintReport(&InspectReport{
		Path:     "blank.png",
		Format:   FmtPNG,
		Model:    &MetadataModel{},
		Analysis: Classify(&MetadataModel{}),
	})

	out := buf.String()
	assert.Contains(t, out, "(no metadata found)")
	assert.Contains(t, out, "nothing sensitive")
}

func TestPrintReport_CameraOnlyWhenVerbose(t *testing.T) {
	iso := 400
	m := &MetadataModel{Camera: &CameraSettings{ISO: &iso}}
	report := &InspectReport{Path: "x.jpg", Format: FmtJPEG, Model: m, Analysis: Classify(m)}

	var quiet bytes.Buffer
	(&Printer{Writer: &quiet}).PrintReport(report)
	assert.NotContains(t, quiet.String(), "── Camera ──")

	var verbose bytes.Buffer
	(&Printer{Verbose: true, Writer: &verbose}).PrintReport(report)
	assert.Contains(t, verbose.String(), "── Camera ──")
	assert.Contains(t, verbose.String(), "400")
}

func TestPrintReport_JSONShape(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{JSON: true, Writer: &buf}

	lat, lon := 40.7128, -74.006
	m := &MetadataModel{GPS: &GPSInfo{Latitude: &lat, Longitude: &lon}}
	p.PrintReport(&InspectReport{Path: "nyc.jpg", Format: FmtJPEG, Model: m, Analysis: Classify(m)})

	var got struct {
		File     string `json:"file"`
		Format   string `json:"format"`
		Analysis struct {
			HasExactLocation bool   `json:"hasExactLocation"`
			Risk             string `json:"risk"`
		} `json:"analysis"`
		Metadata struct {
			GPS *GPSInfo `json:"gps"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "nyc.jpg", got.File)
	assert.Equal(t, "jpeg", got.Format)
	assert.True(t, got.Analysis.HasExactLocation)
	assert.Equal(t, "high", got.Analysis.Risk)
	require.NotNil(t, got.Metadata.GPS)
	require.NotNil(t, got.Metadata.GPS.Latitude)
	assert.InDelta(t, 40.7128, *got.Metadata.GPS.Latitude, 1e-9)
}

func TestPrintStripResult_Text(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Writer: &buf}

	p.PrintStripResult("ok.jpg", &StripResult{
		Clean:    true,
		Analysis: PrivacyAnalysis{Summary: "Removed: location data"},
	})
	p.PrintStripResult("bad.tiff", &StripResult{Clean: false, Err: ErrEncodeFailure})

	out := buf.String()
	assert.Contains(t, out, "✓ ok.jpg: Removed: location data")
	assert.Contains(t, out, "✗ bad.tiff: kept original bytes")
}

func TestPrintStripResult_JSONCarriesError(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{JSON: true, Writer: &buf}

	p.PrintStripResult("bad.bin", &StripResult{Format: FmtUnknown, Err: ErrUnrecognizedFormat})

	var got struct {
		Clean bool   `json:"clean"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.False(t, got.Clean)
	assert.Contains(t, got.Error, "unrecognized")
}

func TestPrintBatchSummary_JSON(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{JSON: true, Writer: &buf}

	p.PrintBatchSummary(&BatchResult{
		Items:   make([]StripResult, 3),
		Failed:  []int{1},
		Overall: PrivacyAnalysis{Risk: RiskMedium, Summary: "Removed: device information"},
	})

	var got struct {
		Total   int   `json:"total"`
		Failed  []int `json:"failed"`
		Overall struct {
			Risk string `json:"risk"`
		} `json:"overall"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, []int{1}, got.Failed)
	assert.Equal(t, "medium", got.Overall.Risk)
}
