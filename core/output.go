package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// InspectReport bundles everything the inspect command shows for one
// file.
type InspectReport struct {
	Path     string
	Format   FormatID
	Model    *MetadataModel
	Analysis PrivacyAnalysis
}

// Printer handles all display output for the CLI.
type Printer struct {
	JSON    bool
	Verbose bool
	Writer  io.Writer
}

// NewPrinter creates a default Printer writing to stdout.
func NewPrinter(jsonMode, verbose bool) *Printer {
	return &Printer{JSON: jsonMode, Verbose: verbose, Writer: os.Stdout}
}

// PrintReport renders one file's inspection to the configured output.
func (p *Printer) PrintReport(r *InspectReport) {
	if p.JSON {
		p.printJSON(reportJSON(r))
		return
	}
	p.printReportText(r)
}

func (p *Printer) printReportText(r *InspectReport) {
	fmt.Fprintf(p.Writer, "File  : %s\n", r.Path)
	fmt.Fprintf(p.Writer, "Format: %s\n", InfoFor(r.Format).Name)
	fmt.Fprintf(p.Writer, "Risk  : %s\n", r.Analysis.Risk)
	fmt.Fprintf(p.Writer, "Found : %s\n", describeFindings(r.Analysis))
	if r.Model == nil || r.Model.Empty() {
		fmt.Fprintln(p.Writer, "(no metadata found)")
		return
	}
	fmt.Fprintln(p.Writer)

	m := r.Model
	section := func(name string) { fmt.Fprintf(p.Writer, "── %s ──\n", name) }
	field := func(key, val string) {
		if val != "" {
			fmt.Fprintf(p.Writer, "  %-18s %s\n", key+":", val)
		}
	}

	section("Image")
	if m.Orientation != nil {
		field("Orientation", fmt.Sprintf("%d", *m.Orientation))
	}
	if m.PixelWidth != nil && m.PixelHeight != nil {
		field("Dimensions", fmt.Sprintf("%d x %d", *m.PixelWidth, *m.PixelHeight))
	}
	field("ColorModel", m.ColorModel)
	if m.Resolution != nil {
		unit := "dpi"
		if m.Resolution.Unit == ResolutionCentimetre {
			unit = "px/cm"
		}
		field("Resolution", fmt.Sprintf("%g x %g %s", m.Resolution.X, m.Resolution.Y, unit))
	}
	fmt.Fprintln(p.Writer)

	if m.GPS != nil {
		section("Location")
		if m.GPS.Latitude != nil {
			field("Latitude", fmt.Sprintf("%.6f", *m.GPS.Latitude))
		}
		if m.GPS.Longitude != nil {
			field("Longitude", fmt.Sprintf("%.6f", *m.GPS.Longitude))
		}
		if m.GPS.Altitude != nil {
			field("Altitude", fmt.Sprintf("%.1f m", *m.GPS.Altitude))
		}
		if m.GPS.Timestamp != nil {
			field("GPSTime", m.GPS.Timestamp.Format(time.RFC3339))
		}
		fmt.Fprintln(p.Writer)
	}

	if !m.Device.Empty() {
		section("Device")
		field("Make", m.Device.Make)
		field("Model", m.Device.Model)
		field("Software", m.Device.Software)
		field("Lens", m.Device.LensModel)
		field("SerialNumber", m.Device.SerialNumber)
		field("Owner", m.Device.OwnerName)
		fmt.Fprintln(p.Writer)
	}

	if !m.Timestamps.Empty() {
		section("Timestamps")
		ts := func(key string, t *time.Time) {
			if t != nil {
				field(key, t.Format("2006-01-02 15:04:05"))
			}
		}
		ts("Original", m.Timestamps.Original)
		ts("Digitized", m.Timestamps.Digitized)
		ts("Modified", m.Timestamps.Modified)
		fmt.Fprintln(p.Writer)
	}

	if p.Verbose && !m.Camera.Empty() {
		section("Camera")
		if m.Camera.ISO != nil {
			field("ISO", fmt.Sprintf("%d", *m.Camera.ISO))
		}
		field("Exposure", m.Camera.ExposureTime)
		if m.Camera.FNumber != nil {
			field("FNumber", fmt.Sprintf("f/%.1f", *m.Camera.FNumber))
		}
		if m.Camera.FocalLength != nil {
			field("FocalLength", fmt.Sprintf("%.1f mm", *m.Camera.FocalLength))
		}
		fmt.Fprintln(p.Writer)
	}

	if !m.Caption.Empty() {
		section("Embedded")
		field("Caption", m.Caption.Caption)
		field("Headline", m.Caption.Headline)
		field("Keywords", strings.Join(m.Caption.Keywords, ", "))
		field("Byline", m.Caption.Byline)
		field("Credit", m.Caption.Credit)
		field("Source", m.Caption.Source)
		field("City", m.Caption.City)
		field("Province", m.Caption.Province)
		field("Country", m.Caption.Country)
		field("Copyright", m.Caption.CopyrightNotice)
		field("DateCreated", m.Caption.DateCreated)
		fmt.Fprintln(p.Writer)
	}
}

// describeFindings is the one-line category listing for text reports.
func describeFindings(a PrivacyAnalysis) string {
	var cats []string
	if a.HasGPS {
		cats = append(cats, "location")
	}
	if a.HasDeviceInfo {
		cats = append(cats, "device")
	}
	if a.HasTimestamps {
		cats = append(cats, "timestamps")
	}
	if a.HasCameraSettings {
		cats = append(cats, "camera settings")
	}
	if a.HasCaption {
		cats = append(cats, "embedded text")
	}
	if len(cats) == 0 {
		return "nothing sensitive"
	}
	return strings.Join(cats, ", ")
}

// PrintStripResult renders one scrub outcome.
func (p *Printer) PrintStripResult(path string, res *StripResult) {
	if p.JSON {
		p.printJSON(stripJSON(path, res))
		return
	}
	if res.Clean {
		fmt.Fprintf(p.Writer, "✓ %s: %s\n", path, res.Analysis.Summary)
		return
	}
	fmt.Fprintf(p.Writer, "✗ %s: kept original bytes (%v)\n", path, res.Err)
}

// PrintBatchSummary renders the batch footer.
func (p *Printer) PrintBatchSummary(res *BatchResult) {
	if p.JSON {
		p.printJSON(struct {
			Total   int          `json:"total"`
			Failed  []int        `json:"failed,omitempty"`
			Overall analysisJSON `json:"overall"`
		}{len(res.Items), res.Failed, toAnalysisJSON(res.Overall)})
		return
	}
	fmt.Fprintf(p.Writer, "\n%d file(s), %d failed\n", len(res.Items), len(res.Failed))
	fmt.Fprintf(p.Writer, "Overall: %s (risk %s)\n", res.Overall.Summary, res.Overall.Risk)
}

// ─── JSON shapes ─────────────────────────────────────────────────────────────

type analysisJSON struct {
	HasGPS            bool   `json:"hasGps"`
	HasExactLocation  bool   `json:"hasExactLocation"`
	HasDeviceInfo     bool   `json:"hasDeviceInfo"`
	HasTimestamps     bool   `json:"hasTimestamps"`
	HasCameraSettings bool   `json:"hasCameraSettings"`
	HasCaption        bool   `json:"hasEmbeddedMetadata"`
	HasSensitiveData  bool   `json:"hasSensitiveData"`
	Risk              string `json:"risk"`
	Summary           string `json:"summary"`
}

func toAnalysisJSON(a PrivacyAnalysis) analysisJSON {
	return analysisJSON{
		HasGPS:            a.HasGPS,
		HasExactLocation:  a.HasExactLocation,
		HasDeviceInfo:     a.HasDeviceInfo,
		HasTimestamps:     a.HasTimestamps,
		HasCameraSettings: a.HasCameraSettings,
		HasCaption:        a.HasCaption,
		HasSensitiveData:  a.HasSensitiveData,
		Risk:              a.Risk.String(),
		Summary:           a.Summary,
	}
}

type modelJSON struct {
	Orientation *int            `json:"orientation,omitempty"`
	PixelWidth  *int            `json:"pixelWidth,omitempty"`
	PixelHeight *int            `json:"pixelHeight,omitempty"`
	ColorModel  string          `json:"colorModel,omitempty"`
	GPS         *GPSInfo        `json:"gps,omitempty"`
	Device      *DeviceInfo     `json:"device,omitempty"`
	Timestamps  *TimestampInfo  `json:"timestamps,omitempty"`
	Camera      *CameraSettings `json:"cameraSettings,omitempty"`
	Caption     *CaptionInfo    `json:"embedded,omitempty"`
}

func reportJSON(r *InspectReport) any {
	out := struct {
		File     string       `json:"file"`
		Format   string       `json:"format"`
		Analysis analysisJSON `json:"analysis"`
		Metadata modelJSON    `json:"metadata"`
	}{
		File:     r.Path,
		Format:   string(r.Format),
		Analysis: toAnalysisJSON(r.Analysis),
	}
	if m := r.Model; m != nil {
		out.Metadata = modelJSON{
			Orientation: m.Orientation,
			PixelWidth:  m.PixelWidth,
			PixelHeight: m.PixelHeight,
			ColorModel:  m.ColorModel,
			GPS:         m.GPS,
			Device:      m.Device,
			Timestamps:  m.Timestamps,
			Camera:      m.Camera,
			Caption:     m.Caption,
		}
	}
	return out
}

func stripJSON(path string, res *StripResult) any {
	errStr := ""
	if res.Err != nil {
		errStr = res.Err.Error()
	}
	return struct {
		File          string       `json:"file"`
		Format        string       `json:"format"`
		Clean         bool         `json:"clean"`
		PayloadDigest string       `json:"payloadDigest,omitempty"`
		Error         string       `json:"error,omitempty"`
		Analysis      analysisJSON `json:"analysis"`
	}{path, string(res.Format), res.Clean, res.PayloadDigest, errStr, toAnalysisJSON(res.Analysis)}
}

func (p *Printer) printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(p.Writer, string(b))
}

// PrintError prints an error to stderr.
func PrintError(msg string) {
	fmt.Fprintln(os.Stderr, "✗ Error: "+msg)
}

// ResolveOutPath returns dst if non-empty, otherwise a sibling of src
// with the suffix inserted before the extension. An empty suffix means
// in-place.
func ResolveOutPath(src, dst, suffix string) string {
	if dst != "" {
		return dst
	}
	if suffix == "" {
		return src
	}
	ext := filepath.Ext(src)
	return strings.TrimSuffix(src, ext) + suffix + ext
}
