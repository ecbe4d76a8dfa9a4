// Package core defines the metadata model, privacy classification, and
// format registry for photoscrub.
package core

import "time"

// MetadataModel is the typed decomposition of one image's metadata.
// Every field is optional: a nil pointer (or empty string) means the
// container carried nothing in that category. Absence is meaningful and
// is never backfilled from pixel data. A model describes exactly one
// image and is never shared or cached across files.
type MetadataModel struct {
	Orientation *int // EXIF orientation, 1..8
	PixelWidth  *int
	PixelHeight *int
	ColorModel  string // "RGB", "CMYK", "Gray", "YCbCr"; empty when unknown
	Resolution  *Resolution
	GPS         *GPSInfo
	Device      *DeviceInfo
	Timestamps  *TimestampInfo
	Camera      *CameraSettings
	Caption     *CaptionInfo
}

// Empty reports whether no category of metadata was found at all.
func (m *MetadataModel) Empty() bool {
	return m.Orientation == nil && m.PixelWidth == nil && m.PixelHeight == nil &&
		m.ColorModel == "" && m.Resolution == nil && m.GPS == nil &&
		m.Device == nil && m.Timestamps == nil && m.Camera == nil && m.Caption == nil
}

// Resolution is a display density hint. Unit follows the TIFF
// ResolutionUnit encoding: 2 means pixels per inch, 3 pixels per
// centimetre.
type Resolution struct {
	X    float64
	Y    float64
	Unit int
}

const (
	ResolutionInch       = 2
	ResolutionCentimetre = 3
)

// GPSInfo holds location fields decoded from the EXIF GPS IFD.
// Coordinates are decimal degrees, south and west negative.
type GPSInfo struct {
	Latitude  *float64
	Longitude *float64
	Altitude  *float64 // metres, below sea level negative
	Timestamp *time.Time
}

// HasFix reports whether both coordinates are present, i.e. the file
// pins an exact location.
func (g *GPSInfo) HasFix() bool {
	return g != nil && g.Latitude != nil && g.Longitude != nil
}

// DeviceInfo identifies the hardware and software that produced the
// image. Serial numbers and owner names are the strongest identifiers.
type DeviceInfo struct {
	Make         string
	Model        string
	Software     string
	LensModel    string
	SerialNumber string
	OwnerName    string
}

// Empty reports whether every device field is blank.
func (d *DeviceInfo) Empty() bool {
	return d == nil || (d.Make == "" && d.Model == "" && d.Software == "" &&
		d.LensModel == "" && d.SerialNumber == "" && d.OwnerName == "")
}

// TimestampInfo carries the capture and modification times recorded by
// the producer.
type TimestampInfo struct {
	Original  *time.Time // when the shutter fired (DateTimeOriginal)
	Digitized *time.Time // when the image became a file
	Modified  *time.Time // last edit (DateTime, PNG tIME)
}

// Empty reports whether no timestamp is present.
func (t *TimestampInfo) Empty() bool {
	return t == nil || (t.Original == nil && t.Digitized == nil && t.Modified == nil)
}

// CameraSettings are exposure parameters. They are tracked for
// completeness but are not treated as privacy sensitive.
type CameraSettings struct {
	ISO          *int
	ExposureTime string // e.g. "1/250"
	FNumber      *float64
	FocalLength  *float64 // millimetres
	Flash        *int
}

// Empty reports whether no setting is present.
func (c *CameraSettings) Empty() bool {
	return c == nil || (c.ISO == nil && c.ExposureTime == "" && c.FNumber == nil &&
		c.FocalLength == nil && c.Flash == nil)
}

// CaptionInfo is descriptive metadata embedded by people or tools:
// IPTC records, XMP descriptions, PNG text chunks, JPEG and GIF
// comments. Free-text fields routinely leak names and places.
type CaptionInfo struct {
	Caption         string
	Headline        string
	Keywords        []string
	Byline          string
	Credit          string
	Source          string
	City            string
	Province        string
	Country         string
	CopyrightNotice string
	DateCreated     string // as authored, e.g. "20240115"
}

// Empty reports whether every caption field is blank.
func (c *CaptionInfo) Empty() bool {
	return c == nil || (c.Caption == "" && c.Headline == "" && len(c.Keywords) == 0 &&
		c.Byline == "" && c.Credit == "" && c.Source == "" && c.City == "" &&
		c.Province == "" && c.Country == "" && c.CopyrightNotice == "" &&
		c.DateCreated == "")
}

// RiskLevel ranks how exposing a file's metadata is.
type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
)

func (r RiskLevel) String() string {
	switch r {
	case RiskHigh:
		return "high"
	case RiskMedium:
		return "medium"
	case RiskLow:
		return "low"
	default:
		return "none"
	}
}

// PrivacyAnalysis is the classifier's verdict on one MetadataModel.
// Values are computed once by Classify and never mutated.
type PrivacyAnalysis struct {
	HasGPS            bool // any GPS field present
	HasExactLocation  bool // both coordinates present
	HasDeviceInfo     bool
	HasTimestamps     bool
	HasCameraSettings bool // tracked, but excluded from HasSensitiveData
	HasCaption        bool // IPTC, XMP, text chunks, comments

	HasSensitiveData bool
	Risk             RiskLevel
	Summary          string
}

// StripResult reports one scrub operation. When the rewrite fails the
// engine falls open: Data holds the ORIGINAL bytes, Clean is false, and
// Err carries the failure. Callers that need a hard privacy guarantee
// must check Clean before using Data.
type StripResult struct {
	Data          []byte
	Format        FormatID
	Analysis      PrivacyAnalysis
	Clean         bool
	PayloadDigest string // BLAKE3 of the pixel payload, for diagnostics
	Err           error
}

// BatchResult aggregates a whole run. Items is index-aligned with the
// inputs and always the same length; Failed holds the indexes whose
// rewrite fell back to the original bytes. Overall is the OR-merge of
// every item's analysis.
type BatchResult struct {
	Items   []StripResult
	Failed  []int
	Overall PrivacyAnalysis
}

// FormatInfo describes what the engine can do with a format.
type FormatInfo struct {
	Name       string
	Extensions []string
	MIMETypes  []string
	CanParse   bool
	CanRewrite bool
	Notes      string
}
