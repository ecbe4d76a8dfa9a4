// Package exifmeta decodes EXIF/TIFF blocks into the metadata model and
// serializes the sanitized replacement block.
package exifmeta

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"photoscrub/core"
)

var exifPrefix = []byte("Exif\x00\x00")

// Parse decodes a raw TIFF/EXIF block (with or without the APP1
// "Exif\x00\x00" prefix) and fills the matching model categories.
// Fields that cannot be decoded are simply left absent.
func Parse(data []byte, m *core.MetadataModel) (err error) {
	// goexif can panic on hostile IFD offsets; treat that as a
	// malformed block.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: exif decode: %v", core.ErrMalformedSubBlock, r)
		}
	}()

	data = bytes.TrimPrefix(data, exifPrefix)
	x, decErr := exif.Decode(bytes.NewReader(data))
	if decErr != nil {
		return fmt.Errorf("%w: %v", core.ErrMalformedSubBlock, decErr)
	}

	parseImage(x, m)
	parseDevice(x, m)
	parseTimestamps(x, m)
	parseCamera(x, m)
	parseGPS(x, m)
	parseDescription(x, m)
	return nil
}

func parseImage(x *exif.Exif, m *core.MetadataModel) {
	if v, ok := tagInt(x, exif.Orientation); ok {
		m.Orientation = &v
	}
	if w, ok := tagInt(x, exif.PixelXDimension); ok {
		m.PixelWidth = &w
	} else if w, ok := tagInt(x, exif.ImageWidth); ok {
		m.PixelWidth = &w
	}
	if h, ok := tagInt(x, exif.PixelYDimension); ok {
		m.PixelHeight = &h
	} else if h, ok := tagInt(x, exif.ImageLength); ok {
		m.PixelHeight = &h
	}

	if cs, ok := tagInt(x, exif.ColorSpace); ok && cs == 1 {
		m.ColorModel = "RGB"
	} else if pi, ok := tagInt(x, exif.PhotometricInterpretation); ok {
		switch pi {
		case 0, 1:
			m.ColorModel = "Gray"
		case 2:
			m.ColorModel = "RGB"
		case 5:
			m.ColorModel = "CMYK"
		case 6:
			m.ColorModel = "YCbCr"
		}
	}

	rx, okX := tagFloat(x, exif.XResolution)
	ry, okY := tagFloat(x, exif.YResolution)
	if okX || okY {
		unit := core.ResolutionInch
		if u, ok := tagInt(x, exif.ResolutionUnit); ok && u == core.ResolutionCentimetre {
			unit = core.ResolutionCentimetre
		}
		m.Resolution = &core.Resolution{X: rx, Y: ry, Unit: unit}
	}
}

func parseDevice(x *exif.Exif, m *core.MetadataModel) {
	d := core.DeviceInfo{
		Make:         tagString(x, exif.Make),
		Model:        tagString(x, exif.Model),
		Software:     tagString(x, exif.Software),
		LensModel:    tagString(x, exif.LensModel),
		SerialNumber: tagString(x, exif.FieldName("BodySerialNumber")),
		OwnerName:    tagString(x, exif.FieldName("CameraOwnerName")),
	}
	if !d.Empty() {
		m.Device = &d
	}
}

func parseTimestamps(x *exif.Exif, m *core.MetadataModel) {
	t := core.TimestampInfo{
		Original:  tagTime(x, exif.DateTimeOriginal),
		Digitized: tagTime(x, exif.DateTimeDigitized),
		Modified:  tagTime(x, exif.DateTime),
	}
	if !t.Empty() {
		m.Timestamps = &t
	}
}

func parseCamera(x *exif.Exif, m *core.MetadataModel) {
	var c core.CameraSettings
	if iso, ok := tagInt(x, exif.ISOSpeedRatings); ok {
		c.ISO = &iso
	}
	if num, den, ok := tagRat(x, exif.ExposureTime); ok {
		if den == 1 {
			c.ExposureTime = fmt.Sprintf("%d", num)
		} else {
			c.ExposureTime = fmt.Sprintf("%d/%d", num, den)
		}
	}
	if f, ok := tagFloat(x, exif.FNumber); ok {
		c.FNumber = &f
	}
	if fl, ok := tagFloat(x, exif.FocalLength); ok {
		c.FocalLength = &fl
	}
	if fv, ok := tagInt(x, exif.Flash); ok {
		c.Flash = &fv
	}
	if !c.Empty() {
		m.Camera = &c
	}
}

func parseGPS(x *exif.Exif, m *core.MetadataModel) {
	var g core.GPSInfo
	if lat, lon, err := x.LatLong(); err == nil {
		g.Latitude = &lat
		g.Longitude = &lon
	}
	if alt, ok := tagFloat(x, exif.GPSAltitude); ok {
		if ref, ok := tagInt(x, exif.GPSAltitudeRef); ok && ref == 1 {
			alt = -alt
		}
		g.Altitude = &alt
	}
	if ts := gpsTimestamp(x); ts != nil {
		g.Timestamp = ts
	}
	if g.Latitude != nil || g.Altitude != nil || g.Timestamp != nil {
		m.GPS = &g
	}
}

// gpsTimestamp combines GPSDateStamp and GPSTimeStamp into a UTC time.
func gpsTimestamp(x *exif.Exif) *time.Time {
	date := tagString(x, exif.GPSDateStamp)
	if date == "" {
		return nil
	}
	day, err := time.Parse("2006:01:02", date)
	if err != nil {
		return nil
	}
	tag, err := x.Get(exif.GPSTimeStamp)
	if err != nil || tag.Count < 3 {
		return nil
	}
	var hms [3]int
	for i := 0; i < 3; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return nil
		}
		hms[i] = int(num / den)
	}
	ts := time.Date(day.Year(), day.Month(), day.Day(), hms[0], hms[1], hms[2], 0, time.UTC)
	return &ts
}

func parseDescription(x *exif.Exif, m *core.MetadataModel) {
	desc := tagString(x, exif.ImageDescription)
	if desc == "" {
		desc = tagString(x, exif.UserComment)
	}
	artist := tagString(x, exif.Artist)
	copyright := tagString(x, exif.Copyright)
	if desc == "" && artist == "" && copyright == "" {
		return
	}
	c := ensureCaption(m)
	if c.Caption == "" {
		c.Caption = desc
	}
	if c.Byline == "" {
		c.Byline = artist
	}
	if c.CopyrightNotice == "" {
		c.CopyrightNotice = copyright
	}
}

func ensureCaption(m *core.MetadataModel) *core.CaptionInfo {
	if m.Caption == nil {
		m.Caption = &core.CaptionInfo{}
	}
	return m.Caption
}

// ─── tag helpers ─────────────────────────────────────────────────────────────

func tagString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		// Undefined-type values (UserComment) stringify with quotes.
		s = strings.Trim(tag.String(), `"`)
	}
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}

func tagInt(x *exif.Exif, name exif.FieldName) (int, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, false
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0, false
	}
	return v, true
}

func tagRat(x *exif.Exif, name exif.FieldName) (num, den int64, ok bool) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, 0, false
	}
	num, den, err = tag.Rat2(0)
	if err != nil || den == 0 {
		return 0, 0, false
	}
	return num, den, true
}

func tagFloat(x *exif.Exif, name exif.FieldName) (float64, bool) {
	num, den, ok := tagRat(x, name)
	if !ok {
		return 0, false
	}
	return float64(num) / float64(den), true
}

// tagTime parses the EXIF "YYYY:MM:DD HH:MM:SS" layout.
func tagTime(x *exif.Exif, name exif.FieldName) *time.Time {
	s := tagString(x, name)
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006:01:02 15:04:05", s)
	if err != nil {
		return nil
	}
	return &t
}
