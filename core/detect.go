package core

import (
	"bytes"
	"io"
	"os"
	"sort"
	"strings"
)

// FormatID enumerates every recognised format.
type FormatID string

const (
	FmtJPEG FormatID = "jpeg"
	FmtPNG  FormatID = "png"
	FmtGIF  FormatID = "gif"
	FmtWebP FormatID = "webp"
	FmtTIFF FormatID = "tiff"
	FmtHEIC FormatID = "heic"
	FmtBMP  FormatID = "bmp"

	FmtMP3  FormatID = "mp3"
	FmtFLAC FormatID = "flac"
	FmtOGG  FormatID = "ogg"
	FmtM4A  FormatID = "m4a"
	FmtWAV  FormatID = "wav"

	FmtUnknown FormatID = "unknown"
)

// extMap maps lowercase extensions to format IDs. Extensions are a
// routing hint only; DetectFormat on content is always authoritative.
var extMap = map[string]FormatID{
	".jpg":  FmtJPEG,
	".jpeg": FmtJPEG,
	".png":  FmtPNG,
	".gif":  FmtGIF,
	".webp": FmtWebP,
	".tiff": FmtTIFF,
	".tif":  FmtTIFF,
	".heic": FmtHEIC,
	".heif": FmtHEIC,
	".bmp":  FmtBMP,

	".mp3":  FmtMP3,
	".flac": FmtFLAC,
	".ogg":  FmtOGG,
	".oga":  FmtOGG,
	".m4a":  FmtM4A,
	".wav":  FmtWAV,
}

// heicBrands are the ISOBMFF ftyp major brands treated as HEIC/HEIF.
var heicBrands = map[string]bool{
	"heic": true, "heix": true, "heim": true, "heis": true,
	"hevc": true, "hevx": true, "mif1": true, "msf1": true,
}

// DetectFormat identifies a container from its leading bytes. Content
// is the only signal; a mismatched extension never changes the result.
func DetectFormat(b []byte) FormatID {
	if len(b) < 4 {
		return FmtUnknown
	}
	switch {
	// JPEG: FF D8 FF
	case b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return FmtJPEG
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	case bytes.HasPrefix(b, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return FmtPNG
	// GIF: GIF87a or GIF89a
	case bytes.HasPrefix(b, []byte("GIF87a")) || bytes.HasPrefix(b, []byte("GIF89a")):
		return FmtGIF
	// WebP: RIFF????WEBP
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return FmtWebP
	// TIFF: 49 49 2A 00 (little-endian) or 4D 4D 00 2A (big-endian)
	case bytes.HasPrefix(b, []byte{0x49, 0x49, 0x2A, 0x00}) ||
		bytes.HasPrefix(b, []byte{0x4D, 0x4D, 0x00, 0x2A}):
		return FmtTIFF
	// HEIC/HEIF: ftyp box with an HEVC image brand
	case len(b) >= 12 && bytes.Equal(b[4:8], []byte("ftyp")) && heicBrands[string(b[8:12])]:
		return FmtHEIC
	// BMP: 42 4D
	case b[0] == 0x42 && b[1] == 0x4D:
		return FmtBMP
	// MP3: ID3 tag or MPEG frame sync
	case bytes.HasPrefix(b, []byte("ID3")):
		return FmtMP3
	case b[0] == 0xFF && (b[1]&0xE0 == 0xE0):
		return FmtMP3
	// FLAC: fLaC
	case bytes.HasPrefix(b, []byte("fLaC")):
		return FmtFLAC
	// OGG: OggS
	case bytes.HasPrefix(b, []byte("OggS")):
		return FmtOGG
	// WAV: RIFF????WAVE
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE")):
		return FmtWAV
	// M4A: ftyp box with an audio brand
	case len(b) >= 12 && bytes.Equal(b[4:8], []byte("ftyp")) &&
		(string(b[8:12]) == "M4A " || string(b[8:12]) == "M4B "):
		return FmtM4A
	}
	return FmtUnknown
}

// DetectFile sniffs the format of a file on disk, reading only its head
// and falling back to the extension when the magic bytes are ambiguous.
func DetectFile(path string) (FormatID, error) {
	f, err := os.Open(path)
	if err != nil {
		return FmtUnknown, err
	}
	defer f.Close()

	buf := make([]byte, 16)
	n, err := io.ReadFull(f, buf)
	if n == 0 {
		return FmtUnknown, err
	}

	if id := DetectFormat(buf[:n]); id != FmtUnknown {
		return id, nil
	}
	dot := strings.LastIndex(path, ".")
	if dot >= 0 {
		if id, ok := extMap[strings.ToLower(path[dot:])]; ok {
			return id, nil
		}
	}
	return FmtUnknown, nil
}

// MediaTypeFor returns the broad media category for a format.
func MediaTypeFor(id FormatID) string {
	switch id {
	case FmtJPEG, FmtPNG, FmtGIF, FmtWebP, FmtTIFF, FmtHEIC, FmtBMP:
		return "image"
	case FmtMP3, FmtFLAC, FmtOGG, FmtM4A, FmtWAV:
		return "audio"
	default:
		return "unknown"
	}
}

// formatInfo is the capability registry consulted by the CLI and the
// rewriter. CanRewrite is the authoritative statement of which formats
// get a rebuilt metadata segment; everything else falls open.
var formatInfo = map[FormatID]FormatInfo{
	FmtJPEG: {
		Name:       "JPEG",
		Extensions: []string{".jpg", ".jpeg"},
		MIMETypes:  []string{"image/jpeg"},
		CanParse:   true,
		CanRewrite: true,
		Notes:      "EXIF, XMP, IPTC, ICC, and comment segments.",
	},
	FmtPNG: {
		Name:       "PNG",
		Extensions: []string{".png"},
		MIMETypes:  []string{"image/png"},
		CanParse:   true,
		CanRewrite: true,
		Notes:      "eXIf, tEXt, iTXt, zTXt, tIME, and ancillary colour chunks.",
	},
	FmtGIF: {
		Name:       "GIF",
		Extensions: []string{".gif"},
		MIMETypes:  []string{"image/gif"},
		CanParse:   true,
		CanRewrite: true,
		Notes:      "Comment extensions only; animations are preserved.",
	},
	FmtWebP: {
		Name:       "WebP",
		Extensions: []string{".webp"},
		MIMETypes:  []string{"image/webp"},
		CanParse:   true,
		CanRewrite: true,
		Notes:      "EXIF and XMP chunks in the RIFF container.",
	},
	FmtTIFF: {
		Name:       "TIFF",
		Extensions: []string{".tiff", ".tif"},
		MIMETypes:  []string{"image/tiff"},
		CanParse:   true,
		CanRewrite: false,
		Notes:      "IFD metadata is classified; rewriting is not supported.",
	},
	FmtHEIC: {
		Name:       "HEIC/HEIF",
		Extensions: []string{".heic", ".heif"},
		MIMETypes:  []string{"image/heic", "image/heif"},
		CanParse:   true,
		CanRewrite: false,
		Notes:      "EXIF inside the ISOBMFF container is classified; rewriting is not supported.",
	},
	FmtBMP: {
		Name:       "BMP",
		Extensions: []string{".bmp"},
		MIMETypes:  []string{"image/bmp"},
		CanParse:   false,
		CanRewrite: false,
		Notes:      "No metadata carriers handled.",
	},
	FmtMP3: {
		Name:       "MP3",
		Extensions: []string{".mp3"},
		MIMETypes:  []string{"audio/mpeg"},
		CanParse:   true,
		CanRewrite: true,
		Notes:      "ID3v1 and ID3v2 tags, handled by the audio package.",
	},
	FmtFLAC: {
		Name:       "FLAC",
		Extensions: []string{".flac"},
		MIMETypes:  []string{"audio/flac"},
		CanParse:   true,
		CanRewrite: true,
		Notes:      "Vorbis comment and picture blocks, handled by the audio package.",
	},
	FmtOGG: {
		Name:       "OGG",
		Extensions: []string{".ogg", ".oga"},
		MIMETypes:  []string{"audio/ogg"},
		CanParse:   true,
		CanRewrite: false,
		Notes:      "Vorbis comments are inspected only.",
	},
	FmtM4A: {
		Name:       "M4A/AAC",
		Extensions: []string{".m4a"},
		MIMETypes:  []string{"audio/mp4"},
		CanParse:   true,
		CanRewrite: false,
		Notes:      "iTunes-style MP4 atoms are inspected only.",
	},
	FmtWAV: {
		Name:       "WAV",
		Extensions: []string{".wav"},
		MIMETypes:  []string{"audio/wav"},
		CanParse:   true,
		CanRewrite: true,
		Notes:      "LIST INFO and embedded ID3 chunks, handled by the audio package.",
	},
}

// InfoFor returns the capability entry for a format. Unknown formats
// yield a zero FormatInfo.
func InfoFor(id FormatID) FormatInfo {
	return formatInfo[id]
}

// AllFormats lists every registry entry, sorted by name.
func AllFormats() []FormatInfo {
	infos := make([]FormatInfo, 0, len(formatInfo))
	for _, info := range formatInfo {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
