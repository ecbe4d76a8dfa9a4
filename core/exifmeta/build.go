package exifmeta

import (
	"bytes"
	"encoding/binary"
	"sort"

	"photoscrub/core"
)

// TIFF 6.0 field types and the tags the safe segment may carry.
const (
	typeShort    uint16 = 3
	typeLong     uint16 = 4
	typeRational uint16 = 5

	tagOrientation    = 0x0112
	tagXResolution    = 0x011A
	tagYResolution    = 0x011B
	tagResolutionUnit = 0x0128
	tagExifIFD        = 0x8769
	tagColorSpace     = 0xA001
	tagPixelX         = 0xA002
	tagPixelY         = 0xA003
)

// Build serializes a model into a little-endian TIFF block containing
// only the allow-listed rendering fields: orientation and resolution in
// IFD0, colour space and pixel dimensions in the Exif sub-IFD. The
// layout is deterministic, so building the same model twice yields
// byte-identical output. The APP1 "Exif\x00\x00" prefix is the JPEG
// codec's concern, not ours.
func Build(m *core.MetadataModel) []byte {
	var ifd0, sub []ifdEntry

	if m.Orientation != nil {
		ifd0 = append(ifd0, shortEntry(tagOrientation, uint16(*m.Orientation)))
	}
	if m.Resolution != nil {
		ifd0 = append(ifd0,
			rationalEntry(tagXResolution, uint32(m.Resolution.X), 1),
			rationalEntry(tagYResolution, uint32(m.Resolution.Y), 1),
			shortEntry(tagResolutionUnit, uint16(m.Resolution.Unit)))
	}

	if m.ColorModel != "" {
		cs := uint16(0xFFFF) // uncalibrated
		if m.ColorModel == "RGB" {
			cs = 1
		}
		sub = append(sub, shortEntry(tagColorSpace, cs))
	}
	if m.PixelWidth != nil {
		sub = append(sub, longEntry(tagPixelX, uint32(*m.PixelWidth)))
	}
	if m.PixelHeight != nil {
		sub = append(sub, longEntry(tagPixelY, uint32(*m.PixelHeight)))
	}

	var exifOffset uint32
	if len(sub) > 0 {
		exifOffset = 8 + uint32(ifdByteLen(len(ifd0)+1, ifd0))
		ifd0 = append(ifd0, longEntry(tagExifIFD, exifOffset))
	}
	sortEntries(ifd0)
	sortEntries(sub)

	var buf bytes.Buffer
	buf.WriteString("II")
	buf.Write([]byte{0x2A, 0x00})
	buf.Write([]byte{0x08, 0x00, 0x00, 0x00})
	buf.Write(writeIFD(8, ifd0))
	if len(sub) > 0 {
		buf.Write(writeIFD(exifOffset, sub))
	}
	return buf.Bytes()
}

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte
}

func shortEntry(tag uint16, v uint16) ifdEntry {
	val := make([]byte, 2)
	binary.LittleEndian.PutUint16(val, v)
	return ifdEntry{tag: tag, typ: typeShort, count: 1, value: val}
}

func longEntry(tag uint16, v uint32) ifdEntry {
	val := make([]byte, 4)
	binary.LittleEndian.PutUint32(val, v)
	return ifdEntry{tag: tag, typ: typeLong, count: 1, value: val}
}

func rationalEntry(tag uint16, num, den uint32) ifdEntry {
	val := make([]byte, 8)
	binary.LittleEndian.PutUint32(val[0:4], num)
	binary.LittleEndian.PutUint32(val[4:8], den)
	return ifdEntry{tag: tag, typ: typeRational, count: 1, value: val}
}

func sortEntries(entries []ifdEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })
}

// ifdByteLen is the serialized size of an IFD with n entries, counting
// the out-of-line values of the ones already collected.
func ifdByteLen(n int, entries []ifdEntry) int {
	size := 2 + n*12 + 4
	for _, e := range entries {
		if len(e.value) > 4 {
			size += len(e.value)
		}
	}
	return size
}

// writeIFD serializes one IFD at the given absolute offset within the
// TIFF block. Values wider than four bytes land directly after the
// entry table, in entry order.
func writeIFD(base uint32, entries []ifdEntry) []byte {
	tableLen := 2 + len(entries)*12 + 4
	var table, extra bytes.Buffer

	le16 := func(v uint16) { binary.Write(&table, binary.LittleEndian, v) }
	le32 := func(v uint32) { binary.Write(&table, binary.LittleEndian, v) }

	le16(uint16(len(entries)))
	for _, e := range entries {
		le16(e.tag)
		le16(e.typ)
		le32(e.count)
		if len(e.value) <= 4 {
			padded := make([]byte, 4)
			copy(padded, e.value)
			table.Write(padded)
		} else {
			le32(base + uint32(tableLen) + uint32(extra.Len()))
			extra.Write(e.value)
		}
	}
	le32(0) // no next IFD
	table.Write(extra.Bytes())
	return table.Bytes()
}
