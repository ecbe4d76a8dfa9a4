// Package iptc reads IPTC-IIM records out of Photoshop 8BIM resource
// blocks, the payload of a JPEG APP13 segment.
package iptc

import (
	"bytes"
	"encoding/binary"

	"photoscrub/core"
)

// Record 2 dataset numbers for the fields the model keeps.
const (
	dsKeywords        = 0x19 // 2:25
	dsDateCreated     = 0x37 // 2:55
	dsDigitalCreation = 0x3E // 2:62
	dsByline          = 0x50 // 2:80
	dsCity            = 0x5A // 2:90
	dsProvince        = 0x5F // 2:95
	dsCountry         = 0x65 // 2:101
	dsHeadline        = 0x69 // 2:105
	dsCredit          = 0x6E // 2:110
	dsSource          = 0x73 // 2:115
	dsCopyright       = 0x74 // 2:116
	dsCaption         = 0x78 // 2:120
)

// Parse walks the 8BIM resource blocks, finds the IPTC resource
// (0x0404), and fills the model's caption block. Fields already set by
// an earlier source are left alone; keywords accumulate. Malformed
// resource framing ends the walk without error: whatever was decoded
// stands.
func Parse(data []byte, m *core.MetadataModel) {
	i := 0
	for i+8 < len(data) {
		if !bytes.Equal(data[i:i+4], []byte("8BIM")) {
			i++
			continue
		}
		resType := binary.BigEndian.Uint16(data[i+4 : i+6])
		nameLen := int(data[i+6])
		if nameLen%2 == 0 {
			nameLen++ // name is padded to even length including its size byte
		}
		i += 7 + nameLen
		if i+4 > len(data) {
			return
		}
		blockLen := int(binary.BigEndian.Uint32(data[i : i+4]))
		i += 4
		if resType == 0x0404 && i+blockLen <= len(data) {
			parseRecords(data[i:i+blockLen], m)
		}
		i += blockLen
		if blockLen%2 != 0 {
			i++
		}
	}
}

func parseRecords(data []byte, m *core.MetadataModel) {
	i := 0
	for i+5 < len(data) {
		if data[i] != 0x1C {
			i++
			continue
		}
		dataset := data[i+2]
		length := int(binary.BigEndian.Uint16(data[i+3 : i+5]))
		i += 5
		if i+length > len(data) {
			return
		}
		apply(dataset, string(data[i:i+length]), m)
		i += length
	}
}

func apply(dataset byte, val string, m *core.MetadataModel) {
	if val == "" {
		return
	}
	c := m.Caption
	if c == nil {
		c = &core.CaptionInfo{}
		m.Caption = c
	}
	set := func(dst *string) {
		if *dst == "" {
			*dst = val
		}
	}
	switch dataset {
	case dsCaption:
		set(&c.Caption)
	case dsHeadline:
		set(&c.Headline)
	case dsKeywords:
		c.Keywords = append(c.Keywords, val)
	case dsByline:
		set(&c.Byline)
	case dsCredit:
		set(&c.Credit)
	case dsSource:
		set(&c.Source)
	case dsCity:
		set(&c.City)
	case dsProvince:
		set(&c.Province)
	case dsCountry:
		set(&c.Country)
	case dsCopyright:
		set(&c.CopyrightNotice)
	case dsDateCreated, dsDigitalCreation:
		set(&c.DateCreated)
	}
}
