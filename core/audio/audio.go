// Package audio scrubs identifying tags from audio files: MP3 (ID3v1
// and ID3v2), FLAC (Vorbis comments and pictures), WAV (LIST INFO, id3
// and broadcast chunks). It is the sidecar to the image pipeline for
// mixed directories; the watch daemon routes non-image files here.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/fs"
	"os"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"

	"photoscrub/core"
)

// Field is one tag found during inspection.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Report is what Inspect found in one audio file. Sensitive is true
// when the tags identify a person: artist names, comments, lyrics or a
// release year narrow down who made or owns the file.
type Report struct {
	Format    core.FormatID
	Fields    []Field
	Sensitive bool
}

// Inspect reads the tags of an audio file without modifying it.
func Inspect(path string) (*Report, error) {
	format, err := core.DetectFile(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := tag.ReadFrom(f)
	if err != nil {
		// No tags is a valid answer, not an error.
		return &Report{Format: format}, nil
	}

	r := &Report{Format: format}
	add := func(key, val string) {
		if val != "" {
			r.Fields = append(r.Fields, Field{Key: key, Value: val})
		}
	}
	add("Title", t.Title())
	add("Artist", t.Artist())
	add("Album", t.Album())
	add("AlbumArtist", t.AlbumArtist())
	add("Composer", t.Composer())
	add("Genre", t.Genre())
	add("Comment", t.Comment())
	if t.Year() != 0 {
		add("Year", fmt.Sprintf("%d", t.Year()))
	}
	add("Lyrics", t.Lyrics())

	r.Sensitive = t.Artist() != "" || t.AlbumArtist() != "" || t.Composer() != "" ||
		t.Comment() != "" || t.Lyrics() != "" || t.Year() != 0
	return r, nil
}

// StripFile removes all tags from src and writes the result to dst.
// src and dst may be the same path for in-place scrubbing.
func StripFile(src, dst string) error {
	format, err := core.DetectFile(src)
	if err != nil {
		return err
	}
	switch format {
	case core.FmtMP3:
		return stripMP3(src, dst)
	case core.FmtFLAC:
		return stripFLAC(src, dst)
	case core.FmtWAV:
		return stripWAV(src, dst)
	default:
		return fmt.Errorf("%w: no tag removal for %s", core.ErrEncodeFailure, format)
	}
}

// ─── MP3 ─────────────────────────────────────────────────────────────────────

func stripMP3(src, dst string) error {
	if err := copyIfDifferent(src, dst); err != nil {
		return err
	}

	t, err := id3v2.Open(dst, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("could not open MP3: %w", err)
	}
	t.DeleteAllFrames()
	if err := t.Save(); err != nil {
		t.Close()
		return err
	}
	if err := t.Close(); err != nil {
		return err
	}
	// id3v2 only touches the v2 header at the front; the 128-byte
	// ID3v1 trailer has to go separately.
	return chopID3v1(dst)
}

func chopID3v1(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) >= 128 && bytes.Equal(data[len(data)-128:len(data)-125], []byte("TAG")) {
		return os.Truncate(path, int64(len(data)-128))
	}
	return nil
}

// ─── FLAC ────────────────────────────────────────────────────────────────────
// FLAC metadata block: 1-bit last flag, 7-bit type, 24-bit length, then
// the block data. Type 4 is the Vorbis comment block.

type flacBlock struct {
	blockType byte
	data      []byte
}

func stripFLAC(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if len(data) < 4 || !bytes.Equal(data[0:4], []byte("fLaC")) {
		return fmt.Errorf("%w: not a FLAC file", core.ErrUndecodablePayload)
	}

	blocks, audioStart, err := parseFLACBlocks(data)
	if err != nil {
		return err
	}

	// Keep STREAMINFO and friends; drop pictures (6) and application
	// data (2), and replace any Vorbis comment with an empty one.
	var kept []flacBlock
	for _, b := range blocks {
		switch b.blockType {
		case 2, 6:
			continue
		case 4:
			b.data = buildVorbisComment(nil)
		}
		kept = append(kept, b)
	}
	return writeFLAC(dst, kept, data[audioStart:], fileMode(src))
}

func parseFLACBlocks(data []byte) ([]flacBlock, int, error) {
	var blocks []flacBlock
	i := 4 // skip "fLaC"
	for i+4 <= len(data) {
		header := binary.BigEndian.Uint32(data[i : i+4])
		isLast := (header >> 31) == 1
		blockType := byte((header >> 24) & 0x7F)
		length := int(header & 0xFFFFFF)
		i += 4
		if i+length > len(data) {
			return nil, i, fmt.Errorf("%w: FLAC block truncated", core.ErrUndecodablePayload)
		}
		blocks = append(blocks, flacBlock{blockType: blockType, data: data[i : i+length]})
		i += length
		if isLast {
			break
		}
	}
	return blocks, i, nil
}

// buildVorbisComment writes a comment block with only the mandatory
// vendor string: 4-byte LE vendor length, vendor, 4-byte LE count, then
// length-prefixed KEY=VALUE entries.
func buildVorbisComment(fields map[string]string) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian

	vendor := []byte("photoscrub")
	n := make([]byte, 4)
	le.PutUint32(n, uint32(len(vendor)))
	buf.Write(n)
	buf.Write(vendor)

	cnt := make([]byte, 4)
	le.PutUint32(cnt, uint32(len(fields)))
	buf.Write(cnt)

	for k, v := range fields {
		comment := k + "=" + v
		cLen := make([]byte, 4)
		le.PutUint32(cLen, uint32(len(comment)))
		buf.Write(cLen)
		buf.WriteString(comment)
	}
	return buf.Bytes()
}

func writeFLAC(path string, blocks []flacBlock, audioData []byte, mode fs.FileMode) error {
	var buf bytes.Buffer
	buf.WriteString("fLaC")
	for i, b := range blocks {
		header := uint32(b.blockType)<<24 | uint32(len(b.data))
		if i == len(blocks)-1 {
			header |= 1 << 31
		}
		h := make([]byte, 4)
		binary.BigEndian.PutUint32(h, header)
		buf.Write(h)
		buf.Write(b.data)
	}
	buf.Write(audioData)
	return os.WriteFile(path, buf.Bytes(), mode)
}

// ─── WAV ─────────────────────────────────────────────────────────────────────

// Chunks that carry metadata rather than audio. bext is the broadcast
// extension with originator and date fields; iXML is production
// metadata.
var wavMetaChunks = map[string]bool{
	"LIST": true,
	"id3 ": true,
	"ID3 ": true,
	"bext": true,
	"iXML": true,
}

func stripWAV(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return fmt.Errorf("%w: not a WAV file", core.ErrUndecodablePayload)
	}

	var body bytes.Buffer
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		offset += 8
		if offset+chunkSize > len(data) {
			break
		}
		if !wavMetaChunks[chunkID] {
			body.Write(data[offset-8 : offset+chunkSize])
			if chunkSize%2 != 0 {
				body.WriteByte(0)
			}
		}
		offset += chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	size := make([]byte, 4)
	binary.LittleEndian.PutUint32(size, uint32(body.Len()+4))
	out.Write(size)
	out.WriteString("WAVE")
	out.Write(body.Bytes())
	return os.WriteFile(dst, out.Bytes(), fileMode(src))
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func copyIfDifferent(src, dst string) error {
	if src == dst {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, fileMode(src))
}

func fileMode(path string) fs.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return 0o644
}
