// Package bitstream splits and rewrites start-code delimited video
// elementary streams (H.264 Annex B, MPEG-4 part 2, MPEG-2).
package bitstream

import "github.com/user/camencoder/pkg/media"

// AccessUnit is one coded picture with the headers that precede it.
type AccessUnit struct {
	Data     []byte
	Keyframe bool
}

// Splitter cuts an elementary stream into access units. All three codecs
// use 00 00 01 start codes; what differs is which units open a new picture.
type Splitter struct {
	kind media.CodecKind

	buf        []byte
	cur        []byte
	hasPicture bool
	key        bool
}

// NewSplitter creates a splitter for kind.
func NewSplitter(kind media.CodecKind) *Splitter {
	return &Splitter{kind: kind}
}

// findStartCode returns the index of the next 00 00 01 at or after from,
// widened to include a preceding zero byte of a four-byte code.
func findStartCode(b []byte, from int) int {
	for i := from; i+2 < len(b); i++ {
		if b[i] == 0 && b[i+1] == 0 && b[i+2] == 1 {
			if i > from && b[i-1] == 0 {
				return i - 1
			}
			return i
		}
	}
	return -1
}

// unitHeader returns the bytes following the start code of a unit.
func unitHeader(unit []byte) []byte {
	for i := 0; i+2 < len(unit); i++ {
		if unit[i] == 0 && unit[i+1] == 0 && unit[i+2] == 1 {
			return unit[i+3:]
		}
	}
	return nil
}

// Write consumes stream bytes and returns the access units they complete.
func (s *Splitter) Write(p []byte) []AccessUnit {
	s.buf = append(s.buf, p...)
	var out []AccessUnit

	start := findStartCode(s.buf, 0)
	if start < 0 {
		return nil
	}
	for {
		// Skip past the current start code before looking for the next.
		next := findStartCode(s.buf, start+3)
		if next < 0 {
			break
		}
		if au, ok := s.addUnit(s.buf[start:next]); ok {
			out = append(out, au)
		}
		start = next
	}
	s.buf = append(s.buf[:0], s.buf[start:]...)
	return out
}

// Flush returns the final access unit once the stream has ended.
func (s *Splitter) Flush() []AccessUnit {
	var out []AccessUnit
	if len(s.buf) > 0 {
		if au, ok := s.addUnit(s.buf); ok {
			out = append(out, au)
		}
		s.buf = nil
	}
	if s.hasPicture {
		out = append(out, AccessUnit{Data: s.cur, Keyframe: s.key})
	}
	s.cur, s.hasPicture, s.key = nil, false, false
	return out
}

// addUnit appends a unit to the current access unit, first emitting the
// current one if the unit starts a new picture.
func (s *Splitter) addUnit(unit []byte) (AccessUnit, bool) {
	hdr := unitHeader(unit)
	if hdr == nil {
		s.cur = append(s.cur, unit...)
		return AccessUnit{}, false
	}

	boundary, picture, key := s.classify(hdr)

	var au AccessUnit
	emitted := false
	if boundary && s.hasPicture {
		au = AccessUnit{Data: s.cur, Keyframe: s.key}
		emitted = true
		s.cur, s.hasPicture, s.key = nil, false, false
	}
	s.cur = append(s.cur, unit...)
	if picture {
		if !s.hasPicture {
			s.key = key
		}
		s.hasPicture = true
	}
	return au, emitted
}

// classify reports whether a unit opens a new access unit when a picture is
// already collected, whether it carries picture data, and whether that
// picture is a keyframe.
func (s *Splitter) classify(hdr []byte) (boundary, picture, key bool) {
	switch s.kind {
	case media.CodecH264:
		return classifyH264(hdr)
	case media.CodecMPEG4:
		return classifyMPEG4(hdr)
	case media.CodecMPEG2:
		return classifyMPEG2(hdr)
	}
	return false, false, false
}

func classifyH264(hdr []byte) (boundary, picture, key bool) {
	switch nalType := hdr[0] & 0x1F; nalType {
	case 1, 5:
		// first_mb_in_slice is ue(v); a leading 1 bit means it is zero.
		firstSlice := len(hdr) > 1 && hdr[1]&0x80 != 0
		return firstSlice, true, nalType == 5
	case 6, 7, 8, 9, 14, 15:
		return true, false, false
	default:
		return false, false, false
	}
}

func classifyMPEG4(hdr []byte) (boundary, picture, key bool) {
	switch code := hdr[0]; {
	case code == 0xB6:
		// vop_coding_type 00 is an I-VOP.
		return true, true, len(hdr) > 1 && hdr[1]>>6 == 0
	case code == 0xB0, code == 0xB3, code == 0xB5, code <= 0x2F:
		return true, false, false
	default:
		return false, false, false
	}
}

func classifyMPEG2(hdr []byte) (boundary, picture, key bool) {
	switch code := hdr[0]; code {
	case 0x00:
		// picture_coding_type follows the 10-bit temporal_reference; 1 is I.
		return true, true, len(hdr) > 2 && (hdr[2]>>3)&0x07 == 1
	case 0xB3, 0xB8:
		return true, false, false
	default:
		return false, false, false
	}
}
