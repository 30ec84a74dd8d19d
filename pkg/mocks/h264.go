package mocks

import "bytes"

// Parameter sets of a 64x48 baseline H.264 stream.
var (
	H264SPS = []byte{0x67, 0x42, 0xC0, 0x1E, 0xDA, 0x11, 0xE4}
	H264PPS = []byte{0x68, 0xCE, 0x3C, 0x80}
)

// H264AccessUnit returns a delimited Annex B access unit. Keyframes carry
// the parameter sets and an IDR slice. The slice payload is filler; only
// container code should consume it.
func H264AccessUnit(key bool, fill byte) []byte {
	sc := []byte{0, 0, 0, 1}
	parts := [][]byte{sc, {0x09, 0xF0}}
	if key {
		parts = append(parts, sc, H264SPS, sc, H264PPS, sc, []byte{0x65, 0x88, fill, fill})
	} else {
		parts = append(parts, sc, []byte{0x41, 0x9A, fill, fill})
	}
	return bytes.Join(parts, nil)
}
