package bitstream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"
)

// NAL unit types used when repackaging H.264.
const (
	NALUSliceIDR = 5
	NALUSPS      = 7
	NALUPPS      = 8
	NALUAUD      = 9
)

var (
	// ErrNoParameterSets is returned when an access unit carries no SPS/PPS.
	ErrNoParameterSets = errors.New("bitstream: SPS/PPS not found")
)

// ParseAnnexB splits an Annex B byte stream into NAL units without start codes.
func ParseAnnexB(data []byte) [][]byte {
	var nalus [][]byte
	start := 0
	i := 0

	for i < len(data) {
		if i+2 < len(data) && data[i] == 0 && data[i+1] == 0 {
			startCodeLen := 0
			if data[i+2] == 1 {
				startCodeLen = 3
			} else if i+3 < len(data) && data[i+2] == 0 && data[i+3] == 1 {
				startCodeLen = 4
			}

			if startCodeLen > 0 {
				if i > start {
					nalus = append(nalus, data[start:i])
				}
				i += startCodeLen
				start = i
				continue
			}
		}
		i++
	}

	if start < len(data) {
		nalus = append(nalus, data[start:])
	}
	return nalus
}

// ToAVCC rewrites an Annex B access unit with 4-byte length prefixes.
// Parameter sets and access unit delimiters are dropped; containers carry
// the former in the decoder configuration record.
func ToAVCC(data []byte) []byte {
	nalus := ParseAnnexB(data)
	out := make([]byte, 0, len(data)+4*len(nalus))
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		switch nalu[0] & 0x1F {
		case NALUSPS, NALUPPS, NALUAUD:
			continue
		}
		out = binary.BigEndian.AppendUint32(out, uint32(len(nalu)))
		out = append(out, nalu...)
	}
	return out
}

// ParameterSets returns the first SPS and PPS of an Annex B access unit.
func ParameterSets(data []byte) (sps, pps []byte, err error) {
	for _, nalu := range ParseAnnexB(data) {
		if len(nalu) == 0 {
			continue
		}
		switch nalu[0] & 0x1F {
		case NALUSPS:
			if sps == nil {
				sps = bytes.Clone(nalu)
			}
		case NALUPPS:
			if pps == nil {
				pps = bytes.Clone(nalu)
			}
		}
	}
	if sps == nil || pps == nil {
		return nil, nil, ErrNoParameterSets
	}
	return sps, pps, nil
}

// AVCConfig builds the avcC box for an SPS/PPS pair.
func AVCConfig(sps, pps []byte) (*mp4.AvcCBox, error) {
	avcC, err := mp4.CreateAvcC([][]byte{sps}, [][]byte{pps}, true)
	if err != nil {
		return nil, fmt.Errorf("create avcC: %w", err)
	}
	return avcC, nil
}

// AVCDecoderConfigRecord returns the avcC payload without its box header,
// the form Matroska stores as codec private data.
func AVCDecoderConfigRecord(sps, pps []byte) ([]byte, error) {
	avcC, err := AVCConfig(sps, pps)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := avcC.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode avcC: %w", err)
	}
	if buf.Len() < 8 {
		return nil, fmt.Errorf("encode avcC: short box")
	}
	return buf.Bytes()[8:], nil
}
