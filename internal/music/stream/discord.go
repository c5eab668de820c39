package stream

import (
	"encoding/binary"
	"math"

	"layeh.com/gopus"
)

func newOpusEncoder() (frameEncoder, error) {
	enc, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

// decodePCM converts little-endian s16 bytes into samples scaled by volume.
func decodePCM(dst []int16, src []byte, volume float64) {
	for i := range dst {
		s := int16(binary.LittleEndian.Uint16(src[i*2 : i*2+2]))
		dst[i] = scale(s, volume)
	}
}

func scale(s int16, volume float64) int16 {
	if volume >= 1 {
		return s
	}
	if volume <= 0 {
		return 0
	}
	v := math.Round(float64(s) * volume)
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
