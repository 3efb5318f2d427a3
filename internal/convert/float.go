package convert

import (
	"math"

	"github.com/kelindar/musac/internal/pcm"
)

func readF32(b []byte, bigEndian bool) float32 {
	if bigEndian {
		return math.Float32frombits(pcm.ReadU32BE(b))
	}
	return math.Float32frombits(pcm.ReadU32LE(b))
}

func writeF32(dst []byte, v float32, bigEndian bool) {
	if bigEndian {
		pcm.PutU32BE(dst, math.Float32bits(v))
		return
	}
	pcm.PutU32LE(dst, math.Float32bits(v))
}
