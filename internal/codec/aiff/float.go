package aiff

import "math"

func float32frombits(bits uint32) float32 { return math.Float32frombits(bits) }
func float64frombits(bits uint64) float64 { return math.Float64frombits(bits) }
