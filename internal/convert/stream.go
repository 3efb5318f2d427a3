package convert

import "github.com/kelindar/musac/internal/pcm"

// StreamConverter is the stateful chunked counterpart of Convert: it
// accumulates input and emits converted output across calls, preserving
// resampler continuity (spec.md §4.3.3). The zero value is not usable;
// construct with NewStreamConverter.
type StreamConverter struct {
	from, to pcm.Spec

	// history holds the last few converted-to-dst-channel, src-rate
	// float32 frames carried from the previous call, used as the left
	// interpolation context (p0/p1) for the next call's first output
	// samples. Holds up to the last 3 frames dropped from pending.
	history []float32

	// outPos is the absolute (real-valued) source-frame position of the
	// next sample this converter will produce, continuous across calls.
	outPos float64

	// baseFrame counts how many source frames have been irreversibly
	// discarded from the front of pending, so indices computed
	// from outPos can be mapped into the current pending buffer.
	baseFrame int64

	// pending holds source-rate, dst-channel float32 frames not yet
	// resampled (or, when rates match, not yet format-converted out).
	pending []float32
}

// NewStreamConverter constructs a converter for chunked input at from's
// format/channels/rate, emitting chunked output at to's.
func NewStreamConverter(from, to pcm.Spec) *StreamConverter {
	return &StreamConverter{from: from, to: to}
}

// Reset clears all accumulated input, pending output and resampler
// continuity state.
func (c *StreamConverter) Reset() {
	c.history = nil
	c.outPos = 0
	c.baseFrame = 0
	c.pending = nil
}

// ProcessChunk converts as much of input as the current accumulation
// allows and returns the produced bytes in the destination format. Any
// leftover input frames (too few for resampling context) are held for
// the next call or for Flush.
func (c *StreamConverter) ProcessChunk(input []byte) []byte {
	floatIn := toFloatFrames(input, c.from)
	mid, err := remixChannels(floatIn, int(c.from.Channels), int(c.to.Channels), c.from.Format)
	if err != nil {
		// Channel layouts this converter cannot remix are rejected at
		// construction time by callers; mid-stream we degrade to silence
		// rather than panic in what may be a real-time-adjacent path.
		mid = make([]float32, 0)
	}

	if c.from.Rate == c.to.Rate {
		c.pending = append(c.pending, mid...)
		out := fromFloatFrames(c.pending, c.to)
		c.pending = c.pending[:0]
		return out
	}

	c.pending = append(c.pending, mid...)
	return c.resampleAvailable(false)
}

// Flush drains all held input, producing final output even where the
// cubic context runs past the true end of the stream (edge interpolation
// error at EOF, per spec.md §4.3.3).
func (c *StreamConverter) Flush() []byte {
	if c.from.Rate == c.to.Rate {
		out := fromFloatFrames(c.pending, c.to)
		c.pending = c.pending[:0]
		return out
	}
	out := c.resampleAvailable(true)
	c.pending = c.pending[:0]
	c.history = nil
	c.outPos = 0
	c.baseFrame = 0
	return out
}

// resampleAvailable produces every output frame whose 4-sample cubic
// window is available given c.pending (prefixed conceptually by
// c.history), stopping once the window would require data not yet
// received -- unless final is set (Flush), in which case the window is
// boundary-clamped at the stream end exactly like the one-shot resampler.
func (c *StreamConverter) resampleAvailable(final bool) []byte {
	channels := int(c.to.Channels)
	if channels == 0 {
		return nil
	}
	ratio := float64(c.from.Rate) / float64(c.to.Rate)

	// window[i] is source frame (c.baseFrame + i); i may be negative,
	// reaching into history.
	histFrames := len(c.history) / channels
	window := func(frame int64, ch int) (float32, bool) {
		i := frame - c.baseFrame
		switch {
		case i < int64(-histFrames):
			return 0, false
		case i < 0:
			hi := histFrames + int(i)
			return c.history[hi*channels+ch], true
		case i < int64(len(c.pending)/channels):
			return c.pending[i*channels+ch], true
		default:
			return 0, false
		}
	}

	var out []float32
	for {
		idx := int64(c.outPos)
		t := float32(c.outPos - float64(idx))

		frames := make([]float32, channels)
		ok := true
		for ch := 0; ch < channels; ch++ {
			p0, ok0 := window(idx-1, ch)
			p1, ok1 := window(idx, ch)
			p2, ok2 := window(idx+1, ch)
			p3, ok3 := window(idx+2, ch)
			if !final && !(ok0 && ok1 && ok2 && ok3) {
				ok = false
				break
			}
			if final {
				// Boundary-clamp: substitute the nearest available
				// sample for any index past the true end of stream.
				if !ok0 {
					p0 = nearest(window, idx-1, ch, histFrames, int64(len(c.pending)/channels), c.baseFrame)
				}
				if !ok1 {
					p1 = nearest(window, idx, ch, histFrames, int64(len(c.pending)/channels), c.baseFrame)
				}
				if !ok2 {
					p2 = nearest(window, idx+1, ch, histFrames, int64(len(c.pending)/channels), c.baseFrame)
				}
				if !ok3 {
					p3 = nearest(window, idx+2, ch, histFrames, int64(len(c.pending)/channels), c.baseFrame)
				}
			}
			frames[ch] = CatmullRom(p0, p1, p2, p3, t)
		}
		if !ok {
			break
		}
		out = append(out, frames...)
		c.outPos += ratio
	}

	// Advance the window: drop pending frames strictly before what the
	// next output sample (and its p0 context) could need, keeping up to
	// 3 trailing frames as history for the next call.
	nextFloor := int64(c.outPos) - 1
	dropTo := nextFloor - c.baseFrame
	if dropTo > int64(len(c.pending)/channels) {
		dropTo = int64(len(c.pending) / channels)
	}
	if dropTo > 0 {
		keepFrom := dropTo - 3
		if keepFrom < 0 {
			keepFrom = 0
		}
		c.history = append([]float32{}, c.pending[keepFrom*int64(channels):dropTo*int64(channels)]...)
		c.pending = append([]float32{}, c.pending[dropTo*int64(channels):]...)
		c.baseFrame += dropTo
	}

	return fromFloatFrames(out, c.to)
}

func nearest(window func(int64, int) (float32, bool), frame int64, ch, histFrames int, pendingFrames, baseFrame int64) float32 {
	lo := baseFrame - int64(histFrames)
	hi := baseFrame + pendingFrames - 1
	switch {
	case frame < lo:
		frame = lo
	case frame > hi:
		frame = hi
	}
	v, _ := window(frame, ch)
	return v
}
