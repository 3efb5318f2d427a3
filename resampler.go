package musac

import (
	"encoding/binary"
	"math"

	"github.com/kelindar/musac/internal/convert"
	"github.com/kelindar/musac/internal/pcm"
)

// Resampler sits between a decoder and the mixer (C7, spec.md §4.5): it
// pulls from decoder in the decoder's own chunk size, folds the result
// through a rate/channel converter, and hands the mixer fixed-size
// device-rate chunks. The ring-buffer refill/resample/compact algorithm
// spec.md §4.5 describes is implemented here by reusing
// internal/convert.StreamConverter verbatim -- that converter already
// carries exactly the same cubic-interpolation continuity-across-calls
// state (3-frame history, fractional output position) the spec's rings
// exist to provide, so there is no separate ring implementation to keep
// in sync with it.
type Resampler struct {
	decoder Decoder

	converter   *convert.StreamConverter
	srcRate     uint32
	srcChannels int
	dstRate     uint32
	channels    int
	chunkSize   int

	decodeBuf []float32
	pending   []float32
	eof       bool

	// byteScratch/floatScratch bridge decodeBuf/converter output through
	// StreamConverter's byte-oriented API without allocating on the RT
	// callback path (spec.md §5: "callback thread... must not
	// allocate"). Both are sized once in SetSpec and reused thereafter,
	// growing only in the defensive, shouldn't-normally-happen case
	// where a single chunk produces more output than anticipated.
	byteScratch  []byte
	floatScratch []float32
}

// NewResampler constructs a Resampler pulling from decoder and
// producing channels-interleaved float32 samples at dstRate, sized to
// chunkSize-frame pulls.
func NewResampler(decoder Decoder, dstRate uint32, channels, chunkSize int) *Resampler {
	r := &Resampler{decoder: decoder}
	r.SetSpec(dstRate, channels, chunkSize)
	return r
}

// SetSpec resizes the resampler for a new destination rate/channel
// count/chunk size, re-reading the decoder's current native rate and
// channel count as the source spec. Per spec.md §4.5 this is called
// either at construction or when the decoder signals a spec change
// mid-stream (after any pending output at the old spec has been
// flushed -- see Pull).
func (r *Resampler) SetSpec(dstRate uint32, channels, chunkSize int) {
	r.dstRate = dstRate
	r.channels = channels
	r.chunkSize = chunkSize
	r.srcRate = r.decoder.Rate()
	r.srcChannels = r.decoder.Channels()

	from := pcm.Spec{Format: pcm.F32LE, Channels: uint8(r.srcChannels), Rate: r.srcRate}
	to := pcm.Spec{Format: pcm.F32LE, Channels: uint8(channels), Rate: dstRate}
	r.converter = convert.NewStreamConverter(from, to)

	// input_ring_len = ceil(dst_chunk * src_rate / dst_rate), rounded up
	// to a channel multiple -- sized here as the decode scratch buffer's
	// frame count, since refilling still means "ask the decoder for
	// about this many source frames per pull".
	framesNeeded := int((int64(chunkSize)*int64(r.srcRate) + int64(dstRate) - 1) / int64(dstRate))
	if framesNeeded < 1 {
		framesNeeded = 1
	}
	r.decodeBuf = make([]float32, framesNeeded*r.srcChannels)

	// byteScratch holds decodeBuf's full byte-encoded form; floatScratch
	// is sized generously for one converted chunk's worth of output
	// (dst-rate frames for the same span of source audio, doubled for
	// margin against rounding/interpolation edge effects).
	r.byteScratch = growBytes(r.byteScratch[:0], len(r.decodeBuf)*4)
	r.floatScratch = growFloats(r.floatScratch[:0], framesNeeded*channels*2)
}

// DiscardPendingSamples zeroes both rings: resampler continuity state
// is dropped so the next Pull starts fresh, and any decoder that keeps
// its own look-ahead buffer is given the chance to discard it too.
func (r *Resampler) DiscardPendingSamples() {
	r.pending = nil
	r.eof = false
	r.converter.Reset()
	if hook, ok := r.decoder.(interface{ DiscardPendingSamples() }); ok {
		hook.DiscardPendingSamples()
	}
}

// Pull fills dst with up to len(dst) interleaved samples at the
// current destination spec, refilling from the decoder and resampling
// as needed. eof is true only once both the decoder and every
// buffered sample are exhausted.
func (r *Resampler) Pull(dst []float32) (produced int, eof bool) {
	produced += r.drainPending(dst)

	for produced < len(dst) && !r.eof {
		n, _ := r.decoder.Decode(r.decodeBuf, r.channels)
		if n == 0 {
			r.eof = true
			r.flushInto(dst, &produced)
			break
		}

		if newRate, newChannels := r.decoder.Rate(), r.decoder.Channels(); newRate != r.srcRate || newChannels != r.srcChannels {
			r.flushInto(dst, &produced)
			r.SetSpec(r.dstRate, r.channels, r.chunkSize)
		}

		out := r.converter.ProcessChunk(r.encodeF32LE(r.decodeBuf[:n]))
		r.pending = append(r.pending, r.decodeF32LE(out)...)
		produced += r.drainPending(dst[produced:])
	}
	return produced, r.eof && len(r.pending) == 0
}

func (r *Resampler) flushInto(dst []float32, produced *int) {
	out := r.converter.Flush()
	r.pending = append(r.pending, r.decodeF32LE(out)...)
	*produced += r.drainPending(dst[*produced:])
}

// drainPending copies as much of pending into dst as fits and compacts
// the remainder back to the front of its backing array (rather than
// just reslicing past the copied prefix) so repeated partial drains
// don't walk pending's backing array forward call after call until
// append is forced to allocate a fresh one.
func (r *Resampler) drainPending(dst []float32) int {
	n := copy(dst, r.pending)
	remaining := copy(r.pending, r.pending[n:])
	r.pending = r.pending[:remaining]
	return n
}

// encodeF32LE writes src into the reusable byte scratch buffer and
// returns it, growing the buffer only if src is larger than last seen.
func (r *Resampler) encodeF32LE(src []float32) []byte {
	r.byteScratch = growBytes(r.byteScratch[:0], len(src)*4)
	for i, v := range src {
		binary.LittleEndian.PutUint32(r.byteScratch[i*4:], math.Float32bits(v))
	}
	return r.byteScratch
}

// decodeF32LE decodes src into the reusable float scratch buffer and
// returns it; the caller must consume or copy out of it before the
// next call, since the backing array is reused.
func (r *Resampler) decodeF32LE(src []byte) []float32 {
	r.floatScratch = growFloats(r.floatScratch[:0], len(src)/4)
	for i := range r.floatScratch {
		r.floatScratch[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return r.floatScratch
}

// growBytes returns buf extended to length n, reusing buf's backing
// array when its capacity already covers n.
func growBytes(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}

// growFloats is growBytes' float32 counterpart.
func growFloats(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}
	return buf[:n]
}
