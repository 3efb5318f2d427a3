package pcspeaker

import (
	"github.com/kelindar/musac/internal/iostream"
)

const sampleRate = 44100

type currentTone struct {
	frequencyHz      float32
	samplesRemaining int64
	active           bool
}

// Decoder is a real-time square-wave generator: it never reaches EOF
// on its own (Duration is always 0, matching the source's "infinite
// stream" doc comment) and instead reports callAgain=true, filled with
// silence, whenever its Queue runs dry so the owning stream stays
// alive for more tones to be appended later.
type Decoder struct {
	queue *Queue

	phase            float32
	phaseIncrement   float32
	currentFrequency float32
	current          currentTone

	open bool
}

func New(queue *Queue) *Decoder {
	return &Decoder{queue: queue}
}

// Open ignores stream entirely -- the PC-speaker decoder has no
// header or file to read, mirroring pc_speaker_decoder::open's (void)
// cast of its stream argument.
func (d *Decoder) Open(stream iostream.Stream) error {
	d.phase = 0
	d.current = currentTone{}
	d.open = true
	return nil
}

func (d *Decoder) Decode(dst []float32, deviceChannels int) (int, bool) {
	if !d.open {
		return 0, false
	}
	channels := deviceChannels
	if channels < 1 {
		channels = 1
	}
	frames := len(dst) / channels
	written := 0

	for written < frames {
		if !d.current.active || d.current.samplesRemaining == 0 {
			if !d.dequeueNextTone() {
				for i := written; i < frames; i++ {
					writeFrame(dst, i, channels, 0)
				}
				return frames * channels, true
			}
		}

		chunk := frames - written
		if int64(chunk) > d.current.samplesRemaining {
			chunk = int(d.current.samplesRemaining)
		}
		for i := 0; i < chunk; i++ {
			writeFrame(dst, written+i, channels, d.generateSample())
			d.current.samplesRemaining--
		}
		written += chunk
	}

	callAgain := d.current.active || !d.queue.Empty()
	return frames * channels, callAgain
}

func writeFrame(dst []float32, frame, channels int, value float32) {
	base := frame * channels
	for c := 0; c < channels; c++ {
		dst[base+c] = value
	}
}

func (d *Decoder) Rewind() bool {
	d.phase = 0
	d.current = currentTone{}
	return true
}

// Duration is always 0: a PC-speaker stream has no fixed length.
func (d *Decoder) Duration() int64 { return 0 }

// SeekToTime is never supported for a real-time tone generator.
func (d *Decoder) SeekToTime(microseconds int64) bool { return false }

func (d *Decoder) Channels() int { return 1 }
func (d *Decoder) Rate() uint32  { return sampleRate }
func (d *Decoder) Name() string  { return "pc_speaker" }
func (d *Decoder) IsOpen() bool  { return d.open }

func (d *Decoder) setFrequency(hz float32) {
	if hz == d.currentFrequency {
		return
	}
	d.currentFrequency = hz
	if hz > 0 {
		d.phaseIncrement = (2.0 * hz) / float32(sampleRate)
	} else {
		d.phaseIncrement = 0
	}
}

func (d *Decoder) generateSample() float32 {
	if d.currentFrequency <= 0 {
		return 0
	}
	d.phase += d.phaseIncrement
	if d.phase >= 1.0 {
		d.phase -= 2.0
	}
	if d.phase >= 0.0 {
		return 0.3
	}
	return -0.3
}

// dequeueNextTone is called from Decode, the RT path, so it uses
// TryPop rather than Pop: if a concurrent Push/Clear currently holds
// the queue lock, this tick emits silence instead of blocking (spec.md
// §5's "callback thread... must not... acquire long locks").
func (d *Decoder) dequeueNextTone() bool {
	tone, ok, acquired := d.queue.TryPop()
	if !acquired || !ok {
		d.current.active = false
		return false
	}

	samples := int64(tone.Duration.Milliseconds()) * sampleRate / 1000
	d.current.frequencyHz = tone.FrequencyHz
	d.current.samplesRemaining = samples
	d.current.active = true
	d.setFrequency(tone.FrequencyHz)
	return true
}
