package cmf

import "math"

// parseCMFEvents walks CMF's music-data block: a standard MIDI-style
// delta-time-plus-channel-event stream (no MThd/MTrk framing, no tempo
// meta events -- the tick rate is fixed for the whole file via the
// header's speed field, passed in as tickHz) until the buffer is
// exhausted or a system/meta status byte (0xF0 and above) is reached.
// Running status is honoured.
func parseCMFEvents(data []byte, tickHz float64) ([]noteEvent, error) {
	var out []noteEvent
	var tick int64
	var runningStatus byte
	i := 0

	for i < len(data) {
		delta, n := readVarLen(data[i:])
		i += n
		tick += delta
		if i >= len(data) {
			break
		}

		status := data[i]
		if status < 0x80 {
			status = runningStatus
		} else {
			i++
			runningStatus = status
		}
		if i > len(data) {
			break
		}

		hi := status & 0xF0
		ch := int(status & 0x0F)
		sample := int64(float64(tick) / tickHz * outputRate)

		switch hi {
		case 0x80: // note off
			note := int(safeByte(data, i))
			i += 2
			out = append(out, noteEvent{atSample: sample, channel: ch, on: false, freqHz: noteFreq(note)})
		case 0x90: // note on (velocity 0 == note off)
			note := int(safeByte(data, i))
			vel := int(safeByte(data, i+1))
			i += 2
			out = append(out, noteEvent{
				atSample: sample, channel: ch, freqHz: noteFreq(note),
				on: vel > 0, gain: float32(vel) / 127,
			})
		case 0xA0, 0xB0, 0xE0:
			i += 2
		case 0xC0, 0xD0:
			i += 1
		default:
			return out, nil
		}
	}
	return out, nil
}

func noteFreq(note int) float64 {
	return 440.0 * math.Exp2((float64(note)-69.0)/12.0)
}

func readVarLen(b []byte) (int64, int) {
	var value int64
	i := 0
	for i < len(b) {
		byteVal := b[i]
		value = value<<7 | int64(byteVal&0x7F)
		i++
		if byteVal&0x80 == 0 {
			break
		}
	}
	return value, i
}

func safeByte(b []byte, i int) byte {
	if i < 0 || i >= len(b) {
		return 0
	}
	return b[i]
}
