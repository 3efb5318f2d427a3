package seq

import "errors"

// xmiPPQN is the fixed ticks-per-quarter-note this package assumes for
// XMI's EVNT tick stream. The format itself carries no division field
// (unlike SMF's MThd); every widely used XMI->MIDI converter treats XMI
// ticks as running at a fixed 60 ticks/quarter-note reference tempo
// unless overridden by a tempo meta event, and that is the convention
// used here.
const xmiPPQN = 60

// parseXMI reads the EVNT chunk of the first "FORM ... XMID" sequence
// inside an XMI file's IFF container (FORM XDIR / CAT XMID / FORM XMID
// { TIMB, EVNT }) into a note timeline in absolute output samples.
func parseXMI(raw []byte) ([]noteEvent, error) {
	evnt := iffFind(raw, "EVNT")
	if evnt == nil {
		return nil, errors.New("seq/xmi: no EVNT chunk found")
	}
	return parseXMIEvents(evnt)
}

// iffFind walks an IFF chunk stream, recursing into FORM/CAT containers,
// and returns the body of the first chunk whose ID matches id.
func iffFind(data []byte, id string) []byte {
	pos := 0
	for pos+8 <= len(data) {
		cid := string(data[pos : pos+4])
		size := int(be32(data[pos+4 : pos+8]))
		bodyStart := pos + 8
		bodyEnd := bodyStart + size
		if bodyEnd > len(data) || size < 0 {
			bodyEnd = len(data)
		}
		body := data[bodyStart:bodyEnd]

		if cid == id {
			return body
		}
		if (cid == "FORM" || cid == "CAT ") && len(body) >= 4 {
			if found := iffFind(body[4:], id); found != nil {
				return found
			}
		}

		pos = bodyEnd
		if size%2 == 1 {
			pos++
		}
	}
	return nil
}

// pendingOff is a scheduled implicit note-off, since XMI note-on events
// carry their own duration instead of needing a separate note-off byte.
type pendingOff struct {
	atTick  int64
	channel int
}

func parseXMIEvents(data []byte) ([]noteEvent, error) {
	var out []noteEvent
	var pending []pendingOff
	var tick int64
	var runningStatus byte
	tempos := []tempoChange{{tick: 0, usPerBeat: 500000}}

	i := 0
	for i < len(data) {
		// Delay: sum consecutive sub-0x80 bytes.
		var delay int64
		for i < len(data) && data[i] < 0x80 {
			delay += int64(data[i])
			i++
		}
		tick += delay

		// Flush any note-offs whose implicit duration has elapsed.
		// Pending is not necessarily ordered by atTick (a later, shorter
		// note can finish before an earlier, longer one), so scan it in
		// full rather than assuming a sorted front.
		remaining := pending[:0]
		for _, p := range pending {
			if p.atTick > tick {
				remaining = append(remaining, p)
				continue
			}
			out = append(out, noteEvent{channel: p.channel, on: false, atSample: tickToSample(p.atTick, xmiPPQN, tempos)})
		}
		pending = remaining

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

		switch {
		case status == 0xFF:
			if i >= len(data) {
				break
			}
			metaType := data[i]
			i++
			length, n := readVarLen(data[i:])
			i += n
			body := safeSlice(data, i, i+int(length))
			i += int(length)
			if metaType == 0x51 && len(body) == 3 {
				tempos = append(tempos, tempoChange{
					tick:      tick,
					usPerBeat: int64(body[0])<<16 | int64(body[1])<<8 | int64(body[2]),
				})
			}
		case status == 0xF0 || status == 0xF7:
			length, n := readVarLen(data[i:])
			i += n
			i += int(length)
		default:
			hi := status & 0xF0
			ch := int(status & 0x0F)
			switch hi {
			case 0x90: // note on + velocity + XMI duration
				note := int(safeByte(data, i))
				vel := int(safeByte(data, i+1))
				i += 2
				durTicks, n := readVarLen(data[i:])
				i += n
				out = append(out, noteEvent{
					channel: ch, freqHz: midiNoteFreq(note), on: vel > 0,
					gain: float32(vel) / 127, atSample: tickToSample(tick, xmiPPQN, tempos),
				})
				pending = append(pending, pendingOff{atTick: tick + durTicks, channel: ch})
			case 0x80:
				i += 2
			case 0xA0, 0xB0, 0xE0:
				i += 2
			case 0xC0, 0xD0:
				i += 1
			default:
				return stampXMIPending(out, pending, tempos), nil
			}
		}
	}
	return stampXMIPending(out, pending, tempos), nil
}

func stampXMIPending(out []noteEvent, pending []pendingOff, tempos []tempoChange) []noteEvent {
	for _, p := range pending {
		out = append(out, noteEvent{channel: p.channel, on: false, atSample: tickToSample(p.atTick, xmiPPQN, tempos)})
	}
	return out
}
