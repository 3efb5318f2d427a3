package vgm

// oplPort tracks per-channel Fnum/Block/key-on state for one OPL bank
// (port 0 or port 1 of an OPL3, or the sole bank of an OPL2/YM3812),
// so register writes can be converted into note-on/note-off events
// against internal/synth's voice bank.
type oplPort struct {
	fnumLow  [9]int
	fnumHigh [9]int
	block    [9]int
	keyOn    [9]bool
}

func (p *oplPort) writeFnumLow(ch int, data byte) {
	if ch < 0 || ch >= 9 {
		return
	}
	p.fnumLow[ch] = int(data)
}

// writeKeyOn handles register 0xB0-0xB8: bit5 key-on, bits2-4 block,
// bits0-1 Fnum high two bits.
func (p *oplPort) writeKeyOn(ch int, data byte) (fnum, block int, on, changed bool) {
	if ch < 0 || ch >= 9 {
		return 0, 0, false, false
	}
	p.fnumHigh[ch] = int(data) & 0x3
	p.block[ch] = int(data>>2) & 0x7
	newOn := data&0x20 != 0
	changed = newOn != p.keyOn[ch]
	p.keyOn[ch] = newOn
	fnum = p.fnumLow[ch] | p.fnumHigh[ch]<<8
	return fnum, p.block[ch], newOn, changed
}

// parseCommands walks a VGM command stream (the bytes starting at the
// header's data offset) and produces a chronological list of
// synth-voice note events plus the total number of samples the wait
// commands add up to. Commands this package does not recognize a
// register mapping for are still skipped by the correct byte count so
// the stream stays in sync; a command with no documented length at all
// stops the walk, mirroring how the seq parsers bail out on an
// unrecognized status byte rather than guessing.
func parseCommands(data []byte) ([]noteEvent, int64, error) {
	var out []noteEvent
	var clock int64
	var ports [2]oplPort
	i := 0

	for i < len(data) {
		cmd := data[i]
		i++

		switch {
		case cmd == 0x66: // end of sound data
			return out, clock, nil

		case cmd == 0x61: // wait n samples, 16-bit LE
			if i+2 > len(data) {
				return out, clock, nil
			}
			clock += int64(data[i]) | int64(data[i+1])<<8
			i += 2

		case cmd == 0x62: // wait one 60Hz frame
			clock += 735

		case cmd == 0x63: // wait one 50Hz frame
			clock += 882

		case cmd >= 0x70 && cmd <= 0x7F: // wait n+1 samples
			clock += int64(cmd&0x0F) + 1

		case cmd == 0x67: // data block: 0x66 tt ssssssss <data>
			if i+6 > len(data) {
				return out, clock, nil
			}
			size := int(leu32(data[i+2 : i+6]))
			i += 6 + size

		case cmd == 0x5A || cmd == 0x5B || cmd == 0x5C: // YM3812/YM3526/Y8950 (OPL2-family)
			if i+2 > len(data) {
				return out, clock, nil
			}
			out = appendOplEvent(out, &ports[0], 0, data[i], data[i+1], clock)
			i += 2

		case cmd == 0x5E: // YMF262 port 0 (OPL3)
			if i+2 > len(data) {
				return out, clock, nil
			}
			out = appendOplEvent(out, &ports[0], 0, data[i], data[i+1], clock)
			i += 2

		case cmd == 0x5F: // YMF262 port 1 (OPL3)
			if i+2 > len(data) {
				return out, clock, nil
			}
			out = appendOplEvent(out, &ports[1], 9, data[i], data[i+1], clock)
			i += 2

		case cmd == 0x4F, cmd == 0x50: // GG stereo / SN76489 PSG write
			i += 1

		case cmd >= 0x51 && cmd <= 0x59: // other FM chips (YM2413/2612/2151/2203/2608/2610)
			i += 2

		case cmd == 0x5D: // YMZ280B
			i += 2

		case cmd == 0xA0: // AY8910
			i += 2

		case cmd >= 0xB0 && cmd <= 0xBF: // two-operand register writes (various chips)
			i += 2

		case cmd >= 0xC0 && cmd <= 0xC8, cmd >= 0xD0 && cmd <= 0xD6: // three-operand writes
			i += 3

		case cmd == 0xE0, cmd == 0xE1: // PCM bank seek / offset write
			i += 4

		case cmd >= 0x80 && cmd <= 0x8F: // YM2612 PCM stream write + wait n samples
			clock += int64(cmd & 0x0F)

		default:
			return out, clock, nil
		}
	}
	return out, clock, nil
}

func appendOplEvent(out []noteEvent, port *oplPort, voiceOffset int, reg, value byte, clock int64) []noteEvent {
	const gain = float32(0.3)

	switch {
	case reg >= 0xA0 && reg <= 0xA8:
		ch := int(reg - 0xA0)
		port.writeFnumLow(ch, value)
	case reg >= 0xB0 && reg <= 0xB8:
		ch := int(reg - 0xB0)
		fnum, block, on, changed := port.writeKeyOn(ch, value)
		if !changed {
			return out
		}
		voice := voiceOffset + ch
		if on {
			out = append(out, noteEvent{
				atSample: clock, channel: voice, on: true,
				freqHz: fnumBlockToHz(fnum, block), gain: gain,
			})
		} else {
			out = append(out, noteEvent{atSample: clock, channel: voice, on: false})
		}
	}
	return out
}
