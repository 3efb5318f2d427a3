package mml

import "time"

// Tone is one scheduled square-wave segment for the PC-speaker
// decoder: a frequency (0 Hz for silence) held for Duration.
type Tone struct {
	FrequencyHz float64
	Duration    time.Duration
}

// Convert applies the default articulation factors (normal 0.875,
// staccato 0.75, legato 1.0 full-length) to an event stream.
func Convert(events []Event) []Tone {
	return ConvertWithArticulation(events, 1.0, 0.875, 0.75)
}

// ConvertWithArticulation turns parsed events into playable tones.
// Unlike original_source's mml_to_tones::convert_with_articulation,
// which computes the post-articulation gap as an independently
// truncated `duration * (1 - factor)` (and can therefore lose a
// millisecond to rounding -- e.g. 500ms at the normal factor yields a
// 437ms note plus a 62ms gap, summing to 499), the gap here is the
// remainder `duration - noteDuration`. This guarantees tone durations
// always sum to exactly the original note/rest duration, which is the
// invariant the PC-speaker queue scenario for `T120 L4 C` depends on:
// 437ms note + 63ms rest, not 437+62.
func ConvertWithArticulation(events []Event, legatoFactor, normalFactor, staccatoFactor float64) []Tone {
	var tones []Tone
	mode := ArticulationNormal

	for _, e := range events {
		switch e.Type {
		case Note:
			factor := normalFactor
			switch mode {
			case ArticulationLegato:
				factor = legatoFactor
			case ArticulationStaccato:
				factor = staccatoFactor
			}

			noteDuration := scaleDuration(e.Duration, factor)
			tones = append(tones, Tone{FrequencyHz: e.FrequencyHz, Duration: noteDuration})

			if mode != ArticulationLegato && factor < 1.0 {
				gap := e.Duration - noteDuration
				tones = append(tones, Tone{FrequencyHz: 0, Duration: gap})
			}

		case Rest:
			tones = append(tones, Tone{FrequencyHz: 0, Duration: e.Duration})

		case ArticulationChange:
			mode = e.Value
		}
	}
	return tones
}

func scaleDuration(d time.Duration, factor float64) time.Duration {
	ms := float64(d.Milliseconds()) * factor
	return time.Duration(int64(ms)) * time.Millisecond
}
