package mml

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleNoteDefaultTempoAndLength(t *testing.T) {
	p := NewParser()
	events, err := p.Parse("C")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, Note, events[0].Type)
	assert.InDelta(t, 261.63, events[0].FrequencyHz, 0.01)
	assert.Equal(t, 500*time.Millisecond, events[0].Duration)
}

func TestParse_NoteWithExplicitLength(t *testing.T) {
	p := NewParser()
	events, err := p.Parse("C8")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 250*time.Millisecond, events[0].Duration)
}

func TestParse_SharpAndFlatAreEnharmonic(t *testing.T) {
	p := NewParser()
	sharp, err := p.Parse("C#")
	require.NoError(t, err)
	flat, err := p.Parse("D-")
	require.NoError(t, err)
	assert.InDelta(t, sharp[0].FrequencyHz, flat[0].FrequencyHz, 0.01)
	assert.InDelta(t, 277.18, sharp[0].FrequencyHz, 0.01)
}

func TestParse_AllNotesInOctave(t *testing.T) {
	p := NewParser()
	events, err := p.Parse("C D E F G A B")
	require.NoError(t, err)
	require.Len(t, events, 7)
	want := []float64{261.63, 293.66, 329.63, 349.23, 392.00, 440.00, 493.88}
	for i, w := range want {
		assert.InDelta(t, w, events[i].FrequencyHz, 0.01)
	}
}

func TestParse_RestDurations(t *testing.T) {
	p := NewParser()
	events, err := p.Parse("R P8")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, Rest, events[0].Type)
	assert.Equal(t, 500*time.Millisecond, events[0].Duration)
	assert.Equal(t, 250*time.Millisecond, events[1].Duration)
}

func TestParse_OctaveCommandAndShift(t *testing.T) {
	p := NewParser()
	events, err := p.Parse("O3 C O5 C")
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, OctaveChange, events[0].Type)
	assert.Equal(t, 3, events[0].Value)
	assert.InDelta(t, 130.815, events[1].FrequencyHz, 0.01)
	assert.InDelta(t, 523.26, events[3].FrequencyHz, 0.01)
}

func TestParse_OctaveUpDown(t *testing.T) {
	p := NewParser()
	events, err := p.Parse("C >C <C")
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.InDelta(t, 261.63, events[0].FrequencyHz, 0.01)
	assert.InDelta(t, 523.26, events[2].FrequencyHz, 0.01)
	assert.InDelta(t, 261.63, events[4].FrequencyHz, 0.01)
}

func TestParse_TempoChange(t *testing.T) {
	p := NewParser()
	events, err := p.Parse("T60 C T240 C")
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, TempoChange, events[0].Type)
	assert.Equal(t, 60, events[0].Value)
	assert.Equal(t, 1000*time.Millisecond, events[1].Duration)
	assert.Equal(t, 250*time.Millisecond, events[3].Duration)
}

func TestParse_DefaultLengthChange(t *testing.T) {
	p := NewParser()
	events, err := p.Parse("L8 C D E")
	require.NoError(t, err)
	require.Len(t, events, 3)
	for _, e := range events {
		assert.Equal(t, 250*time.Millisecond, e.Duration)
	}
}

func TestParse_MixedLengths(t *testing.T) {
	p := NewParser()
	events, err := p.Parse("L4 C C8 C16 C32")
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, 500*time.Millisecond, events[0].Duration)
	assert.Equal(t, 250*time.Millisecond, events[1].Duration)
	assert.Equal(t, 125*time.Millisecond, events[2].Duration)
	assert.Equal(t, 62*time.Millisecond, events[3].Duration)
}

func TestParse_DottedNotes(t *testing.T) {
	p := NewParser()
	single, err := p.Parse("C4.")
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, single[0].Duration)

	double, err := p.Parse("C4..")
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, double[0].Duration) // dots beyond the first have no further effect
	assert.Empty(t, p.Warnings())

	triple, err := p.Parse("C4...")
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, triple[0].Duration)
	assert.NotEmpty(t, p.Warnings())
}

func TestConvert_StaccatoProducesNoteAndGap(t *testing.T) {
	p := NewParser()
	events, err := p.Parse("MS C")
	require.NoError(t, err)
	tones := Convert(events)
	require.Len(t, tones, 2)
	assert.Equal(t, 375*time.Millisecond, tones[0].Duration)
	assert.Equal(t, float64(0), tones[1].FrequencyHz)
	assert.Equal(t, 125*time.Millisecond, tones[1].Duration)
}

func TestConvert_LegatoHasNoGap(t *testing.T) {
	p := NewParser()
	events, err := p.Parse("ML C")
	require.NoError(t, err)
	tones := Convert(events)
	require.Len(t, tones, 1)
	assert.Equal(t, 500*time.Millisecond, tones[0].Duration)
}

// TestConvert_NormalArticulationSumsExactly is the seed scenario:
// T120 L4 C produces one 500ms note event, and converting it with
// normal articulation must yield a 437ms tone followed by a 63ms gap
// -- not 62ms, unlike the original's independently truncated gap.
func TestConvert_NormalArticulationSumsExactly(t *testing.T) {
	p := NewParser()
	events, err := p.Parse("T120 L4 C")
	require.NoError(t, err)
	require.Len(t, events, 2) // tempo change + note
	note := events[1]
	assert.InDelta(t, 261.63, note.FrequencyHz, 0.01)
	assert.Equal(t, 500*time.Millisecond, note.Duration)

	tones := Convert(events)
	require.Len(t, tones, 2)
	assert.Equal(t, 437*time.Millisecond, tones[0].Duration)
	assert.Equal(t, 63*time.Millisecond, tones[1].Duration)
	assert.Equal(t, note.Duration, tones[0].Duration+tones[1].Duration)
}

func TestParse_UnknownCommandNonStrictWarnsAndSkips(t *testing.T) {
	p := NewParser()
	events, err := p.Parse("C Z D")
	require.NoError(t, err)
	assert.Len(t, events, 2)
	require.Len(t, p.Warnings(), 1)
	assert.Contains(t, p.Warnings()[0], "Unknown command")
}

func TestParse_UnknownCommandStrictThrows(t *testing.T) {
	p := NewParser()
	p.SetStrictMode(true)
	_, err := p.Parse("C Z D")
	require.Error(t, err)
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestParse_OutOfRangeTempoWarnsAndClamps(t *testing.T) {
	p := NewParser()
	events, err := p.Parse("T300 C")
	require.NoError(t, err)
	require.Len(t, p.Warnings(), 1)
	assert.Contains(t, p.Warnings()[0], "out of range")
	assert.Equal(t, 255, events[0].Value)
}

func TestParse_OutOfRangeOctaveWarns(t *testing.T) {
	p := NewParser()
	_, err := p.Parse("O8 C")
	require.NoError(t, err)
	assert.Len(t, p.Warnings(), 1)
}

func TestParse_WhitespaceIgnored(t *testing.T) {
	p := NewParser()
	a, err := p.Parse("C D E")
	require.NoError(t, err)
	b, err := p.Parse("  C  D  E  ")
	require.NoError(t, err)
	c, err := p.Parse("C\nD\tE")
	require.NoError(t, err)
	assert.Len(t, b, len(a))
	assert.Len(t, c, len(a))
}

func TestConvert_MixedNotesRestYieldsTwoTonesPerVoicedEvent(t *testing.T) {
	p := NewParser()
	events, err := p.Parse("C D E R F")
	require.NoError(t, err)
	tones := Convert(events)
	// 3 voiced notes with normal-articulation gaps + 1 rest + 1 more voiced note+gap.
	require.Len(t, tones, 9)
	assert.True(t, tones[0].FrequencyHz > 0)
	assert.Equal(t, float64(0), tones[1].FrequencyHz)
	assert.Equal(t, float64(0), tones[6].FrequencyHz) // the rest itself
}
