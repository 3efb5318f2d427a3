package convert

import "fmt"

// UnsupportedFormatError reports a format code the converter has no
// conversion path for (spec.md §7 kind 3).
type UnsupportedFormatError struct {
	Format fmt.Stringer
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("musac: unsupported sample format %s", e.Format)
}

// ConversionError reports a combination of specs the converter refuses
// to handle, such as a channel remix beyond mono/stereo.
type ConversionError struct {
	Msg string
}

func (e *ConversionError) Error() string { return "musac: " + e.Msg }
