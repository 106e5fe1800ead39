package model

import "fmt"

// DataFormatError reports a missing or unparseable required field in the
// flight-log CSV. Fatal to the run.
type DataFormatError struct {
	Field  string
	Row    int // 1-based data row, 0 when the error concerns the header
	Reason string
	Hint   string
}

func (e *DataFormatError) Error() string {
	msg := fmt.Sprintf("flight log format error: %s", e.Reason)
	if e.Row > 0 {
		msg = fmt.Sprintf("%s (row %d)", msg, e.Row)
	}
	if e.Hint != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Hint)
	}
	return msg
}

// GeometryError reports a degenerate or empty trajectory. Fatal to the run.
type GeometryError struct {
	Reason string
}

func (e *GeometryError) Error() string {
	return "trajectory geometry error: " + e.Reason
}

// ExifParseError reports a malformed GPS tag on a single photo. Recovered
// per photo via the fallback mapper, never fatal to the batch.
type ExifParseError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *ExifParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exif gps parse error in %s: %s: %v", e.Filename, e.Reason, e.Err)
	}
	return fmt.Sprintf("exif gps parse error in %s: %s", e.Filename, e.Reason)
}

func (e *ExifParseError) Unwrap() error { return e.Err }
