// Package flightlog canonicalizes heterogeneous CSV flight logs into an
// ordered sequence of waypoints. Header synonyms are resolved through a
// static alias table; CSV row order is preserved as flight chronological
// order.
package flightlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"

	"github.com/geopose/geopose/internal/model"
	"github.com/geopose/geopose/internal/util"
)

// field identifies a canonical flight-log column.
type field int

const (
	fieldLatitude field = iota
	fieldLongitude
	fieldAltitude
	fieldHeading
	fieldGimbalPitch
)

var fieldNames = map[field]string{
	fieldLatitude:    "latitude",
	fieldLongitude:   "longitude",
	fieldAltitude:    "altitude",
	fieldHeading:     "heading",
	fieldGimbalPitch: "gimbal_pitch",
}

func (f field) String() string { return fieldNames[f] }

// aliases maps each canonical field to the normalized header spellings seen
// across flight-controller exports. Keys are matched after
// util.NormalizeKey, so case, spacing, dashes and underscores are already
// collapsed.
var aliases = map[field][]string{
	fieldLatitude: {
		"latitude", "lat", "gpslat", "latitude(deg)", "lat(deg)",
		"latitudedegrees", "gpslatitude",
	},
	fieldLongitude: {
		"longitude", "lon", "lng", "long", "gpslon", "longitude(deg)",
		"lon(deg)", "longitudedegrees", "gpslongitude",
	},
	fieldAltitude: {
		"altitude", "alt", "altitude(m)", "altitude(ft)", "alt(m)",
		"alt(ft)", "height", "height(m)", "elevation", "relativealtitude",
	},
	fieldHeading: {
		"heading", "heading(deg)", "yaw", "yaw(deg)", "compassheading",
		"compassheading(degrees)", "course",
	},
	fieldGimbalPitch: {
		"gimbalpitch", "gimbalpitch(deg)", "pitch", "pitch(deg)",
		"gimbalpitchangle", "gimbalpitchdegrees",
	},
}

// required columns; absence of any is fatal.
var required = []field{fieldLatitude, fieldLongitude, fieldAltitude}

// Defaults applied when optional columns are absent.
const (
	defaultHeadingDeg     = 0
	defaultGimbalPitchDeg = -90 // nadir
)

// feetThresholdM: a mean altitude above this is assumed to be feet. Survey
// drones rarely fly above 50 m AGL, and logs in feet ramp well past it.
const feetThresholdM = 50.0

const feetToMeters = 0.3048

// Parser converts raw CSV flight logs into waypoints. It holds only a
// logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a flight-log parser.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse reads an entire CSV flight log and returns its waypoints in row
// order. Missing required columns and unparseable numeric cells return a
// *model.DataFormatError.
func (p *Parser) Parse(r io.Reader) ([]model.Waypoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged rows; cells are indexed by header
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &model.DataFormatError{
			Reason: "empty flight log",
			Hint:   "the CSV must contain a header row and at least one data row",
		}
	}
	if err != nil {
		return nil, fmt.Errorf("error reading flight log header: %w", err)
	}

	columns, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	if _, ok := columns[fieldHeading]; !ok {
		p.logger.Warn("Flight log has no heading column, defaulting",
			"default", defaultHeadingDeg)
	}
	if _, ok := columns[fieldGimbalPitch]; !ok {
		p.logger.Warn("Flight log has no gimbal pitch column, defaulting to nadir",
			"default", defaultGimbalPitchDeg)
	}

	var waypoints []model.Waypoint
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading flight log row %d: %w", row+1, err)
		}
		row++

		wp, err := parseRow(record, columns, row)
		if err != nil {
			return nil, err
		}
		wp.Index = len(waypoints)
		waypoints = append(waypoints, wp)
	}

	if len(waypoints) == 0 {
		return nil, &model.DataFormatError{
			Reason: "flight log contains no data rows",
			Hint:   "the CSV must contain at least one waypoint",
		}
	}

	p.convertFeetIfLikely(waypoints)

	p.logger.Info("Parsed flight log", "waypoints", len(waypoints))
	return waypoints, nil
}

// resolveColumns matches the header row against the alias table once and
// returns the column index of every recognized canonical field.
func resolveColumns(header []string) (map[field]int, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = util.NormalizeKey(h)
	}

	columns := make(map[field]int)
	for f, names := range aliases {
		for _, name := range names {
			for i, h := range normalized {
				if h == name {
					if _, taken := columns[f]; !taken {
						columns[f] = i
					}
				}
			}
		}
	}

	for _, f := range required {
		if _, ok := columns[f]; !ok {
			return nil, &model.DataFormatError{
				Field:  f.String(),
				Reason: "missing required column: " + f.String(),
				Hint:   "add required column: " + f.String(),
			}
		}
	}
	return columns, nil
}

func parseRow(record []string, columns map[field]int, row int) (model.Waypoint, error) {
	get := func(f field) (float64, bool, error) {
		idx, ok := columns[f]
		if !ok || idx >= len(record) {
			return 0, false, nil
		}
		v, err := strconv.ParseFloat(record[idx], 64)
		if err != nil {
			return 0, false, &model.DataFormatError{
				Field:  f.String(),
				Row:    row,
				Reason: fmt.Sprintf("cannot parse %q as %s", record[idx], f),
			}
		}
		return v, true, nil
	}

	var wp model.Waypoint
	var ok bool
	var err error

	if wp.Lat, ok, err = get(fieldLatitude); err != nil {
		return wp, err
	} else if !ok {
		return wp, &model.DataFormatError{Field: "latitude", Row: row, Reason: "row is missing a latitude cell"}
	}
	if wp.Lon, ok, err = get(fieldLongitude); err != nil {
		return wp, err
	} else if !ok {
		return wp, &model.DataFormatError{Field: "longitude", Row: row, Reason: "row is missing a longitude cell"}
	}
	if wp.AltM, ok, err = get(fieldAltitude); err != nil {
		return wp, err
	} else if !ok {
		return wp, &model.DataFormatError{Field: "altitude", Row: row, Reason: "row is missing an altitude cell"}
	}

	wp.HeadingDeg = defaultHeadingDeg
	if v, ok, err := get(fieldHeading); err != nil {
		return wp, err
	} else if ok {
		wp.HeadingDeg = v
	}

	wp.GimbalPitchDeg = defaultGimbalPitchDeg
	if v, ok, err := get(fieldGimbalPitch); err != nil {
		return wp, err
	} else if ok {
		wp.GimbalPitchDeg = v
	}

	return wp, nil
}

// convertFeetIfLikely applies the feet heuristic: a mean altitude above
// feetThresholdM is assumed to be a log recorded in feet and converted.
func (p *Parser) convertFeetIfLikely(waypoints []model.Waypoint) {
	var sum float64
	for _, wp := range waypoints {
		sum += wp.AltM
	}
	mean := sum / float64(len(waypoints))
	if mean <= feetThresholdM || math.IsNaN(mean) {
		return
	}

	for i := range waypoints {
		waypoints[i].AltM *= feetToMeters
	}
	p.logger.Warn("Mean altitude suggests feet, converted to meters",
		"meanRaw", mean, "meanM", mean*feetToMeters)
}
