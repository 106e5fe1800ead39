// Package exifgps extracts GPS geotags from photo EXIF metadata. Photos
// without a GPS IFD are not an error; their absence is the expected
// trigger for the sequential fallback mapper.
package exifgps

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/geopose/geopose/internal/model"
)

// Result is the metadata pulled from a single photo. Tag is nil when the
// photo carries no GPS IFD.
type Result struct {
	Tag        *model.GeoTag
	CapturedAt *time.Time
}

// Extractor reads EXIF metadata from photo files.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an EXIF GPS extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract reads the GPS IFD of the photo at path. A missing or undecodable
// EXIF block and a missing GPS tag both return an empty Result with a nil
// error; malformed GPS tags return a *model.ExifParseError.
func (e *Extractor) Extract(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("cannot read photo %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	x, err := exif.Decode(f)
	if err != nil {
		// No usable EXIF block at all; the fallback mapper handles it.
		e.logger.Debug("Photo has no decodable EXIF metadata", "photo", path, "reason", err)
		return Result{}, nil
	}

	var res Result
	if t, err := x.DateTime(); err == nil {
		res.CapturedAt = &t
	}

	lat, ok, err := e.coordinate(x, exif.GPSLatitude, exif.GPSLatitudeRef, path, "latitude")
	if err != nil {
		return res, err
	}
	if !ok {
		return res, nil
	}
	lon, ok, err := e.coordinate(x, exif.GPSLongitude, exif.GPSLongitudeRef, path, "longitude")
	if err != nil {
		return res, err
	}
	if !ok {
		return res, nil
	}

	tag := &model.GeoTag{Lat: lat, Lon: lon}
	if alt, ok := e.altitude(x); ok {
		tag.Alt = &alt
	}
	res.Tag = tag
	return res, nil
}

// coordinate reads and parses one GPS angle plus its hemisphere reference.
// ok=false means the tag is absent.
func (e *Extractor) coordinate(x *exif.Exif, field, refField exif.FieldName, path, what string) (float64, bool, error) {
	tag, err := x.Get(field)
	if err != nil {
		return 0, false, nil // no GPS tag on this photo
	}

	v, err := angleFromTag(tag)
	if err != nil {
		return 0, false, &model.ExifParseError{Filename: path, Reason: what, Err: err}
	}

	if refTag, err := x.Get(refField); err == nil {
		if ref, err := refTag.StringVal(); err == nil {
			v = ApplyRef(v, ref)
		}
	}
	return v, true, nil
}

// altitude reads the unreliable EXIF altitude for diagnostics only.
func (e *Extractor) altitude(x *exif.Exif) (float64, bool) {
	tag, err := x.Get(exif.GPSAltitude)
	if err != nil {
		return 0, false
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0, false
	}
	alt := float64(num) / float64(den)
	if refTag, err := x.Get(exif.GPSAltitudeRef); err == nil {
		if ref, err := refTag.Int(0); err == nil && ref == 1 {
			alt = -alt // below sea level
		}
	}
	return alt, true
}

// angleFromTag converts a GPS angle tag into decimal degrees. The standard
// encoding is three rationals; anything else goes through the tolerant
// string parser.
func angleFromTag(tag *tiff.Tag) (float64, error) {
	if tag.Count == 3 {
		scales := [3]float64{1, 60, 3600}
		total := 0.0
		ok := true
		for i := 0; i < 3; i++ {
			num, den, err := tag.Rat2(i)
			if err != nil {
				ok = false
				break
			}
			if den == 0 {
				return 0, fmt.Errorf("zero denominator in rational component %d", i)
			}
			total += float64(num) / float64(den) / scales[i]
		}
		if ok {
			return total, nil
		}
	}

	if s, err := tag.StringVal(); err == nil {
		return ParseAngle(s)
	}
	return ParseAngle(tag.String())
}
