// Package sqlitestorage implements the optional run-archive backend: every
// run's photo positions are appended to an embedded SQLite database for
// later auditing across flights.
package sqlitestorage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/geopose/geopose/internal/model"
)

// Run is the per-run archive record.
type Run struct {
	ID            string `gorm:"primaryKey"`
	CreatedAt     time.Time
	CSVPath       string
	ImagesDir     string
	OriginLat     float64
	OriginLon     float64
	UTMZone       int
	WaypointCount int
	PhotoCount    int
	Summary       datatypes.JSON
}

// PhotoPositionRow is one archived photo position.
type PhotoPositionRow struct {
	ID                  uint   `gorm:"primaryKey"`
	RunID               string `gorm:"index"`
	Filename            string
	Latitude            float64
	Longitude           float64
	AltitudeM           float64
	LocalX              float64
	LocalY              float64
	LocalZ              float64
	HeadingDeg          float64
	GimbalPitchDeg      float64
	MappingMethod       string
	Confidence          float64
	ProjectionDistanceM float64
	SegmentID           int
	CrossoverResolved   bool
	GPSAccuracyM        float64
	FallbackReason      string
}

// Backend archives runs into a SQLite file through GORM.
type Backend struct {
	db     *gorm.DB
	logger *slog.Logger
}

// New opens (or creates) the archive database at path.
func New(path string, logger *slog.Logger) (*Backend, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite archive %s: %w", path, err)
	}
	return &Backend{db: db, logger: logger}, nil
}

// Init migrates the archive schema.
func (b *Backend) Init() error {
	if err := b.db.AutoMigrate(&Run{}, &PhotoPositionRow{}); err != nil {
		return fmt.Errorf("failed to migrate archive schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WriteRun archives the run and all its photo positions in one
// transaction.
func (b *Backend) WriteRun(res *model.RunResult) error {
	summaryJSON, err := json.Marshal(res.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	run := Run{
		ID:            res.RunID,
		CreatedAt:     res.StartedAt,
		CSVPath:       res.CSVPath,
		ImagesDir:     res.ImagesDir,
		OriginLat:     res.OriginLat,
		OriginLon:     res.OriginLon,
		UTMZone:       res.UTMZone,
		WaypointCount: res.WaypointCount,
		PhotoCount:    len(res.Positions),
		Summary:       datatypes.JSON(summaryJSON),
	}

	rows := make([]PhotoPositionRow, 0, len(res.Positions))
	for _, pos := range res.Positions {
		rows = append(rows, PhotoPositionRow{
			RunID:               res.RunID,
			Filename:            pos.Filename,
			Latitude:            pos.Lat,
			Longitude:           pos.Lon,
			AltitudeM:           pos.AltitudeM,
			LocalX:              pos.Local.X,
			LocalY:              pos.Local.Y,
			LocalZ:              pos.Local.Z,
			HeadingDeg:          pos.HeadingDeg,
			GimbalPitchDeg:      pos.GimbalPitchDeg,
			MappingMethod:       pos.Method.String(),
			Confidence:          pos.Confidence,
			ProjectionDistanceM: pos.ProjectionDistanceM,
			SegmentID:           pos.SegmentID,
			CrossoverResolved:   pos.CrossoverResolved,
			GPSAccuracyM:        pos.GPSAccuracyM,
			FallbackReason:      pos.FallbackReason,
		})
	}

	err = b.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 200).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to archive run %s: %w", res.RunID, err)
	}

	b.logger.Debug("Archived run", "runId", res.RunID, "photos", len(rows))
	return nil
}
