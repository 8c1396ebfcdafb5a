// Package detectiondb records the history of weight estimation requests
package detectiondb

import (
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/recycle/pkg/weight"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxRecentRuns caps the number of rows returned by Recent
const MaxRecentRuns = 1000

type DetectionDB struct {
	log logs.Log
	DB  *gorm.DB
}

// Totals is the aggregate over every recorded run
type Totals struct {
	Runs         int64 `json:"runs"`
	TotalWeightG int64 `json:"totalWeightG"`
}

// Open or create the detection DB
func NewDetectionDB(log logs.Log, dbFilename string) (*DetectionDB, error) {
	log.Infof("Opening detection DB at '%v'", dbFilename)
	db, err := dbh.OpenDB(log, dbh.MakeSqliteConfig(dbFilename), Migrations(log), 0)
	if err != nil {
		return nil, err
	}
	return &DetectionDB{
		log: log,
		DB:  db,
	}, nil
}

func (d *DetectionDB) Close() {
	if sqlDB, err := d.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

// Add records the estimate of one image, and returns the new run
func (d *DetectionDB) Add(imageWidth, imageHeight int, est *weight.Estimate) (*DetectionRun, error) {
	numUnknown := 0
	for _, det := range est.Detections {
		if det.WeightG == nil {
			numUnknown++
		}
	}
	run := &DetectionRun{
		ID:           uuid.NewString(),
		Time:         dbh.MakeIntTime(time.Now()),
		ImageWidth:   imageWidth,
		ImageHeight:  imageHeight,
		TotalWeightG: est.TotalWeightG,
		NumUnknown:   numUnknown,
		Detections:   dbh.MakeJSONField(DetectionsJSON{Items: est.Detections}),
	}
	if err := d.DB.Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// Recent returns up to 'limit' runs, newest first
func (d *DetectionDB) Recent(limit int) ([]DetectionRun, error) {
	if limit <= 0 || limit > MaxRecentRuns {
		limit = MaxRecentRuns
	}
	runs := []DetectionRun{}
	if err := d.DB.Order("time DESC, id").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (d *DetectionDB) Get(id string) (*DetectionRun, error) {
	run := DetectionRun{}
	if err := d.DB.Where("id = ?", id).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (d *DetectionDB) Totals() (Totals, error) {
	t := Totals{}
	err := d.DB.Raw("SELECT COUNT(*) AS runs, COALESCE(SUM(total_weight_g), 0) AS total_weight_g FROM detection_run").Scan(&t).Error
	return t, err
}
