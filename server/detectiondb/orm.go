package detectiondb

import (
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/recycle/pkg/weight"
)

// DetectionsJSON is stored in the 'detections' column
type DetectionsJSON struct {
	Items []weight.Detection `json:"items"`
}

// DetectionRun is one call to the detection API
type DetectionRun struct {
	ID           string                         `gorm:"primaryKey" json:"id"` // UUID
	Time         dbh.IntTime                    `json:"time"`
	ImageWidth   int                            `json:"imageWidth"`
	ImageHeight  int                            `json:"imageHeight"`
	TotalWeightG int                            `json:"totalWeightG"`
	NumUnknown   int                            `json:"numUnknown"` // Number of detections whose material has no known weight
	Detections   *dbh.JSONField[DetectionsJSON] `json:"detections"`
}

func (DetectionRun) TableName() string {
	return "detection_run"
}
