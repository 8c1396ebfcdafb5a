package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DetectionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recycle_detection_requests_total",
			Help: "Total number of detection requests, by outcome",
		},
		[]string{"status"},
	)

	DetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recycle_detection_duration_seconds",
			Help:    "Time taken by the external detector",
			Buckets: prometheus.DefBuckets,
		},
	)

	ObjectsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recycle_objects_detected_total",
			Help: "Total number of detected objects, by material",
		},
		[]string{"material"},
	)

	EstimatedWeight = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recycle_estimated_weight_grams_total",
			Help: "Sum of all estimated weights",
		},
	)

	UnknownMaterials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recycle_unknown_material_total",
			Help: "Detections whose material has no entry in the weight table",
		},
		[]string{"material"},
	)
)

// Detection request outcomes
const (
	statusOK           = "ok"
	statusUnavailable  = "unavailable"
	statusBadImage     = "bad_image"
	statusDetectorFail = "detector_error"
)
