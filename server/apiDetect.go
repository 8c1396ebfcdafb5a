package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cyclopcam/recycle/pkg/imgio"
	"github.com/cyclopcam/recycle/pkg/nn"
	"github.com/cyclopcam/recycle/pkg/weight"
	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
)

type homeJSON struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	ModelLoaded bool   `json:"model_loaded"`
}

type detectJSON struct {
	ID            string             `json:"id,omitempty"` // Detection history ID, if history is enabled
	TotalWeightG  int                `json:"total_weight_g"`
	TotalWeightKG float64            `json:"total_weight_kg"`
	Detections    []weight.Detection `json:"detections"`
}

// detection is the outcome of one uploaded image
type detection struct {
	id       string
	image    []byte
	width    int
	height   int
	estimate *weight.Estimate
}

func (s *Server) httpHome(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, &homeJSON{
		Status:      "OK",
		Message:     "Recycling Model API is running!",
		ModelLoaded: s.ModelLoaded(),
	})
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	type pingJSON struct {
		Time        int64 `json:"time"`
		ModelLoaded bool  `json:"modelLoaded"`
	}
	www.SendJSON(w, &pingJSON{
		Time:        time.Now().Unix(),
		ModelLoaded: s.ModelLoaded(),
	})
}

func (s *Server) httpDetect(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	d := s.detect(w, r)
	www.SendJSON(w, &detectJSON{
		ID:            d.id,
		TotalWeightG:  d.estimate.TotalWeightG,
		TotalWeightKG: d.estimate.TotalWeightKG,
		Detections:    d.estimate.Detections,
	})
}

// Same as httpDetect, but respond with the annotated image
func (s *Server) httpDetectAnnotated(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	d := s.detect(w, r)
	img, err := imgio.DecodeBytes(d.image)
	www.Check(err)
	jpg, err := imgio.EncodeJPEGBytes(weight.AnnotateDetections(img, d.estimate), imgio.DefaultJPEGQuality)
	www.Check(err)
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("X-Total-Weight-G", strconv.Itoa(d.estimate.TotalWeightG))
	if d.id != "" {
		w.Header().Set("X-Detection-ID", d.id)
	}
	w.Write(jpg)
}

// detect reads the uploaded image, runs the detector, and estimates weights.
// Failures panic with the appropriate HTTP status.
func (s *Server) detect(w http.ResponseWriter, r *http.Request) *detection {
	if s.detector == nil {
		DetectionRequests.WithLabelValues(statusUnavailable).Inc()
		www.Panic(http.StatusServiceUnavailable, "Model is not loaded. Check startup logs for errors.")
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxImageBytes)
	file, _, err := r.FormFile("image")
	if err != nil {
		DetectionRequests.WithLabelValues(statusBadImage).Inc()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			www.PanicBadRequestf("Image is too large. Maximum size is %v bytes", s.config.MaxImageBytes)
		}
		www.PanicBadRequestf("Missing 'image' upload: %v", err)
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		DetectionRequests.WithLabelValues(statusBadImage).Inc()
		www.PanicBadRequestf("Failed to read upload: %v", err)
	}

	imgCfg, _, err := imgio.DecodeConfig(raw)
	if err != nil {
		DetectionRequests.WithLabelValues(statusBadImage).Inc()
		www.PanicBadRequestf("Image processing error: Could not decode image bytes: %v", err)
	}

	start := time.Now()
	result, err := s.detector.DetectObjects(r.Context(), raw)
	DetectionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		DetectionRequests.WithLabelValues(statusDetectorFail).Inc()
		s.Log.Errorf("Inference error: %v", err)
		www.PanicServerError("Internal server error during detection.")
	}

	est := s.weights.Estimate(result, s.detector.Config().Classes)
	s.recordMetrics(est)

	d := &detection{
		image:    raw,
		width:    imgCfg.Width,
		height:   imgCfg.Height,
		estimate: est,
	}
	if s.db != nil {
		run, err := s.db.Add(d.width, d.height, est)
		if err != nil {
			// A history failure does not fail the request
			s.Log.Errorf("Failed to record detection: %v", err)
		} else {
			d.id = run.ID
		}
	}
	for _, u := range est.Unknown {
		s.Log.Warnf("No weight defined for '%v'", u)
	}
	DetectionRequests.WithLabelValues(statusOK).Inc()
	return d
}

func (s *Server) recordMetrics(est *weight.Estimate) {
	for _, c := range est.Counts {
		ObjectsDetected.WithLabelValues(c.Material).Add(float64(c.Count))
	}
	for _, u := range est.Unknown {
		UnknownMaterials.WithLabelValues(u).Inc()
	}
	EstimatedWeight.Add(float64(est.TotalWeightG))
}

func (s *Server) httpListDetections(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if s.db == nil {
		www.Panic(http.StatusNotFound, "Detection history is disabled")
	}
	runs, err := s.db.Recent(www.QueryInt(r, "limit"))
	www.Check(err)
	www.SendJSON(w, runs)
}

func (s *Server) httpDetectionTotals(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if s.db == nil {
		www.Panic(http.StatusNotFound, "Detection history is disabled")
	}
	totals, err := s.db.Totals()
	www.Check(err)
	www.SendJSON(w, totals)
}

// httpWeights returns the weight table, and which of the model's classes are missing from it
func (s *Server) httpWeights(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	type weightsJSON struct {
		Weights map[string]int `json:"weights"`
		Missing []string       `json:"missing"` // Model classes without a weight
	}
	resp := weightsJSON{
		Weights: map[string]int{},
		Missing: []string{},
	}
	for _, name := range s.weights.Names() {
		g, _ := s.weights.Lookup(name)
		resp.Weights[name] = g
	}
	if s.detector != nil {
		resp.Missing = missingWeights(s.detector.Config(), s.weights)
	}
	www.SendJSON(w, &resp)
}

func missingWeights(cfg *nn.ModelConfig, weights *weight.Table) []string {
	missing := []string{}
	for _, c := range cfg.Classes {
		if _, ok := weights.Lookup(c); !ok {
			missing = append(missing, c)
		}
	}
	return missing
}
