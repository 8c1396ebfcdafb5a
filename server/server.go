package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/recycle/pkg/nn"
	"github.com/cyclopcam/recycle/pkg/weight"
	"github.com/cyclopcam/recycle/server/detectiondb"
	"github.com/julienschmidt/httprouter"
)

// Server is the recycling sorter API.
// It sends uploaded images to an object detector, and estimates the weight of what it finds.
type Server struct {
	Log logs.Log

	config     Config
	detector   nn.ObjectDetector // nil if the model could not be loaded
	weights    *weight.Table
	db         *detectiondb.DetectionDB // nil if history is disabled
	signalIn   chan os.Signal
	httpServer *http.Server
	httpRouter *httprouter.Router
}

// NewServer creates the API server.
// detector may be nil, in which case the detection routes return 503.
func NewServer(log logs.Log, cfg Config, detector nn.ObjectDetector, weights *weight.Table) (*Server, error) {
	s := &Server{
		Log:      log,
		config:   cfg,
		detector: detector,
		weights:  weights,
	}
	if cfg.DB != "" {
		db, err := detectiondb.NewDetectionDB(log, cfg.DB)
		if err != nil {
			return nil, err
		}
		s.db = db
	}
	if detector != nil {
		log.Infof("Model loaded. Detecting %v classes", len(detector.Config().Classes))
	} else {
		log.Warnf("No detector available. Detection requests will fail with 503")
	}
	if err := s.setupHttpRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// ModelLoaded returns true if we have a detector
func (s *Server) ModelLoaded() bool {
	return s.detector != nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// ListenHTTP blocks until the server is shut down.
// If addr is empty, then Config.Listen is used.
func (s *Server) ListenHTTP(addr string) error {
	if addr == "" {
		addr = s.config.Listen
	}
	s.Log.Infof("Listening on %v", addr)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.httpRouter,
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) ListenForKillSignals() {
	s.Log.Infof("ListenForKillSignals starting")
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received OS signal '%v'. ListenForKillSignals will exit after shutdown", sig.String())
			s.Shutdown()
		} else {
			s.Log.Infof("signalIn closed. ListenForKillSignals will exit now")
		}
	}()
}

func (s *Server) Shutdown() {
	s.Log.Infof("Shutdown")
	if s.signalIn != nil {
		signal.Stop(s.signalIn)
		close(s.signalIn)
		s.signalIn = nil
	}
	if s.httpServer != nil {
		s.Log.Infof("Closing HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.Log.Warnf("HTTP server shutdown error: %v", err)
		}
	}
	if s.detector != nil {
		s.detector.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	s.Log.Infof("Shutdown complete")
}
