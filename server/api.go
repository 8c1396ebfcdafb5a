package server

import (
	"embed"
	"net/http"
	"time"

	"github.com/cyclopcam/staticfiles"
	"github.com/cyclopcam/www"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed static
var staticWWW embed.FS

func (s *Server) setupHttpRoutes() error {
	router := httprouter.New()

	plain := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, handle)
	}

	// We create a unique rate limiter for each route
	window := time.Duration(s.config.RateLimit.WindowSeconds) * time.Second
	ratelimited := func(method, route string, handle httprouter.Handle) {
		limited := httprate.Limit(s.config.RateLimit.Requests, window, httprate.WithKeyFuncs(httprate.KeyByIP))
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handle(w, r, params)
			})).ServeHTTP(w, r)
		})
	}

	plain("GET", "/", s.httpHome)
	plain("GET", "/api/ping", s.httpPing)
	ratelimited("POST", "/detect/", s.httpDetect)
	ratelimited("POST", "/detect/annotated", s.httpDetectAnnotated)
	plain("GET", "/api/detections", s.httpListDetections)
	plain("GET", "/api/detections/totals", s.httpDetectionTotals)
	plain("GET", "/api/weights", s.httpWeights)
	router.Handler("GET", "/metrics", promhttp.Handler())

	// Upload page for manual testing
	static, err := staticfiles.NewCachedStaticFileServer(staticWWW, "static", []string{"/api/", "/detect/"}, s.Log, true, nil)
	if err != nil {
		s.Log.Warnf("Error in static files: %v", err)
	} else {
		router.NotFound = static
	}

	s.httpRouter = router
	return nil
}
