// Package gateway implements the Gateway (C12): the HTTP router that
// dispatches between Standalone in-process serving and HighAvailability
// reverse-proxying, plus the ambient health/device/metrics/flags surface
// carried over from the teacher. Grounded in the teacher's
// internal/api.Server — the route table, CORS-less-by-default posture (now
// made permissive per predict-otron-9000/src/main.rs's CorsLayer::new()
// with Any), and the ReadHeaderTimeout/IdleTimeout-but-no-ReadTimeout
// http.Server shape (streaming SSE responses can legitimately run long).
package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/otronforge/gateway/internal/catalog"
	"github.com/otronforge/gateway/internal/chat"
	"github.com/otronforge/gateway/internal/config"
	"github.com/otronforge/gateway/internal/cpu"
	"github.com/otronforge/gateway/internal/device"
	"github.com/otronforge/gateway/internal/embeddings"
	"github.com/otronforge/gateway/internal/gatewayflags"
	"github.com/otronforge/gateway/internal/logging"
	"github.com/otronforge/gateway/internal/metrics"
	"github.com/otronforge/gateway/internal/proxy"
	webpkg "github.com/otronforge/gateway/web"
)

// Server is the gateway's HTTP front door.
type Server struct {
	cfg     config.Config
	mux     *http.ServeMux
	metrics *metrics.Collector
	flags   *gatewayflags.Store
	started time.Time
}

// New builds a Server for Standalone mode, wiring chatSvc and embedSvc
// directly into the mux.
func New(cfg config.Config, chatSvc *chat.Service, embedSvc *embeddings.Engine, mc *metrics.Collector) *Server {
	s := &Server{cfg: cfg, mux: http.NewServeMux(), metrics: mc, flags: gatewayflags.NewStore(), started: time.Now()}
	s.registerCommonRoutes()
	s.mux.Handle("/v1/models", catalog.Handler())
	s.mux.Handle("/v1/chat/completions", s.track(chatSvc.CompletionsHandler()))
	s.mux.Handle("/v1/completions", s.track(chatSvc.LegacyCompletionsHandler()))
	s.mux.Handle("/v1/embeddings", s.track(embedSvc.Handler()))
	return s
}

// NewProxied builds a Server for HighAvailability mode, wiring p's reverse
// proxy handlers in place of in-process services.
func NewProxied(cfg config.Config, p *proxy.Proxy, mc *metrics.Collector) *Server {
	s := &Server{cfg: cfg, mux: http.NewServeMux(), metrics: mc, flags: gatewayflags.NewStore(), started: time.Now()}
	s.registerCommonRoutes()
	s.mux.Handle("/v1/chat/completions", s.track(p.ChatHandler()))
	s.mux.Handle("/v1/embeddings", s.track(p.EmbeddingsHandler()))
	s.mux.Handle("/v1/models", s.track(p.ModelsHandler()))
	return s
}

func (s *Server) registerCommonRoutes() {
	s.mux.HandleFunc("/", s.handleUI)
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(webpkg.StaticFiles))))
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/device", s.handleDevice)
	s.mux.HandleFunc("/api/metrics", s.handleMetrics)
	s.mux.HandleFunc("/api/flags", s.handleFlags)
	// /v1/models is registered by New (the in-process catalog) or
	// NewProxied (the proxy's handler), never here: http.ServeMux panics
	// on a second registration of the same pattern.
}

// track wraps h with the request-count/active-request bookkeeping every
// inference route needs, the way the teacher threads metrics through
// handleChat without a generic middleware chain.
func (s *Server) track(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.RecordRequest()
		done := s.metrics.RequestStart()
		defer done()
		s.cors(w)
		h(w, r)
	}
}

// cors sets the permissive cross-origin headers predict-otron-9000's
// CorsLayer::new().allow_origin(Any) applies to every route.
func (s *Server) cors(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

// Run starts the HTTP server on addr.
func (s *Server) Run(addr string) error {
	fmt.Printf("\n  gateway (%s) listening on http://%s\n\n", s.cfg.ServerMode, addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	f, err := webpkg.StaticFiles.Open("index.html")
	if err != nil {
		http.Error(w, "UI not found", http.StatusNotFound)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.Copy(w, f)
}

// handleHealth returns the literal "ok" body the core spec mandates for
// the 200 response; device/CPU capability detail lives at /api/device
// instead of riding along in this body.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

// handleDevice surfaces the CPU/accelerator capability detail the
// original project prints at startup, as a sibling JSON endpoint.
func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	topo, err := cpu.Detect()
	avail := device.Detect()
	payload := map[string]interface{}{
		"cuda_available":  avail.CUDAAvailable,
		"metal_available": avail.MetalAvailable,
		"ram_gb":          device.AvailableRAMGB(),
	}
	if err == nil && topo != nil {
		payload["cpu"] = map[string]interface{}{
			"model":          topo.ModelName,
			"logical_cores":  topo.LogicalCores,
			"physical_cores": topo.PhysicalCores,
			"features":       cpu.FeatureSummary(topo),
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.metrics.Snapshot())
}

// handleFlags lists and toggles internal/gatewayflags flags: GET returns
// the current set, POST {"flag":"...","enabled":true} toggles one.
func (s *Server) handleFlags(w http.ResponseWriter, r *http.Request) {
	log := logging.Named("gateway")
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.flags.All())
	case http.MethodPost:
		var body struct {
			Flag    string `json:"flag"`
			Enabled bool   `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "malformed JSON body", http.StatusBadRequest)
			return
		}
		if !s.flags.Set(gatewayflags.FlagID(body.Flag), body.Enabled) {
			http.Error(w, "unknown flag", http.StatusNotFound)
			return
		}
		log.Info().Str("flag", body.Flag).Bool("enabled", body.Enabled).Msg("flag toggled")
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
