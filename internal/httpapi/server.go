// Package httpapi implements the HttpFaçade of spec.md §4.H: the
// synchronous HTTP surface over a single port, wired with the same
// middleware-stack ordering BaseAgent.Start uses (CORS -> logging ->
// recovery -> handler) and otelhttp instrumentation in place of gomind's
// user-middleware slot.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/HukkaMehu/LePetPal/internal/command"
	"github.com/HukkaMehu/LePetPal/internal/dispenser"
	"github.com/HukkaMehu/LePetPal/internal/platform"
	"github.com/HukkaMehu/LePetPal/internal/speaker"
	"github.com/HukkaMehu/LePetPal/internal/store"
	"github.com/HukkaMehu/LePetPal/internal/video"
)

// apiVersion is the integer reported on /health (spec.md §6: `{status,
// api, version}`). It is the wire contract's version, not a build
// version.
const apiVersion = 1

// buildVersion is overridable at link time in a real deployment
// (-ldflags "-X ...buildVersion=..."); "dev" is the default here since
// no build pipeline is specified.
var buildVersion = "dev"

// Server assembles the HttpFaçade's dependencies and an *http.Server.
type Server struct {
	httpServer *http.Server
	logger     platform.Logger
}

// Deps bundles every collaborator the façade's handlers call into.
type Deps struct {
	Manager    *command.Manager
	Store      store.RequestStore
	Dispenser  dispenser.Dispenser
	Speaker    speaker.Speaker
	Video      *video.Passthrough
	Logger     platform.Logger
	CORS       CORSConfig
	Verbose    bool // echoes gomind's Config.Development.Enabled — verbose request logging
	ReadTimeout, WriteTimeout, IdleTimeout time.Duration
}

// NewServer builds a Server listening on port, wiring middleware in the
// same order BaseAgent.Start does: CORS (outermost) -> logging ->
// recovery -> otel tracing (innermost, directly around the mux).
func NewServer(port int, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = platform.NoOpLogger{}
	}

	mux := http.NewServeMux()
	h := &handlers{
		manager:   deps.Manager,
		store:     deps.Store,
		dispenser: deps.Dispenser,
		speaker:   deps.Speaker,
		video:     deps.Video,
		logger:    logger,
	}
	registerRoutes(mux, h)

	var handler http.Handler = mux
	handler = otelhttp.NewHandler(handler, "robotd.http")
	handler = RecoveryMiddleware(logger)(handler)
	handler = LoggingMiddleware(logger, deps.Verbose)(handler)
	if deps.CORS.Enabled {
		handler = CORSMiddleware(deps.CORS)(handler)
	}

	readTimeout := deps.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	// WriteTimeout is left at deps.WriteTimeout (zero by default): /video_feed
	// streams indefinitely, and a finite WriteTimeout would sever every MJPEG
	// connection. The façade relies on handler-level context cancellation
	// (client disconnect) instead.
	writeTimeout := deps.WriteTimeout
	idleTimeout := deps.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 120 * time.Second
	}

	return &Server{
		logger: logger,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
	}
}

// ListenAndServe blocks until the server stops or errors.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting http server", map[string]interface{}{"addr": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
