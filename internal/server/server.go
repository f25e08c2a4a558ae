// internal/server/server.go
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nrcms/internal/gendirs"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type Options struct {
	Port int
	// Ignore holds watcher ignore patterns relative to the source directory.
	Ignore []string
}

// Server serves the generated tree, rebuilds it on source changes and
// tells connected browsers to reload.
type Server struct {
	dirs     gendirs.Dirs
	build    BuildFunc
	logger   *zap.Logger
	opts     Options
	registry *prometheus.Registry
	metrics  *Metrics
	hub      *Hub
	watcher  *Watcher
}

func New(dirs gendirs.Dirs, build BuildFunc, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	hub := NewHub(logger, metrics)
	s := &Server{
		dirs:     dirs,
		build:    build,
		logger:   logger,
		opts:     opts,
		registry: registry,
		metrics:  metrics,
		hub:      hub,
	}
	s.watcher = NewWatcher(dirs.InSource(""), build, logger,
		WithIgnore(opts.Ignore...),
		WithMetrics(metrics),
		OnRebuild(hub.Reload),
	)
	return s
}

// Handler routes the live reload socket, the metrics endpoint and the
// generated files.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.hub)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	httpFs := afero.NewHttpFs(s.dirs.Fs())
	fileServer := http.FileServer(httpFs.Dir(s.dirs.InGen("")))
	mux.Handle("/", liveReloadWrapper(fileServer))
	return mux
}

// Run builds once, then serves and watches until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.watcher.Rebuild(ctx); err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}

	addr := net.JoinHostPort("", strconv.Itoa(s.opts.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchErr := make(chan error, 1)
	go func() { watchErr <- s.watcher.Run(ctx) }()

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("serving site", zap.String("url", "http://localhost"+addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-watchErr:
		if err != nil {
			s.logger.Error("watcher stopped", zap.Error(err))
		}
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	return srv.Shutdown(shutdownCtx)
}

// liveReloadWrapper disables caching and injects the reload script into
// HTML responses.
func liveReloadWrapper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		isHTML := strings.HasSuffix(r.URL.Path, ".html") || strings.HasSuffix(r.URL.Path, "/")
		if !isHTML {
			next.ServeHTTP(w, r)
			return
		}

		iw := newInterceptingWriter(w)
		next.ServeHTTP(iw, r)

		for key, values := range iw.Header() {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}
		body := iw.body.Bytes()
		if iw.statusCode != http.StatusOK {
			w.WriteHeader(iw.statusCode)
			w.Write(body)
			return
		}

		injected := bytes.Replace(body, []byte("</body>"), []byte(liveReloadScript+"</body>"), 1)
		w.Header().Set("Content-Length", strconv.Itoa(len(injected)))
		w.WriteHeader(iw.statusCode)
		w.Write(injected)
	})
}

type interceptingWriter struct {
	http.ResponseWriter
	body       *bytes.Buffer
	statusCode int
	header     http.Header
}

func newInterceptingWriter(w http.ResponseWriter) *interceptingWriter {
	return &interceptingWriter{
		ResponseWriter: w,
		body:           new(bytes.Buffer),
		header:         make(http.Header),
		statusCode:     http.StatusOK,
	}
}

func (iw *interceptingWriter) Header() http.Header {
	return iw.header
}

func (iw *interceptingWriter) Write(b []byte) (int, error) {
	return iw.body.Write(b)
}

func (iw *interceptingWriter) WriteHeader(statusCode int) {
	iw.statusCode = statusCode
}

const liveReloadScript = `
<script>
  (function() {
    let socket = new WebSocket("ws://" + window.location.host + "/ws");
    socket.onmessage = function(event) {
      if (event.data === "` + ReloadMessage + `") {
        window.location.reload();
      }
    };
    socket.onerror = function() {
      console.error("Live reload connection error. Please restart 'nrcms serve'.");
    };
  })();
</script>
`
