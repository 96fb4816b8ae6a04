// Package server serves a directory over plain HTTP so a headless browser can
// load pages with the same relative asset paths a visitor would see.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Sentinel errors for server lifecycle.
var (
	ErrListen      = errors.New("failed to bind static server")
	ErrInvalidRoot = errors.New("invalid server root")
)

// Defaults match the address the exported pages are authored against.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8080

	indexFile    = "index.html"
	notFoundBody = "Not found"

	readHeaderTimeout = 10 * time.Second
)

// Config describes what to serve and where to listen.
type Config struct {
	Root string
	Host string
	Port int // 0 picks a free port
}

// Server is a read-only static file server rooted at a directory.
// Requests never resolve outside the root: os.Root refuses ".." and symlink
// escapes at the syscall level.
type Server struct {
	cfg    Config
	root   *os.Root
	files  fs.FS
	engine *gin.Engine
	logger *slog.Logger

	mu   sync.Mutex
	srv  *http.Server
	ln   net.Listener
	done chan error
}

// New opens the root directory and builds the request router.
// The server does not listen until Start is called.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", ErrListen, cfg.Port)
	}
	if logger == nil {
		logger = slog.Default()
	}

	root, err := os.OpenRoot(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}

	s := &Server{
		cfg:    cfg,
		root:   root,
		files:  root.FS(),
		logger: logger,
	}
	s.engine = s.newRouter()
	return s, nil
}

func (s *Server) newRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))
	r.NoRoute(s.serveFile)
	return r
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start binds the listener and serves in the background.
// Bind failures are returned immediately and wrap ErrListen.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return nil
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrListen, addr, err)
	}

	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.done = make(chan error, 1)

	go func(srv *http.Server, done chan<- error) {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}(s.srv, s.done)

	s.logger.Info("static server listening", "addr", ln.Addr().String(), "root", s.cfg.Root)
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// BaseURL returns the http URL of the bound listener without a trailing slash.
func (s *Server) BaseURL() string {
	addr := s.Addr()
	if addr == "" {
		return ""
	}
	return "http://" + addr
}

// Shutdown stops accepting connections, waits for in-flight requests and
// releases the root directory. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, done, root := s.srv, s.done, s.root
	s.srv, s.ln, s.done, s.root = nil, nil, nil, nil
	s.mu.Unlock()

	var errs []error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := <-done; err != nil {
			errs = append(errs, err)
		}
		s.logger.Info("static server stopped")
	}
	if root != nil {
		if err := root.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// serveFile resolves the request path against the root.
func (s *Server) serveFile(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Header("Allow", "GET, HEAD")
		c.String(http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
		return
	}

	name, ok := s.resolve(c.Request.URL.Path)
	if !ok {
		c.String(http.StatusNotFound, notFoundBody)
		return
	}

	data, err := fs.ReadFile(s.files, name)
	if err != nil {
		c.String(http.StatusNotFound, notFoundBody)
		return
	}

	c.Data(http.StatusOK, ContentType(name), data)
}

// resolve maps a URL path to a name inside the root filesystem.
// Directories resolve to their index.html.
func (s *Server) resolve(urlPath string) (string, bool) {
	name := CleanPath(urlPath)
	if !fs.ValidPath(name) {
		return "", false
	}

	info, err := fs.Stat(s.files, name)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		name = path.Join(name, indexFile)
	}
	return name, true
}

// CleanPath turns a request path into a slash-separated, root-relative name.
// Leading ".." segments are dropped by path.Clean on the rooted form, so the
// result never climbs above the root. The empty path maps to ".".
func CleanPath(urlPath string) string {
	cleaned := path.Clean("/" + strings.ReplaceAll(urlPath, "\\", "/"))
	name := strings.TrimPrefix(cleaned, "/")
	if name == "" {
		return "."
	}
	return name
}

// requestLogger logs one debug line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("static request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
