package server

// Notes:
// - Routing is tested through Handler() with httptest; one test binds a real
//   listener on port 0 to exercise Start/Shutdown and concurrent fetches.
// - Traversal tests build requests by hand so the raw ".." segments reach the
//   handler unmodified.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newSiteDir builds a small site tree:
//
//	root/
//	├── index.html
//	├── resume.html
//	├── css/site.css
//	├── images/profile.png
//	├── empty/              (no index.html)
//	└── docs/index.html
func newSiteDir(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	files := map[string]string{
		"index.html":         "<h1>home</h1>",
		"resume.html":        "<h1>resume</h1>",
		"css/site.css":       "body{}",
		"images/profile.png": "\x89PNG",
		"docs/index.html":    "<h1>docs</h1>",
		"data.bin":           "raw",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o750); err != nil {
		t.Fatal(err)
	}
	return root
}

func newTestServer(t *testing.T, root string) *Server {
	t.Helper()

	s, err := New(Config{Root: root, Port: 0}, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func serve(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, "/", nil)
	req.URL.Path = target
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// TestServeFile - Resolution and MIME Types
// ---------------------------------------------------------------------------

func TestServeFile(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, newSiteDir(t))

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
		wantCT     string
	}{
		{"root serves index", "/", http.StatusOK, "<h1>home</h1>", "text/html"},
		{"html file", "/resume.html", http.StatusOK, "<h1>resume</h1>", "text/html; charset=utf-8"},
		{"css file", "/css/site.css", http.StatusOK, "body{}", "text/css"},
		{"png file", "/images/profile.png", http.StatusOK, "\x89PNG", "image/png"},
		{"directory serves its index", "/docs", http.StatusOK, "<h1>docs</h1>", "text/html"},
		{"directory with slash serves its index", "/docs/", http.StatusOK, "<h1>docs</h1>", "text/html"},
		{"unknown extension falls back", "/data.bin", http.StatusOK, "raw", "application/octet-stream"},
		{"missing file is 404", "/nope.html", http.StatusNotFound, notFoundBody, "text/plain"},
		{"directory without index is 404", "/empty", http.StatusNotFound, notFoundBody, "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := serve(t, s, http.MethodGet, tt.path)
			if rec.Code != tt.wantStatus {
				t.Fatalf("GET %s status = %d, want %d", tt.path, rec.Code, tt.wantStatus)
			}
			if got := rec.Body.String(); got != tt.wantBody {
				t.Errorf("GET %s body = %q, want %q", tt.path, got, tt.wantBody)
			}
			ct := rec.Header().Get("Content-Type")
			if len(ct) < len(tt.wantCT) || ct[:len(tt.wantCT)] != tt.wantCT {
				t.Errorf("GET %s Content-Type = %q, want prefix %q", tt.path, ct, tt.wantCT)
			}
			if rec.Header().Get("Cache-Control") != "" {
				t.Errorf("GET %s sent caching headers", tt.path)
			}
		})
	}
}

func TestServeFile_Methods(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, newSiteDir(t))

	if rec := serve(t, s, http.MethodHead, "/resume.html"); rec.Code != http.StatusOK {
		t.Errorf("HEAD status = %d, want 200", rec.Code)
	}
	rec := serve(t, s, http.MethodPost, "/resume.html")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
	if rec.Header().Get("Allow") == "" {
		t.Error("POST response missing Allow header")
	}
}

// ---------------------------------------------------------------------------
// TestServeFile_Traversal - Root Confinement
// ---------------------------------------------------------------------------

func TestServeFile_Traversal(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	root := filepath.Join(parent, "site")
	if err := os.MkdirAll(root, 0o750); err != nil {
		t.Fatal(err)
	}
	secret := filepath.Join(parent, "secret.txt")
	if err := os.WriteFile(secret, []byte("top secret"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(secret, filepath.Join(root, "leak.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	s := newTestServer(t, root)

	paths := []string{
		"/../secret.txt",
		"/../../etc/passwd",
		"/..%2fsecret.txt",
		`/..\secret.txt`,
		"/leak.txt",
		"/./../site/../secret.txt",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			t.Parallel()

			rec := serve(t, s, http.MethodGet, p)
			if rec.Code != http.StatusNotFound {
				t.Errorf("GET %s status = %d, want 404", p, rec.Code)
			}
			if rec.Body.String() == "top secret" {
				t.Errorf("GET %s leaked a file outside the root", p)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestCleanPath / TestContentType
// ---------------------------------------------------------------------------

func TestCleanPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", "."},
		{"/", "."},
		{"/resume.html", "resume.html"},
		{"/a/b/../c.css", "a/c.css"},
		{"/../../etc/passwd", "etc/passwd"},
		{`\..\x`, "x"},
		{"//double//slash.js", "double/slash.js"},
	}
	for _, tt := range tests {
		if got := CleanPath(tt.in); got != tt.want {
			t.Errorf("CleanPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if !fs.ValidPath(CleanPath(tt.in)) {
			t.Errorf("CleanPath(%q) produced invalid fs path", tt.in)
		}
	}
}

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"a.html":           "text/html; charset=utf-8",
		"a.CSS":            "text/css; charset=utf-8",
		"a.js":             "application/javascript; charset=utf-8",
		"a.json":           "application/json; charset=utf-8",
		"a.svg":            "image/svg+xml",
		"a.png":            "image/png",
		"a.jpg":            "image/jpeg",
		"a.jpeg":           "image/jpeg",
		"favicon.ico":      "image/x-icon",
		"site.webmanifest": "application/manifest+json; charset=utf-8",
		"resume.pdf":       "application/pdf",
		"NotoSansKR.woff2": "font/woff2",
		"archive.tar.gz":   fallbackContentType,
		"no-extension":     fallbackContentType,
	}
	for name, want := range tests {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestServer_Lifecycle - Real Listener
// ---------------------------------------------------------------------------

func TestServer_StartServesConcurrently(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, newSiteDir(t))
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	base := s.BaseURL()
	if base == "" {
		t.Fatal("BaseURL() empty after Start")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	paths := []string{"/", "/resume.html", "/css/site.css", "/images/profile.png", "/docs/"}

	var wg sync.WaitGroup
	errs := make(chan error, len(paths)*4)
	for i := 0; i < 4; i++ {
		for _, p := range paths {
			wg.Add(1)
			go func(p string) {
				defer wg.Done()
				resp, err := client.Get(base + p)
				if err != nil {
					errs <- err
					return
				}
				defer resp.Body.Close()
				_, _ = io.Copy(io.Discard, resp.Body)
				if resp.StatusCode != http.StatusOK {
					errs <- fmt.Errorf("GET %s: status %d", p, resp.StatusCode)
				}
			}(p)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() error = %v, want nil", err)
	}
	if s.BaseURL() != "" {
		t.Error("BaseURL() should be empty after Shutdown")
	}
}

func TestServer_StartPortInUse(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	s, err := New(Config{Root: t.TempDir(), Port: port}, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Shutdown(context.Background())

	if err := s.Start(); !errors.Is(err, ErrListen) {
		t.Errorf("Start() on busy port %s error = %v, want ErrListen", strconv.Itoa(port), err)
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Root: filepath.Join(t.TempDir(), "missing")}, nil); !errors.Is(err, ErrInvalidRoot) {
		t.Errorf("New(missing root) error = %v, want ErrInvalidRoot", err)
	}
	if _, err := New(Config{Root: t.TempDir(), Port: 70000}, nil); !errors.Is(err, ErrListen) {
		t.Errorf("New(bad port) error = %v, want ErrListen", err)
	}
}
