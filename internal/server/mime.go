package server

import (
	"path"
	"strings"
)

// fallbackContentType is served for any unrecognized extension.
const fallbackContentType = "application/octet-stream"

// contentTypes maps lower-case file extensions to the types the exported pages
// rely on. Text types carry an explicit charset so Korean text is not sniffed.
var contentTypes = map[string]string{
	".html":        "text/html; charset=utf-8",
	".css":         "text/css; charset=utf-8",
	".js":          "application/javascript; charset=utf-8",
	".json":        "application/json; charset=utf-8",
	".svg":         "image/svg+xml",
	".png":         "image/png",
	".jpg":         "image/jpeg",
	".jpeg":        "image/jpeg",
	".ico":         "image/x-icon",
	".webmanifest": "application/manifest+json; charset=utf-8",
	".pdf":         "application/pdf",
	".woff":        "font/woff",
	".woff2":       "font/woff2",
	".ttf":         "font/ttf",
}

// ContentType returns the MIME type for a file name based on its extension.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return fallbackContentType
}
