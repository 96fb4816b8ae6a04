// Package assets provides the JavaScript snippets and CSS injected into pages
// during export.
//
// # Loader Architecture
//
//	Loader (interface)
//	    │
//	    ├── EmbeddedLoader    - scripts and styles compiled into the binary
//	    ├── FilesystemLoader  - overrides from a directory on disk
//	    └── Resolver          - custom-first with fallback to embedded
//
// Every script is a single JavaScript function expression. Engines call it
// with JSON arguments and await the returned value, so a script may be async.
//
// # Directory Structure
//
// An override directory mirrors the embedded layout:
//
//	{basePath}/
//	├── scripts/
//	│   └── {name}.js
//	└── styles/
//	    └── {name}.css
//
// Only the files present are overridden; anything missing falls back to the
// embedded copy.
//
// # Security
//
// Asset names are validated before use and FilesystemLoader reads through
// os.Root, so neither ".." nor a symlink can reach outside basePath.
package assets
