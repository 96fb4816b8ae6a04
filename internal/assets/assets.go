package assets

import (
	"fmt"
	"strings"
)

// Script names.
const (
	ScriptNormalize     = "normalize"      // (rules) => changed element count
	ScriptFontsReady    = "fonts-ready"    // () => bool
	ScriptDiagramCount  = "diagram-count"  // (selector) => number
	ScriptLibraryReady  = "library-ready"  // (global) => bool
	ScriptDiagramsReady = "diagrams-ready" // (selector, minElements) => {total, ready}
)

// Style names.
const (
	StyleKoreanFonts = "korean-fonts"
)

// Scripts is the set of scripts every export needs.
var Scripts = []string{
	ScriptNormalize,
	ScriptFontsReady,
	ScriptDiagramCount,
	ScriptLibraryReady,
	ScriptDiagramsReady,
}

// Bundle holds the resolved scripts and stylesheet for one run.
type Bundle struct {
	Scripts map[string]string
	FontCSS string
}

// Script returns the named script or "" if the bundle does not carry it.
func (b *Bundle) Script(name string) string {
	return b.Scripts[name]
}

// LoadBundle resolves every required script and the font stylesheet up front
// so a bad override fails the run before any browser work starts.
func LoadBundle(l Loader) (*Bundle, error) {
	b := &Bundle{Scripts: make(map[string]string, len(Scripts))}
	for _, name := range Scripts {
		js, err := l.LoadScript(name)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(js) == "" {
			return nil, fmt.Errorf("%w: script %q is empty", ErrAssetRead, name)
		}
		b.Scripts[name] = strings.TrimSpace(js)
	}
	css, err := l.LoadStyle(StyleKoreanFonts)
	if err != nil {
		return nil, err
	}
	b.FontCSS = css
	return b, nil
}
