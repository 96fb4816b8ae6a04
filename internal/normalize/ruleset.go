// Package normalize pins interactive and responsive page state to fixed,
// print-safe inline styles.
//
// A headless export never fires the resize, scroll or click events that expand
// a sidebar, open a collapsible card or size a progress bar. The Ruleset lists
// (selector, property, value) overrides that force those elements into their
// expanded state. The same Ruleset is applied in the browser, passed as JSON
// to the embedded normalize script, and to a parsed document (ApplyHTML), so
// it can be checked against a DOM fixture.
//
// Applying a Ruleset is idempotent: every override is a literal value or a pure
// function of an attribute, so a second application changes nothing.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
)

// ErrInvalidRule reports a rule that cannot be applied.
var ErrInvalidRule = errors.New("invalid normalization rule")

// Decl is one style override. When FromAttr is set and the element carries that
// attribute, the value is the attribute value followed by Suffix; otherwise
// Value is used. An empty resulting value leaves the property untouched.
type Decl struct {
	Property string `json:"property"`
	Value    string `json:"value,omitempty"`
	FromAttr string `json:"fromAttr,omitempty"`
	Suffix   string `json:"suffix,omitempty"`
}

// Rule applies declarations and class changes to every element matching
// Selector.
type Rule struct {
	Name        string   `json:"name"`
	Selector    string   `json:"selector"`
	Styles      []Decl   `json:"styles,omitempty"`
	AddClass    []string `json:"addClass,omitempty"`
	RemoveClass []string `json:"removeClass,omitempty"`
}

// Ruleset is an ordered list of rules. Later rules win on conflicting
// properties for the same element. Selectors must not depend on the classes
// or inline styles the ruleset itself edits.
type Ruleset []Rule

// Validate checks selectors compile and declarations are well formed.
func (rs Ruleset) Validate() error {
	for i, r := range rs {
		if strings.TrimSpace(r.Selector) == "" {
			return fmt.Errorf("%w: rule %d (%s): empty selector", ErrInvalidRule, i, r.Name)
		}
		if _, err := cascadia.ParseGroup(r.Selector); err != nil {
			return fmt.Errorf("%w: rule %d (%s): %v", ErrInvalidRule, i, r.Name, err)
		}
		for _, d := range r.Styles {
			if strings.TrimSpace(d.Property) == "" {
				return fmt.Errorf("%w: rule %d (%s): empty property", ErrInvalidRule, i, r.Name)
			}
			if d.Value == "" && d.FromAttr == "" {
				return fmt.Errorf("%w: rule %d (%s): %s has no value", ErrInvalidRule, i, r.Name, d.Property)
			}
		}
		for _, c := range append(append([]string{}, r.AddClass...), r.RemoveClass...) {
			if c == "" || strings.ContainsAny(c, " \t\n") {
				return fmt.Errorf("%w: rule %d (%s): bad class %q", ErrInvalidRule, i, r.Name, c)
			}
		}
	}
	return nil
}

// resolve computes the value a declaration pins for an element with the given
// attribute lookup.
func (d Decl) resolve(attr func(string) (string, bool)) string {
	if d.FromAttr != "" {
		if v, ok := attr(d.FromAttr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v) + d.Suffix
		}
	}
	return d.Value
}

// DiagramFontFamily is the family stack pinned on diagram text.
const DiagramFontFamily = `"Noto Sans KR", "Nanum Gothic", "Malgun Gothic", "Apple SD Gothic Neo", sans-serif`

// Default returns the ruleset for the résumé and portfolio markup. The
// selectors are a contract with the page templates.
func Default() Ruleset {
	natural := []Decl{
		{Property: "height", Value: "auto"},
		{Property: "max-height", Value: "none"},
		{Property: "overflow", Value: "visible"},
	}
	expanded := []Decl{
		{Property: "display", Value: "block"},
		{Property: "height", Value: "auto"},
		{Property: "max-height", Value: "none"},
		{Property: "overflow", Value: "visible"},
		{Property: "opacity", Value: "1"},
	}
	exactColor := []Decl{
		{Property: "-webkit-print-color-adjust", Value: "exact"},
		{Property: "print-color-adjust", Value: "exact"},
	}

	return Ruleset{
		{
			Name:     "sidebar",
			Selector: ".sidebar",
			Styles:   append([]Decl{{Property: "position", Value: "static"}}, natural...),
		},
		{
			Name:     "sidebar-panels",
			Selector: ".sidebar .sidebar-content, .sidebar .profile-section, .sidebar .skills-section",
			Styles:   natural,
		},
		{
			Name:        "collapsible-cards",
			Selector:    ".content-card.collapsible, .collapsible-card",
			Styles:      []Decl{{Property: "max-height", Value: "none"}, {Property: "overflow", Value: "visible"}},
			AddClass:    []string{"expanded"},
			RemoveClass: []string{"collapsed"},
		},
		{
			Name:     "collapsible-bodies",
			Selector: ".content-card .card-body, .content-card .card-content, .collapsible-card .collapsible-content",
			Styles:   expanded,
		},
		{
			Name:     "skill-tracks",
			Selector: ".skill-bar, .progress-bar",
			Styles: append([]Decl{
				{Property: "display", Value: "block"},
				{Property: "height", Value: "8px"},
				{Property: "background-color", Value: "#e9ecef"},
				{Property: "overflow", Value: "hidden"},
			}, exactColor...),
		},
		{
			Name:     "skill-levels",
			Selector: ".skill-level, .progress-fill",
			Styles: append([]Decl{
				{Property: "display", Value: "block"},
				{Property: "width", FromAttr: "data-level", Suffix: "%"},
				{Property: "height", Value: "100%"},
				{Property: "background-color", Value: "#3498db"},
			}, exactColor...),
		},
		{
			Name:     "progress-values",
			Selector: ".progress-fill[data-value]:not([data-level])",
			Styles:   []Decl{{Property: "width", FromAttr: "data-value", Suffix: "%"}},
		},
		{
			Name:     "diagram-svg",
			Selector: ".mermaid svg",
			Styles: []Decl{
				{Property: "max-width", Value: "100%"},
				{Property: "height", Value: "auto"},
			},
		},
		{
			Name:     "diagram-text",
			Selector: ".mermaid svg text, .mermaid svg .nodeLabel, .mermaid svg .edgeLabel",
			Styles: []Decl{
				{Property: "font-size", Value: "14px"},
				{Property: "font-weight", Value: "400"},
				{Property: "font-family", Value: DiagramFontFamily},
			},
		},
		{
			Name:     "pdf-excluded",
			Selector: `.no-pdf, [data-pdf="exclude"], .print-btn, .mermaid-modal`,
			Styles:   []Decl{{Property: "display", Value: "none"}},
		},
		{
			Name:     "page-breaks",
			Selector: ".page-break, [data-pdf-break]",
			Styles: []Decl{
				{Property: "page-break-before", Value: "always"},
				{Property: "break-before", Value: "page"},
			},
		},
	}
}
