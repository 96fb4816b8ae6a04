package normalize

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ApplyHTML applies the ruleset to a parsed document in place and returns the
// number of elements whose style or class attribute changed.
func (rs Ruleset) ApplyHTML(doc *html.Node) (int, error) {
	before := make(map[*html.Node][2]string)
	touched := make([]*html.Node, 0)

	for i, r := range rs {
		sel, err := cascadia.Compile(r.Selector)
		if err != nil {
			return 0, fmt.Errorf("%w: rule %d (%s): %v", ErrInvalidRule, i, r.Name, err)
		}
		for _, n := range cascadia.QueryAll(doc, sel) {
			if _, seen := before[n]; !seen {
				style, _ := getAttr(n, "style")
				class, _ := getAttr(n, "class")
				before[n] = [2]string{style, class}
				touched = append(touched, n)
			}
			applyRule(n, r)
		}
	}

	changed := 0
	for _, n := range touched {
		style, _ := getAttr(n, "style")
		class, _ := getAttr(n, "class")
		if before[n] != [2]string{style, class} {
			changed++
		}
	}
	return changed, nil
}

func applyRule(n *html.Node, r Rule) {
	if len(r.Styles) > 0 {
		raw, _ := getAttr(n, "style")
		decls := parseStyle(raw)
		dirty := false
		lookup := func(name string) (string, bool) { return getAttr(n, name) }
		for _, d := range r.Styles {
			v := d.resolve(lookup)
			if v == "" {
				continue
			}
			if decls.set(d.Property, v) {
				dirty = true
			}
		}
		if dirty {
			setAttr(n, "style", decls.String())
		}
	}

	if len(r.AddClass) > 0 || len(r.RemoveClass) > 0 {
		raw, had := getAttr(n, "class")
		classes := strings.Fields(raw)
		next := editClasses(classes, r.AddClass, r.RemoveClass)
		if strings.Join(next, " ") != strings.Join(classes, " ") || (!had && len(next) > 0) {
			setAttr(n, "class", strings.Join(next, " "))
		}
	}
}

func editClasses(classes, add, remove []string) []string {
	drop := make(map[string]bool, len(remove))
	for _, c := range remove {
		drop[c] = true
	}
	out := make([]string, 0, len(classes)+len(add))
	have := make(map[string]bool, len(classes))
	for _, c := range classes {
		if drop[c] || have[c] {
			continue
		}
		have[c] = true
		out = append(out, c)
	}
	for _, c := range add {
		if !have[c] && !drop[c] {
			have[c] = true
			out = append(out, c)
		}
	}
	return out
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// declaration is one parsed inline style entry.
type declaration struct {
	property  string
	value     string
	important bool
}

type styleDecls []declaration

// set pins property to value with !important and reports whether the
// declaration list changed.
func (s *styleDecls) set(property, value string) bool {
	property = strings.ToLower(strings.TrimSpace(property))
	for i, d := range *s {
		if d.property == property {
			if d.value == value && d.important {
				return false
			}
			(*s)[i].value = value
			(*s)[i].important = true
			return true
		}
	}
	*s = append(*s, declaration{property: property, value: value, important: true})
	return true
}

func (s styleDecls) String() string {
	parts := make([]string, 0, len(s))
	for _, d := range s {
		p := d.property + ": " + d.value
		if d.important {
			p += " !important"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "; ")
}

// parseStyle splits an inline style attribute into declarations. Semicolons
// inside quotes or parentheses (data URLs, font stacks) do not split.
func parseStyle(raw string) styleDecls {
	var out styleDecls
	for _, chunk := range splitTopLevel(raw, ';') {
		name, value, ok := strings.Cut(chunk, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		if name == "" {
			continue
		}
		important := false
		if idx := strings.LastIndex(strings.ToLower(value), "!important"); idx >= 0 && strings.TrimSpace(value[idx+len("!important"):]) == "" {
			important = true
			value = strings.TrimSpace(value[:idx])
		}
		replaced := false
		for i := range out {
			if out[i].property == name {
				out[i] = declaration{property: name, value: value, important: important}
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, declaration{property: name, value: value, important: important})
		}
	}
	return out
}

func splitTopLevel(s string, sep rune) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case r == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}
