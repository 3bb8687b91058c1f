package limits

import (
	"fmt"
	"regexp"
	"strings"
)

// pattern is a compiled URI template. Templates are literal paths with
// braced single-segment captures, e.g. "/tenants/{tenant_id}/tokens".
// Matching is anchored to the whole path.
type pattern struct {
	re       *regexp.Regexp
	captures []string
}

var captureName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// compilePattern translates a URI template into an anchored regexp with one
// named group per braced segment.
func compilePattern(template string) (*pattern, error) {
	if !strings.HasPrefix(template, "/") {
		return nil, fmt.Errorf("uri pattern must start with '/': %q", template)
	}

	var sb strings.Builder
	var captures []string
	sb.WriteString("^")

	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			sb.WriteString(regexp.QuoteMeta(rest))
			break
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			return nil, fmt.Errorf("unbalanced '{' in uri pattern %q", template)
		}
		name := rest[open+1 : open+closing]
		if !captureName.MatchString(name) {
			return nil, fmt.Errorf("invalid capture name %q in uri pattern %q", name, template)
		}

		sb.WriteString(regexp.QuoteMeta(rest[:open]))
		fmt.Fprintf(&sb, "(?P<%s>[^/]+)", name)
		captures = append(captures, name)
		rest = rest[open+closing+1:]
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("compile uri pattern %q: %w", template, err)
	}
	return &pattern{re: re, captures: captures}, nil
}

// match matches path against the pattern, returning the capture map.
func (p *pattern) match(path string) (map[string]string, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	if len(p.captures) == 0 {
		return nil, true
	}

	caps := make(map[string]string, len(p.captures))
	for i, name := range p.re.SubexpNames() {
		if name != "" {
			caps[name] = m[i]
		}
	}
	return caps, true
}

func (p *pattern) hasCapture(name string) bool {
	for _, c := range p.captures {
		if c == name {
			return true
		}
	}
	return false
}
