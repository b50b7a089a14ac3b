package access

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Decision is the outcome of [Policy.Decide].
type Decision uint8

const (
	// DecisionAuthenticate requires an authenticated principal.
	DecisionAuthenticate Decision = iota
	// DecisionPermit lets the request through without authentication.
	DecisionPermit
	// DecisionIgnore bypasses the security filter entirely.
	DecisionIgnore
)

func (d Decision) String() string {
	switch d {
	case DecisionPermit:
		return "permit"
	case DecisionIgnore:
		return "ignore"
	default:
		return "authenticate"
	}
}

// Route names
const (
	RouteLogin    = "login"
	RouteLogout   = "logout"
	RouteForgot   = "forgot"
	RouteChange   = "change"
	RouteRegister = "register"
	RouteVerify   = "verify"
)

// ErrInvalidPattern is returned for patterns that are not absolute paths.
var ErrInvalidPattern = errors.New("invalid path pattern")

// Route is one functional endpoint and whether it is turned on.
type Route struct {
	Name    string
	URI     string
	NextURI string
	Enabled bool
}

type matcher struct {
	pattern string
	base    string
	prefix  bool
}

func compile(pattern string) (matcher, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || !strings.HasPrefix(pattern, "/") || strings.ContainsAny(pattern, "?#") {
		return matcher{}, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}

	if strings.HasSuffix(pattern, "/**") {
		base := strings.TrimSuffix(pattern, "/**")
		if base == "" {
			base = "/"
		}
		return matcher{pattern: pattern, base: base, prefix: true}, nil
	}
	if strings.Contains(pattern, "*") {
		return matcher{}, fmt.Errorf("%w: wildcard only allowed as trailing /** in %q", ErrInvalidPattern, pattern)
	}

	return matcher{pattern: pattern, base: pattern}, nil
}

func (m matcher) match(p string) bool {
	if !m.prefix {
		return p == m.base
	}
	if m.base == "/" {
		return true
	}
	return p == m.base || strings.HasPrefix(p, m.base+"/")
}

// Policy is the compiled decision table. It is immutable after [NewPolicy].
type Policy struct {
	ignored   []matcher
	permitted []matcher
	routes    map[string]Route
}

// NewPolicy compiles routes and ignored static paths. Disabled routes are kept
// for lookup but never added to the public set.
func NewPolicy(routes []Route, ignored []string) (*Policy, error) {
	p := &Policy{
		routes: make(map[string]Route, len(routes)),
	}

	for _, pattern := range ignored {
		m, err := compile(pattern)
		if err != nil {
			return nil, err
		}
		p.ignored = append(p.ignored, m)
	}

	for _, r := range routes {
		if r.Name == "" {
			return nil, errors.New("route name is required")
		}
		if _, dup := p.routes[r.Name]; dup {
			return nil, fmt.Errorf("duplicate route %q", r.Name)
		}
		p.routes[r.Name] = r
		if !r.Enabled {
			continue
		}
		m, err := compile(r.URI)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", r.Name, err)
		}
		p.permitted = append(p.permitted, m)
	}

	return p, nil
}

// Decide classifies a request path. Paths are cleaned before matching so
// dot segments cannot reach a public pattern from a protected prefix.
func (p *Policy) Decide(requestPath string) Decision {
	if p == nil {
		return DecisionAuthenticate
	}
	cleaned := cleanPath(requestPath)

	for _, m := range p.ignored {
		if m.match(cleaned) {
			return DecisionIgnore
		}
	}
	for _, m := range p.permitted {
		if m.match(cleaned) {
			return DecisionPermit
		}
	}
	return DecisionAuthenticate
}

// Route returns the named route, enabled or not.
func (p *Policy) Route(name string) (Route, bool) {
	if p == nil {
		return Route{}, false
	}
	r, ok := p.routes[name]
	return r, ok
}

// PermitAll lists the public patterns in sorted order.
func (p *Policy) PermitAll() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.permitted))
	for _, m := range p.permitted {
		out = append(out, m.pattern)
	}
	sort.Strings(out)
	return out
}

// Ignored lists the ignored patterns in sorted order.
func (p *Policy) Ignored() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.ignored))
	for _, m := range p.ignored {
		out = append(out, m.pattern)
	}
	sort.Strings(out)
	return out
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}
