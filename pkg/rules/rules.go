// Package rules compiles the configured rule list into an ordered matcher
// that yields an Allow, Block, or Challenge decision for a request.
package rules

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/ethpandaops/cowcatwaf/pkg/config"
)

// Action is the outcome of a matched (or default) rule.
type Action int

const (
	// ActionNone means rules are disabled; the gate should fall back to
	// base difficulty unconditionally.
	ActionNone Action = iota
	ActionAllow
	ActionBlock
	ActionChallenge
)

// Decision is the result of evaluating the engine against a request.
type Decision struct {
	Action          Action
	DifficultyDelta int
}

// Request is the subset of request state a predicate can match against.
type Request struct {
	Path    string
	Headers http.Header
	IP      string // empty when the client IP is unknown
}

type headerPredicate struct {
	name     string
	equals   string
	contains string
}

type rule struct {
	pathPrefix string
	pathExact  string
	header     *headerPredicate
	nets       []*net.IPNet
	action     Action
	delta      int
}

// Engine is the compiled, immutable rule list.
type Engine struct {
	enabled       bool
	rules         []rule
	defaultAction Action
}

// Compile builds an Engine from configuration, parsing every IP CIDR entry
// up front. Config is assumed already validated by pkg/config.
func Compile(cfg config.RulesConfig) (*Engine, error) {
	if !cfg.Enabled {
		return &Engine{enabled: false}, nil
	}

	compiled := make([]rule, 0, len(cfg.Rule))

	for i, rc := range cfg.Rule {
		r := rule{
			pathPrefix: rc.PathPrefix,
			pathExact:  rc.PathExact,
			action:     actionFromConfig(rc.Action),
			delta:      rc.DifficultyDelta,
		}

		if rc.Header != nil {
			r.header = &headerPredicate{
				name:     rc.Header.Name,
				equals:   rc.Header.Equals,
				contains: rc.Header.Contains,
			}
		}

		for _, cidr := range rc.IPCIDR {
			_, ipNet, err := net.ParseCIDR(cidr)
			if err != nil {
				return nil, fmt.Errorf("rules: rule %d: parse cidr %q: %w", i, cidr, err)
			}

			r.nets = append(r.nets, ipNet)
		}

		compiled = append(compiled, r)
	}

	return &Engine{
		enabled:       true,
		rules:         compiled,
		defaultAction: actionFromConfig(cfg.DefaultAction),
	}, nil
}

// Evaluate returns the decision for req: the first matching rule's action
// and delta, or the configured default action with delta 0 when no rule
// matches, or ActionNone when rules are disabled.
func (e *Engine) Evaluate(req Request) Decision {
	if !e.enabled {
		return Decision{Action: ActionNone}
	}

	for _, r := range e.rules {
		if r.matches(req) {
			return Decision{Action: r.action, DifficultyDelta: r.delta}
		}
	}

	return Decision{Action: e.defaultAction}
}

func (r rule) matches(req Request) bool {
	if r.pathPrefix != "" && !strings.HasPrefix(req.Path, r.pathPrefix) {
		return false
	}

	if r.pathExact != "" && req.Path != r.pathExact {
		return false
	}

	if r.header != nil && !r.header.matches(req.Headers) {
		return false
	}

	if len(r.nets) > 0 && !matchesAnyCIDR(req.IP, r.nets) {
		return false
	}

	return true
}

func (h headerPredicate) matches(headers http.Header) bool {
	value := headers.Get(h.name)
	if value == "" {
		return false
	}

	if h.equals != "" {
		return strings.EqualFold(value, h.equals)
	}

	if h.contains != "" {
		return strings.Contains(strings.ToLower(value), strings.ToLower(h.contains))
	}

	return true
}

func matchesAnyCIDR(ip string, nets []*net.IPNet) bool {
	if ip == "" {
		return false
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	for _, n := range nets {
		if n.Contains(parsed) {
			return true
		}
	}

	return false
}

func actionFromConfig(a config.RuleAction) Action {
	switch a {
	case config.RuleActionAllow:
		return ActionAllow
	case config.RuleActionBlock:
		return ActionBlock
	case config.RuleActionChallenge:
		return ActionChallenge
	default:
		return ActionChallenge
	}
}

// Clamp restricts an effective difficulty to the valid [0, 10] range.
func Clamp(difficulty int) int {
	if difficulty < 0 {
		return 0
	}

	if difficulty > 10 {
		return 10
	}

	return difficulty
}
