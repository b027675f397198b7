// Package reputation decides whether an origin address is known bad by evaluating a Rego policy
// against configured blocklists.
package reputation

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const query = "data.adaptiveauth.reputation.flagged"

//go:embed policy.rego
var defaultPolicy string

// DefaultPolicy returns the built-in Rego module.
func DefaultPolicy() string {
	return defaultPolicy
}

// Config holds the blocklists passed to the policy as input. PolicySource replaces the built-in
// module when set; it must define data.adaptiveauth.reputation.flagged.
type Config struct {
	BlockedPrefixes []string
	BlockedCIDRs    []string
	PolicySource    string
}

// Checker is a compiled reputation policy. Safe for concurrent use.
type Checker struct {
	pq       rego.PreparedEvalQuery
	prefixes []string
	cidrs    []string
}

// New compiles the policy and validates the CIDR list.
func New(ctx context.Context, cfg Config) (*Checker, error) {
	src := cfg.PolicySource
	if strings.TrimSpace(src) == "" {
		src = defaultPolicy
	}
	cidrs := make([]string, 0, len(cfg.BlockedCIDRs))
	for _, c := range cfg.BlockedCIDRs {
		p, err := netip.ParsePrefix(strings.TrimSpace(c))
		if err != nil {
			return nil, fmt.Errorf("reputation: invalid blocked cidr %q: %w", c, err)
		}
		cidrs = append(cidrs, p.String())
	}
	prefixes := make([]string, 0, len(cfg.BlockedPrefixes))
	for _, p := range cfg.BlockedPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}

	compiler, err := ast.CompileModules(map[string]string{"reputation.rego": src})
	if err != nil {
		return nil, fmt.Errorf("reputation: compile policy: %w", err)
	}
	pq, err := rego.New(
		rego.Query(query),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("reputation: prepare policy: %w", err)
	}
	return &Checker{pq: pq, prefixes: prefixes, cidrs: cidrs}, nil
}

// IsFlagged evaluates the policy for origin. An undefined result is an error so the caller can fail open.
func (c *Checker) IsFlagged(ctx context.Context, origin string) (bool, error) {
	rs, err := c.pq.Eval(ctx, rego.EvalInput(c.input(origin)))
	if err != nil {
		return false, fmt.Errorf("reputation: eval: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, errors.New("reputation: policy returned no result")
	}
	v, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("reputation: policy returned %T, want bool", rs[0].Expressions[0].Value)
	}
	return v, nil
}

// HealthCheck evaluates the policy against a documentation address.
func (c *Checker) HealthCheck(ctx context.Context) error {
	if _, err := c.IsFlagged(ctx, "192.0.2.1"); err != nil {
		return fmt.Errorf("reputation health: %w", err)
	}
	return nil
}

func (c *Checker) input(origin string) map[string]any {
	_, err := netip.ParseAddr(origin)
	return map[string]any{
		"origin":           origin,
		"origin_is_ip":     err == nil,
		"blocked_prefixes": c.prefixes,
		"blocked_cidrs":    c.cidrs,
	}
}
