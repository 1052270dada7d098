// Package policy evaluates configurable retry rules for gateway transport
// calls. Rules are govaluate expressions over per-attempt parameters; the
// connector transformers themselves never retry. Only the transport client
// consults this package, between attempts.
package policy

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// RuleConfig names a single retry rule. Expression is a govaluate
// expression over the parameters passed to ShouldRetry, e.g.
// "network_error && attempt < 3".
type RuleConfig struct {
	Name       string
	Expression string
}

type compiledRule struct {
	name string
	expr *govaluate.EvaluableExpression
}

// RetryPolicy decides whether a failed transport attempt may be retried.
type RetryPolicy struct {
	rules []compiledRule
}

// NewRetryPolicy compiles the given rules. An empty rule set yields a
// policy that never retries.
func NewRetryPolicy(rules []RuleConfig) (*RetryPolicy, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rc := range rules {
		expr, err := govaluate.NewEvaluableExpression(rc.Expression)
		if err != nil {
			return nil, fmt.Errorf("policy: compiling rule %q: %w", rc.Name, err)
		}
		compiled = append(compiled, compiledRule{name: rc.Name, expr: expr})
	}
	return &RetryPolicy{rules: compiled}, nil
}

// DefaultRules retries network errors and retryable HTTP statuses, bounded
// at three attempts total.
func DefaultRules() []RuleConfig {
	return []RuleConfig{
		{Name: "network-error", Expression: "network_error && attempt < 3"},
		{Name: "server-error", Expression: "http_status >= 500 && attempt < 3"},
		{Name: "rate-limited", Expression: "http_status == 429 && attempt < 3"},
	}
}

// ShouldRetry evaluates every rule against the parameters and reports
// whether any fired, along with the name of the first that did.
// Expected parameters: attempt (int), http_status (int, 0 when the call
// never completed), network_error (bool).
func (p *RetryPolicy) ShouldRetry(params map[string]interface{}) (bool, string, error) {
	args := normalize(params)
	for _, rule := range p.rules {
		verdict, err := rule.expr.Evaluate(args)
		if err != nil {
			return false, "", fmt.Errorf("policy: evaluating rule %q: %w", rule.name, err)
		}
		if fired, ok := verdict.(bool); ok && fired {
			return true, rule.name, nil
		}
	}
	return false, "", nil
}

// normalize converts integer parameters to float64, the only numeric type
// govaluate compares against literals.
func normalize(params map[string]interface{}) map[string]interface{} {
	args := make(map[string]interface{}, len(params))
	for k, v := range params {
		switch n := v.(type) {
		case int:
			args[k] = float64(n)
		case int64:
			args[k] = float64(n)
		default:
			args[k] = v
		}
	}
	return args
}
