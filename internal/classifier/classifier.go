// Package classifier provides the interchangeable classification strategies.
// Both implement ports.Classifier, so the pipeline never knows which one runs.
package classifier

import (
	"fmt"
	"strings"

	"CaseCollector/internal/ports"
)

// New selects a strategy by name. The delegated strategy needs an oracle.
func New(strategy string, table RuleTable, oracle ports.Oracle) (ports.Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategyRules:
		return NewRuleBased(table), nil
	case StrategyDelegated:
		if oracle == nil {
			return nil, fmt.Errorf("classifier %s: oracle is not configured", StrategyDelegated)
		}
		return NewDelegated(oracle), nil
	default:
		return nil, fmt.Errorf("unknown classifier strategy %q", strategy)
	}
}
