package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"CaseCollector/internal/domain"
	"CaseCollector/internal/ports"
)

// StrategyDelegated names the oracle-backed strategy.
const StrategyDelegated = "delegated"

var (
	// ErrNotRelevant means the oracle judged the item off-topic.
	ErrNotRelevant = errors.New("item not relevant")
	// ErrNoResult means no usable classification could be obtained.
	ErrNoResult = errors.New("no classification result")
)

// Delegated forwards items to an analysis oracle and parses its answer.
type Delegated struct {
	oracle ports.Oracle
}

var _ ports.Classifier = (*Delegated)(nil)

// NewDelegated wraps an oracle.
func NewDelegated(oracle ports.Oracle) *Delegated {
	return &Delegated{oracle: oracle}
}

// Name identifies the strategy.
func (c *Delegated) Name() string {
	return StrategyDelegated
}

// Classify asks the oracle and returns ErrNoResult or ErrNotRelevant when
// the item has to be dropped.
func (c *Delegated) Classify(ctx context.Context, item domain.NormalizedItem) (domain.ClassificationResult, error) {
	if c.oracle == nil {
		return domain.ClassificationResult{}, fmt.Errorf("%w: oracle not configured", ErrNoResult)
	}

	answer, err := c.oracle.Analyze(ctx, item.Title, item.Snippet)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("%w: analyze: %v", ErrNoResult, err)
	}

	result, err := ParseOracleAnswer(answer)
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	result.Strategy = StrategyDelegated
	return result, nil
}

type oracleLabel struct {
	Label        string   `json:"label"`
	Confidence   *int     `json:"confidence"`
	Alternatives []string `json:"alternatives"`
	Category     string   `json:"category"`
}

type oracleAnswer struct {
	IsRelevant      *bool       `json:"isRelevant"`
	Actor           oracleLabel `json:"actor"`
	TeamType        oracleLabel `json:"teamType"`
	PrimaryCategory oracleLabel `json:"primaryCategory"`
	Excerpt         string      `json:"excerpt"`
	Reasoning       struct {
		ActorReason string `json:"actorReason"`
		TypeReason  string `json:"typeReason"`
		IsPositive  bool   `json:"isPositive"`
	} `json:"reasoning"`
}

// ParseOracleAnswer extracts the first balanced JSON object from free-form
// text and turns it into a classification result.
func ParseOracleAnswer(answer string) (domain.ClassificationResult, error) {
	object, ok := FirstObject(answer)
	if !ok {
		return domain.ClassificationResult{}, fmt.Errorf("%w: no json object in answer", ErrNoResult)
	}

	var parsed oracleAnswer
	if err := json.Unmarshal([]byte(object), &parsed); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("%w: decode answer: %v", ErrNoResult, err)
	}
	if parsed.IsRelevant != nil && !*parsed.IsRelevant {
		return domain.ClassificationResult{}, ErrNotRelevant
	}

	actor, err := parsed.Actor.toLabeled("actor")
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	teamType, err := parsed.TeamType.toLabeled("teamType")
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	primary, err := parsed.PrimaryCategory.toLabeled("primaryCategory")
	if err != nil {
		return domain.ClassificationResult{}, err
	}

	return domain.ClassificationResult{
		Actor:           actor,
		TeamType:        domain.TeamType{LabeledConfidence: teamType, Category: strings.TrimSpace(parsed.TeamType.Category)},
		PrimaryCategory: primary,
		Excerpt:         parsed.Excerpt,
		Reasoning: domain.Reasoning{
			ActorReason: parsed.Reasoning.ActorReason,
			TypeReason:  parsed.Reasoning.TypeReason,
			IsPositive:  parsed.Reasoning.IsPositive,
		},
		IsRelevant: true,
	}, nil
}

// toLabeled keeps the oracle's confidence untouched but refuses values
// outside 0..100 or a missing label.
func (l oracleLabel) toLabeled(dim string) (domain.LabeledConfidence, error) {
	label := strings.TrimSpace(l.Label)
	if label == "" {
		return domain.LabeledConfidence{}, fmt.Errorf("%w: %s label missing", ErrNoResult, dim)
	}
	if l.Confidence == nil {
		return domain.LabeledConfidence{}, fmt.Errorf("%w: %s confidence missing", ErrNoResult, dim)
	}
	conf := *l.Confidence
	if conf < 0 || conf > 100 {
		return domain.LabeledConfidence{}, fmt.Errorf("%w: %s confidence %d out of range", ErrNoResult, dim, conf)
	}
	return domain.LabeledConfidence{
		Label:        label,
		Confidence:   conf,
		Alternatives: l.Alternatives,
		Candidates:   []domain.Candidate{{Label: label, Confidence: conf}},
	}, nil
}

// FirstObject returns the first brace-balanced substring of s, skipping braces
// inside JSON string literals.
func FirstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
