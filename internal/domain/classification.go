package domain

// Candidate is one label a classifier considered for a dimension.
type Candidate struct {
	Label      string `json:"label"`
	Confidence int    `json:"confidence"`
}

// LabeledConfidence is the classifier output for a single dimension.
// Candidates holds every matched label in declaration order; Label is the first.
type LabeledConfidence struct {
	Label        string      `json:"label"`
	Confidence   int         `json:"confidence"`
	Alternatives []string    `json:"alternatives,omitempty"`
	Candidates   []Candidate `json:"candidates,omitempty"`
}

// Ambiguous is true when more than one candidate matched.
func (l LabeledConfidence) Ambiguous() bool {
	return len(l.Candidates) > 1
}

// TeamType carries the behavior label plus its grouping category.
type TeamType struct {
	LabeledConfidence
	Category string `json:"category"`
}

// Reasoning explains why the labels were picked.
type Reasoning struct {
	ActorReason string `json:"actorReason"`
	TypeReason  string `json:"typeReason"`
	IsPositive  bool   `json:"isPositive"`
}

// ClassificationResult is the shared contract of every classifier strategy.
type ClassificationResult struct {
	Actor           LabeledConfidence `json:"actor"`
	TeamType        TeamType          `json:"teamType"`
	PrimaryCategory LabeledConfidence `json:"primaryCategory"`
	Excerpt         string            `json:"excerpt"`
	Reasoning       Reasoning         `json:"reasoning"`
	IsRelevant      bool              `json:"isRelevant"`
	Strategy        string            `json:"strategy,omitempty"`
}
