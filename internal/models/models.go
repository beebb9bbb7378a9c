// Package models holds the data contracts shared by the dispatcher,
// aggregator and convergence controller. Everything here is plain data:
// values are created once per round and never mutated afterwards.
package models

import "time"

// Label is the three-way entailment classification for a claim pair.
type Label string

const (
	LabelEntailment    Label = "entailment"
	LabelNeutral       Label = "neutral"
	LabelContradiction Label = "contradiction"
)

// SessionState is the lifecycle state of an iteration session.
type SessionState string

const (
	StateRunning          SessionState = "running"
	StateConverged        SessionState = "converged"
	StateMaxRoundsReached SessionState = "max_rounds_reached"
)

type Recommendation string

const (
	RecommendContinueRounds Recommendation = "continue_rounds"
	RecommendRunRAG         Recommendation = "run_rag"
)

// SummaryPoint is one entry of a backend's structured answer.
type SummaryPoint struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Confidence string `json:"confidence,omitempty"`
}

// StructuredAnswer is the schema-validated payload a backend returns in
// structured mode.
type StructuredAnswer struct {
	SummaryPoints       []SummaryPoint `json:"summary_points"`
	DetailedExplanation string         `json:"detailed_explanation,omitempty"`
	Evidence            []string       `json:"evidence,omitempty"`
	ReproducibleExample string         `json:"reproducible_example,omitempty"`
}

// ResponseMeta carries per-call traceability data.
type ResponseMeta struct {
	ModelID        string    `json:"model_id"`
	Backend        string    `json:"backend,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	ModelName      string    `json:"model_name,omitempty"`
	PromptID       string    `json:"prompt_id,omitempty"`
	PromptVersion  string    `json:"prompt_version,omitempty"`
	PromptHash     string    `json:"prompt_hash,omitempty"`
	PromptUsed     string    `json:"prompt_used,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
	LatencySeconds float64   `json:"latency_s,omitempty"`
	TokensEstimate int       `json:"usage_tokens_estimate,omitempty"`
	TimedOut       bool      `json:"timeout,omitempty"`
}

// ModelResponse is one backend's outcome for a round. Exactly one of the
// failure fields is set on failure; Parsed is only set when structured
// decoding (and schema validation, if configured) succeeded. A response
// with ParseError still carries the raw text.
type ModelResponse struct {
	ModelID    string            `json:"model_id"`
	Raw        string            `json:"raw,omitempty"`
	Parsed     *StructuredAnswer `json:"parsed,omitempty"`
	ParseError string            `json:"parse_error,omitempty"`
	Error      string            `json:"error,omitempty"`
	Meta       ResponseMeta      `json:"meta"`
}

// MultiResult is the order-preserving result set of one dispatch:
// Responses[i] corresponds to the i-th non-empty requested backend id.
type MultiResult struct {
	Question      string          `json:"question"`
	Responses     []ModelResponse `json:"responses"`
	PromptID      string          `json:"prompt_id"`
	PromptVersion string          `json:"prompt_version"`
}

// Point is one atomic claim extracted from a structured answer. Its ID is
// unique within a round ("{model_id}_{local_id}").
type Point struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// PointRef identifies a point inside an NLI or cross-eval result.
type PointRef struct {
	ID      string `json:"id"`
	ModelID string `json:"model_id"`
}

type NLIResult struct {
	ClusterID string   `json:"cluster_id"`
	A         PointRef `json:"a"`
	B         PointRef `json:"b"`
	Label     Label    `json:"label"`
}

type CrossEvalResult struct {
	ClusterID  string   `json:"cluster_id"`
	A          PointRef `json:"a"`
	B          PointRef `json:"b"`
	Judgement  string   `json:"judgement"`
	Reason     string   `json:"reason"`
	Confidence string   `json:"confidence"`
}

type ConfirmedCluster struct {
	ClusterID string   `json:"cluster_id"`
	Points    []Point  `json:"points"`
	Models    []string `json:"models"`
}

type Contradiction struct {
	ClusterID string  `json:"cluster_id"`
	Points    []Point `json:"points"`
	Reason    string  `json:"reason"`
}

// Report is the consensus output of one aggregation pass.
type Report struct {
	Confirmed      []ConfirmedCluster `json:"confirmed"`
	Contradictions []Contradiction    `json:"contradictions"`
	Followups      []string           `json:"followups"`
	Recommendation Recommendation     `json:"recommendation"`
	CrossEval      []CrossEvalResult  `json:"cross_eval"`
	NLI            []NLIResult        `json:"nli"`
}

// Round is one dispatch-and-aggregate cycle. Rounds are appended to a
// session and never edited.
type Round struct {
	Round          int          `json:"round"`
	Multi          *MultiResult `json:"multi"`
	Report         *Report      `json:"report"`
	Contradictions int          `json:"contradictions"`
	AgreementScore float64      `json:"agreement_score"`
}

// Session is the durable record of a question's full iteration history.
type Session struct {
	SessionID   string       `json:"session_id"`
	Question    string       `json:"question"`
	Models      []string     `json:"models"`
	Rounds      []Round      `json:"rounds"`
	State       SessionState `json:"state,omitempty"`
	FinalReport *Report      `json:"final_report,omitempty"`
}
