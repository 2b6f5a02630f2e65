package ai

import "context"

// Analysis is the normalized four-field shape we want from the model.
type Analysis struct {
	Summary         string   `json:"summary"`
	Abnormalities   []string `json:"abnormalities"`
	Recommendations []string `json:"recommendations"`
	PlainEnglish    string   `json:"plainEnglish"`
}

// ResultKind tags how the model's response was interpreted.
type ResultKind string

const (
	// KindStructured means the response parsed and validated as the
	// four-field JSON object; absent fields were defaulted.
	KindStructured ResultKind = "structured"
	// KindRawFallback means the response was prose (or malformed JSON) and
	// the whole text was kept as summary + plain-English explanation.
	// We never discard the model's words over a parse failure.
	KindRawFallback ResultKind = "raw-fallback"
)

// AnalysisResult pairs the normalized fields with how they were obtained.
type AnalysisResult struct {
	Analysis
	Kind ResultKind
	Raw  string // the model's verbatim message content
}

// Analyzer is the AI boundary the pipeline depends on. The backend is an
// untrusted oracle: implementations must absorb malformed output into the
// fallback variant and only fail on transport errors.
type Analyzer interface {
	AnalyzeReport(ctx context.Context, text string) (AnalysisResult, error)
}

// Chatter is the conversational side of the same backend. It shares the
// transport and error semantics of Analyzer but not its prompt contract.
type Chatter interface {
	Chat(ctx context.Context, message, reportContext string) (string, error)
}
