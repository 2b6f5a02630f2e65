package ai

import "strings"

// ExtractJSONCandidate digs a JSON object out of model output that may be
// wrapped in markdown code fences or surrounded by prose. Returns the
// candidate bytes and whether anything object-shaped was found; the caller
// still has to parse and validate it.
func ExtractJSONCandidate(content string) ([]byte, bool) {
	s := strings.TrimSpace(content)

	// ```json ... ``` or plain ``` fences
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return []byte(s), true
	}

	// Last resort: widest brace span inside surrounding prose.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return []byte(s[start : end+1]), true
	}
	return nil, false
}

// ParseAnalysis maps a validated JSON object onto Analysis, defaulting each
// field independently when absent.
func ParseAnalysis(obj map[string]any) Analysis {
	out := Analysis{
		Summary:         "No summary available.",
		PlainEnglish:    "Unable to generate explanation.",
		Abnormalities:   []string{},
		Recommendations: []string{},
	}
	if s, ok := obj["summary"].(string); ok && s != "" {
		out.Summary = s
	}
	if s, ok := obj["plainEnglish"].(string); ok && s != "" {
		out.PlainEnglish = s
	}
	out.Abnormalities = stringSlice(obj["abnormalities"])
	out.Recommendations = stringSlice(obj["recommendations"])
	return out
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
