package interview

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	keyInterviewerQuestion = "interviewer_question"
	keyRespondentAnswer    = "respondent_answer"
	keyQ                   = "q"
	keyA                   = "a"
)

// Normalize converts a decoded JSON/YAML document into canonical interviews.
//
// The document may be a single interview (a list of turn mappings), a list of
// interviews, or a mapping wrapping either under "interviews" or "interview".
func Normalize(data any) ([]Interview, error) {
	return normalizeDocument(data, "interviews", "interview")
}

func normalizeDocument(data any, context, interviewContext string) ([]Interview, error) {
	raw, err := coerceInterviews(data, context)
	if err != nil {
		return nil, err
	}

	interviews := make([]Interview, 0, len(raw))
	for idx, item := range raw {
		iv, err := normalizeInterview(item, fmt.Sprintf("%s %d", interviewContext, idx))
		if err != nil {
			return nil, err
		}
		interviews = append(interviews, iv)
	}
	return interviews, nil
}

// NormalizeTurn maps one turn record in either key convention to a Turn.
// Partial presence of a key pair is an error rather than a silent default.
func NormalizeTurn(record any, context string) (Turn, error) {
	m, ok := asMap(record)
	if !ok {
		return Turn{}, validationErrorf(context, "must be a dict with interview keys.")
	}

	_, hasIQ := m[keyInterviewerQuestion]
	_, hasRA := m[keyRespondentAnswer]
	if hasIQ || hasRA {
		if !hasIQ || !hasRA {
			return Turn{}, validationErrorf(context, "must include %s and %s.", keyInterviewerQuestion, keyRespondentAnswer)
		}
		return Turn{Question: stringify(m[keyInterviewerQuestion]), Answer: stringify(m[keyRespondentAnswer])}, nil
	}

	_, hasQ := m[keyQ]
	_, hasA := m[keyA]
	if hasQ || hasA {
		if !hasQ || !hasA {
			return Turn{}, validationErrorf(context, "must include %s and %s.", keyQ, keyA)
		}
		return Turn{Question: stringify(m[keyQ]), Answer: stringify(m[keyA])}, nil
	}

	return Turn{}, validationErrorf(context, "missing required keys (%s/%s or %s/%s).",
		keyInterviewerQuestion, keyRespondentAnswer, keyQ, keyA)
}

func normalizeInterview(data any, context string) (Interview, error) {
	items, ok := data.([]any)
	if !ok {
		return nil, validationErrorf(context, "must be a list of turns.")
	}

	iv := make(Interview, 0, len(items))
	for idx, item := range items {
		turn, err := NormalizeTurn(item, fmt.Sprintf("%s turn %d", context, idx))
		if err != nil {
			return nil, err
		}
		iv = append(iv, turn)
	}
	return iv, nil
}

// coerceInterviews disambiguates the document shape structurally: a list of
// mappings is one interview, a list of lists is many, anything else fails.
func coerceInterviews(data any, context string) ([]any, error) {
	if m, ok := asMap(data); ok {
		switch {
		case hasKey(m, "interviews"):
			data = m["interviews"]
		case hasKey(m, "interview"):
			data = m["interview"]
		default:
			return nil, validationErrorf(context, "must be a list of interviews or turns.")
		}
	}

	items, ok := data.([]any)
	if !ok {
		return nil, validationErrorf(context, "must be a list of interviews or turns.")
	}
	if len(items) == 0 {
		return nil, nil
	}

	allMaps, allLists := true, true
	for _, item := range items {
		if _, ok := asMap(item); !ok {
			allMaps = false
		}
		if _, ok := item.([]any); !ok {
			allLists = false
		}
	}

	switch {
	case allMaps:
		return []any{items}, nil
	case allLists:
		return items, nil
	default:
		return nil, validationErrorf(context, "must be a list of interviews or turns.")
	}
}

func validationErrorf(context, format string, args ...any) error {
	return &ValidationError{Context: context, Message: fmt.Sprintf(format, args...)}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
