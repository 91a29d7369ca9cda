package judge

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// parseStrategy tries to recover a score mapping from judge text.
type parseStrategy func(text string) (map[string]any, bool)

// textStrategies run in order; the first one that yields a mapping wins.
var textStrategies = []parseStrategy{
	parseWholeJSON,
	parseEmbeddedJSON,
	parseKeyValues,
}

var (
	jsonBlobPattern = regexp.MustCompile(`(?s)\{.*\}`)
	feedbackPattern = regexp.MustCompile(`(?s)feedback\s*[:=]\s*(.*)`)
	aspectPatterns  = func() map[string]*regexp.Regexp {
		m := make(map[string]*regexp.Regexp, len(Aspects))
		for _, aspect := range Aspects {
			m[aspect] = regexp.MustCompile(aspect + `\s*[:=]\s*([0-9]*\.?[0-9]+)`)
		}
		return m
	}()
)

// Parse converts raw judge output into a Judgment. It accepts a Judgment, a
// score mapping, or text, and never fails: unreadable input degrades to an
// all-zero Judgment carrying diagnostic feedback.
func Parse(raw any) Judgment {
	switch v := raw.(type) {
	case Judgment:
		return v
	case *Judgment:
		if v != nil {
			return *v
		}
		return zeroJudgment(FeedbackNoJudgment)
	case map[string]any:
		return normalize(v)
	case map[string]float64:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[k] = val
		}
		return normalize(m)
	case nil:
		return zeroJudgment(FeedbackNoJudgment)
	case string:
		return ParseText(v)
	case []byte:
		return ParseText(string(v))
	default:
		return ParseText(fmt.Sprint(v))
	}
}

// ParseText runs the text strategies over raw model output.
func ParseText(text string) Judgment {
	text = strings.TrimSpace(text)
	if text == "" {
		return zeroJudgment(FeedbackNoJudgment)
	}

	for _, strategy := range textStrategies {
		if payload, ok := strategy(text); ok {
			return normalize(payload)
		}
	}
	return zeroJudgment(FeedbackParseFailed)
}

func parseWholeJSON(text string) (map[string]any, bool) {
	return decodeObject(text)
}

func parseEmbeddedJSON(text string) (map[string]any, bool) {
	blob := jsonBlobPattern.FindString(text)
	if blob == "" {
		return nil, false
	}
	return decodeObject(blob)
}

func parseKeyValues(text string) (map[string]any, bool) {
	payload := make(map[string]any)
	for _, aspect := range Aspects {
		if m := aspectPatterns[aspect].FindStringSubmatch(text); m != nil {
			payload[aspect] = m[1]
		}
	}
	if m := feedbackPattern.FindStringSubmatch(text); m != nil {
		payload["feedback"] = strings.TrimSpace(m[1])
	}
	return payload, len(payload) > 0
}

func decodeObject(text string) (map[string]any, bool) {
	var payload any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, false
	}
	m, ok := payload.(map[string]any)
	return m, ok
}

func normalize(payload map[string]any) Judgment {
	j := Judgment{
		Accuracy:     score(payload[AspectAccuracy]),
		Faithfulness: score(payload[AspectFaithfulness]),
		Tone:         score(payload[AspectTone]),
		Style:        score(payload[AspectStyle]),
		Feedback:     FeedbackMissing,
	}
	if fb, ok := payload["feedback"]; ok && fb != nil {
		if s := fmt.Sprint(fb); s != "" {
			j.Feedback = s
		}
	}
	return j
}

// score casts v to a float clamped into [0, 1]; uncastable values are 0.
func score(v any) float64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) {
		return 0
	}
	return math.Max(0, math.Min(1, f))
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
