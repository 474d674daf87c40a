package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripCodeFence 去掉模型偶尔包裹的 ```json ... ``` 围栏
// stripCodeFence removes a surrounding ```json fence that models sometimes add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// 语言标记，例如 json
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParsePlanning 解析并校验整理结果：四个键必须全部存在
// ParsePlanning decodes an organize response and requires all four keys to be present.
func ParsePlanning(text string) (PlanningResult, error) {
	body := stripCodeFence(text)
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return PlanningResult{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, key := range []string{"themes", "actionItems", "opportunities", "summary"} {
		v, ok := raw[key]
		if !ok || string(v) == "null" {
			return PlanningResult{}, fmt.Errorf("%w: missing key %q", ErrMalformed, key)
		}
	}
	var out PlanningResult
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return PlanningResult{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out.Themes = nonNilStrings(out.Themes)
	out.ActionItems = nonNilStrings(out.ActionItems)
	out.Opportunities = nonNilStrings(out.Opportunities)
	return out, nil
}

// ParseBrainstorm 解析头脑风暴结果
// ParseBrainstorm decodes a brainstorm response. Five items are requested but any
// count of at least one is accepted. Both a bare array and an object wrapping the
// array (`{"ideas": [...]}`) are understood. Items without concept or reasoning are
// dropped; complexity is normalized case-insensitively with unknown values mapped
// to Medium.
func ParseBrainstorm(text string) ([]BrainstormIdea, error) {
	body := stripCodeFence(text)
	var items []map[string]any
	if strings.HasPrefix(body, "{") {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal([]byte(body), &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		var inner json.RawMessage
		for _, key := range []string{"ideas", "storm", "directions", "items"} {
			if v, ok := wrapped[key]; ok {
				inner = v
				break
			}
		}
		if inner == nil {
			return nil, fmt.Errorf("%w: no idea list in object", ErrMalformed)
		}
		body = string(inner)
	}
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	out := make([]BrainstormIdea, 0, len(items))
	for _, item := range items {
		concept := strings.TrimSpace(stringField(item, "concept"))
		reasoning := strings.TrimSpace(stringField(item, "reasoning"))
		if concept == "" || reasoning == "" {
			continue
		}
		out = append(out, BrainstormIdea{
			Concept:    concept,
			Reasoning:  reasoning,
			Complexity: NormalizeComplexity(stringField(item, "complexity")),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable ideas", ErrMalformed)
	}
	return out, nil
}

// NormalizeComplexity 大小写不敏感地映射到 Low/Medium/High，未知值为 Medium
func NormalizeComplexity(s string) Complexity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return ComplexityLow
	case "high":
		return ComplexityHigh
	default:
		return ComplexityMedium
	}
}

// ParseReview 回顾为自由文本，只要求非空
func ParseReview(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty review", ErrMalformed)
	}
	return text, nil
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
