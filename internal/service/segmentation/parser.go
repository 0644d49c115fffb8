// internal/service/segmentation/parser.go
package segmentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"wa-insights-service/internal/domain/segment"

	"github.com/go-playground/validator/v10"
)

const (
	missingReasoning      = "No reasoning provided"
	missingCharacteristic = "unspecified"
)

var errNoJSONObject = errors.New("no JSON object in classifier output")

type classifierOutput struct {
	Segment         string   `json:"segment" validate:"required,oneof=VIP_CUSTOMER REGULAR_CUSTOMER POTENTIAL_CUSTOMER SUPPORT_SEEKER PRICE_SENSITIVE INACTIVE_CUSTOMER NEW_CUSTOMER"`
	Confidence      *float64 `json:"confidence" validate:"required,gte=0,lte=1"`
	Reasoning       string   `json:"reasoning"`
	Characteristics []string `json:"characteristics"`
}

type parser struct {
	validate *validator.Validate
}

func newParser() *parser {
	return &parser{validate: validator.New()}
}

// parse extracts and validates the classifier answer. Any error means the caller
// should fall back to the fixed default result.
func (p *parser) parse(raw string) (*segment.Result, error) {
	obj, err := firstJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var out classifierOutput
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return nil, fmt.Errorf("failed to decode classifier output: %w", err)
	}
	out.Segment = strings.ToUpper(strings.TrimSpace(out.Segment))

	if err := p.validate.Struct(&out); err != nil {
		return nil, fmt.Errorf("invalid classifier output: %w", err)
	}

	res := &segment.Result{
		Segment:         segment.Label(out.Segment),
		Confidence:      *out.Confidence,
		Reasoning:       strings.TrimSpace(out.Reasoning),
		Characteristics: compact(out.Characteristics),
	}
	if res.Reasoning == "" {
		res.Reasoning = missingReasoning
	}
	if len(res.Characteristics) == 0 {
		res.Characteristics = []string{missingCharacteristic}
	}
	return res, nil
}

// firstJSONObject returns the first balanced {...} block, skipping braces inside strings.
func firstJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", errNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", errNoJSONObject
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
