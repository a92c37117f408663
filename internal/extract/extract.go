// Package extract recovers one schema-valid JSON object from free model text.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/applyo/prospector/internal/apperr"
	"github.com/applyo/prospector/internal/task"
)

const (
	ReasonEmpty       = "Empty response from AI model"
	ReasonNoJSON      = "No valid JSON found in response"
	ReasonInvalidJSON = "Invalid JSON in response"
)

var (
	openFence  = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \t]*\r?\n?")
	closeFence = regexp.MustCompile("\r?\n?[ \t]*```$")
)

// Failure is returned for every extraction problem. RawText is the model
// text exactly as received.
type Failure struct {
	Reason  string
	RawText string
	Detail  string
}

func (f *Failure) Error() string {
	if f.Detail != "" && f.Detail != f.Reason {
		return f.Reason + ": " + f.Detail
	}
	return f.Reason
}

func (f *Failure) Unwrap() error {
	return apperr.New(apperr.ErrExtraction, f.Reason)
}

// AsFailure returns the *Failure in err's chain, if any.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}

// Result is a validated object holding exactly the declared fields.
type Result struct {
	Fields map[string]any
}

// String returns a string field, "" when absent.
func (r *Result) String(name string) string {
	s, _ := r.Fields[name].(string)
	return s
}

// Strings returns an array-of-strings field.
func (r *Result) Strings(name string) []string {
	s, _ := r.Fields[name].([]string)
	return s
}

// Objects returns an array-of-objects field.
func (r *Result) Objects(name string) []map[string]string {
	o, _ := r.Fields[name].([]map[string]string)
	return o
}

// Decode copies the result into v through its JSON form.
func (r *Result) Decode(v any) error {
	data, err := json.Marshal(r.Fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Extract runs, in order: trim, strip a surrounding code fence, cut from the
// first '{' to the last '}', parse, then validate against schema. Arrays longer
// than their max_items are truncated.
func Extract(raw string, schema task.Schema) (*Result, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, &Failure{Reason: ReasonEmpty, RawText: raw}
	}

	text = stripFence(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return nil, &Failure{Reason: ReasonNoJSON, RawText: raw}
	}
	candidate := text[start : end+1]

	decoder := json.NewDecoder(bytes.NewReader([]byte(candidate)))
	var obj map[string]any
	if err := decoder.Decode(&obj); err != nil {
		return nil, &Failure{Reason: ReasonInvalidJSON, RawText: raw, Detail: err.Error()}
	}
	if decoder.More() {
		return nil, &Failure{Reason: ReasonInvalidJSON, RawText: raw, Detail: "trailing data after JSON object"}
	}

	fields, err := validateObject(obj, schema.Fields)
	if err != nil {
		reason := "Invalid JSON structure: " + err.Error()
		return nil, &Failure{Reason: reason, RawText: raw, Detail: err.Error()}
	}
	return &Result{Fields: fields}, nil
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = openFence.ReplaceAllString(text, "")
	text = closeFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func validateObject(obj map[string]any, fields []task.Field) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, present := obj[f.Name]
		if !present || v == nil {
			if f.Required {
				return nil, missing(f)
			}
			continue
		}

		switch f.Type {
		case task.TypeString:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be a string", f.Name)
			}
			out[f.Name] = s
		case task.TypeArray:
			items, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("%s must be an array", f.Name)
			}
			if f.MaxItems > 0 && len(items) > f.MaxItems {
				items = items[:f.MaxItems]
			}
			val, err := validateArray(f, items)
			if err != nil {
				return nil, err
			}
			out[f.Name] = val
		default:
			return nil, fmt.Errorf("%s has unsupported type %q", f.Name, f.Type)
		}
	}
	return out, nil
}

func validateArray(f task.Field, items []any) (any, error) {
	switch f.Items {
	case task.TypeString:
		strs := make([]string, 0, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", f.Name, i)
			}
			strs = append(strs, s)
		}
		return strs, nil
	case task.TypeObject:
		objs := make([]map[string]string, 0, len(items))
		for i, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be an object", f.Name, i)
			}
			validated, err := validateObject(m, f.Fields)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", f.Name, i, err)
			}
			obj := make(map[string]string, len(validated))
			for k, v := range validated {
				s, ok := v.(string)
				if !ok {
					return nil, fmt.Errorf("%s[%d].%s must be a string", f.Name, i, k)
				}
				obj[k] = s
			}
			objs = append(objs, obj)
		}
		return objs, nil
	default:
		return nil, fmt.Errorf("%s has unsupported item type %q", f.Name, f.Items)
	}
}

func missing(f task.Field) error {
	if f.Type == task.TypeArray {
		return fmt.Errorf("missing %s array", f.Name)
	}
	return fmt.Errorf("missing %s field", f.Name)
}
