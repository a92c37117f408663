// Package prompt renders the instruction text for one task.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/abadojack/whatlanggo"

	"github.com/applyo/prospector/internal/task"
)

const (
	// NotProvided stands in for an input the caller did not send.
	NotProvided = "not provided"

	minLangChars = 40
)

// Prompt is the rendered system and user text for one generation session.
type Prompt struct {
	System string
	User   string
}

// Build renders the kind's template with the given inputs and appends the
// tool guidance and the output contract. It never calls a backend.
func Build(spec *task.Spec, inputs task.Inputs) (Prompt, error) {
	tmpl, err := parse(spec, inputs)
	if err != nil {
		return Prompt{}, err
	}

	var body strings.Builder
	if err := tmpl.Execute(&body, nil); err != nil {
		return Prompt{}, fmt.Errorf("failed to render prompt for %s: %w", spec.Name, err)
	}

	var prompt strings.Builder
	prompt.WriteString(strings.TrimSpace(body.String()))
	prompt.WriteString("\n")
	writeTools(&prompt, spec)
	writeOutputFormat(&prompt, spec.Output)

	return Prompt{System: spec.System, User: prompt.String()}, nil
}

// Check parses the kind's template so a broken kind fails at startup.
func Check(spec *task.Spec) error {
	_, err := parse(spec, task.Inputs{})
	return err
}

func parse(spec *task.Spec, inputs task.Inputs) (*template.Template, error) {
	funcs := template.FuncMap{
		"input": func(name string) string { return inputValue(inputs, name) },
		"has": func(name string) bool {
			_, ok := inputs.Lookup(name)
			return ok
		},
		"lang": detectLanguage,
	}
	tmpl, err := template.New(spec.Name).Funcs(funcs).Parse(spec.Prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt for %s: %w", spec.Name, err)
	}
	return tmpl, nil
}

// inputValue keeps "absent" and "empty" distinguishable in the prompt.
func inputValue(inputs task.Inputs, name string) string {
	v, ok := inputs.Lookup(name)
	if !ok {
		return NotProvided
	}
	if v == "" {
		return `"" (empty)`
	}
	return v
}

// detectLanguage names the language of free text, or "" when the text is
// too short or the detector is unsure.
func detectLanguage(text string) string {
	if len([]rune(strings.TrimSpace(text))) < minLangChars {
		return ""
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.String()
}

func writeTools(b *strings.Builder, spec *task.Spec) {
	if len(spec.Tools) == 0 {
		return
	}
	b.WriteString("\n=== TOOLS ===\n")
	b.WriteString("Available tools: " + strings.Join(spec.Tools, ", ") + "\n")
	switch {
	case spec.MinSearches > 0 && spec.MaxSearches > 0:
		fmt.Fprintf(b, "Run between %d and %d searches before answering.\n", spec.MinSearches, spec.MaxSearches)
	case spec.MaxSearches > 0:
		fmt.Fprintf(b, "Run at most %d searches before answering.\n", spec.MaxSearches)
	}
	b.WriteString("Call several tools in one turn when the calls do not depend on each other.\n")
	b.WriteString("Do not stop after using the tools: always finish with the final answer.\n")
}

func writeOutputFormat(b *strings.Builder, schema task.Schema) {
	b.WriteString("\n=== OUTPUT FORMAT ===\n")
	b.WriteString("Return ONLY one JSON object with these fields:\n")
	for _, f := range schema.Fields {
		writeField(b, f, "- ")
	}
	b.WriteString("\nRules:\n")
	b.WriteString("- Return ONLY the JSON object, nothing else\n")
	b.WriteString("- No markdown code blocks and no commentary\n")
	b.WriteString("- Never exceed the maximum number of items for an array\n")
	b.WriteString("- The JSON must be valid and parseable\n")
}

func writeField(b *strings.Builder, f task.Field, indent string) {
	b.WriteString(indent + f.Name + ": " + describeType(f))
	if f.Required {
		b.WriteString(", required")
	}
	if f.MaxItems > 0 {
		fmt.Fprintf(b, ", up to %d items", f.MaxItems)
	}
	if f.Description != "" {
		b.WriteString(" (" + f.Description + ")")
	}
	b.WriteString("\n")
	for _, sub := range f.Fields {
		writeField(b, sub, "  "+indent)
	}
}

func describeType(f task.Field) string {
	if f.Type == task.TypeArray {
		if f.Items == task.TypeObject {
			return "array of objects"
		}
		return "array of " + f.Items + "s"
	}
	return f.Type
}
