package describe

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Prompt templates understand two placeholders: {lang} and {mathml_version}.
// Any other {placeholder} in a custom prompt is stripped before use.

const altTextPrompt = `You are helping make a document accessible. Look at the attached image,
which is a single figure cut out of a document page, and write concise
alternate text for it in language "{lang}". Describe what the image conveys,
not how it looks. Do not start with phrases like "Image of" or "Picture of".
Reply with the alternate text only, no quotes and no markup.`

const altTextMarkupPrompt = `You are helping make a document accessible. The following MathML markup
represents a formula. Write a short natural-language reading of the formula
in language "{lang}", suitable as alternate text for screen readers. Reply
with the description only, no quotes and no markup.`

const tableSummaryPrompt = `You are helping make a document accessible. The attached image shows a
table cut out of a document page. Write a short summary of the table in
language "{lang}": what it is about, what the rows and columns represent,
and any obvious trend. Reply with the summary text only.`

const mathMLPrompt = `The attached image shows a mathematical formula cut out of a document
page. Transcribe the formula as {mathml_version} markup. Reply with a single
well-formed <math> element and nothing else: no code fences, no commentary.`

const contextPreamble = `For context, here are the tags surrounding the element, in reading order,
as JSON. The entry marked as the target is the element you are describing:`

var placeholderRE = regexp.MustCompile(`\{([^{}]+)\}`)

// buildPrompt assembles the instruction for one payload.
func buildPrompt(p *Payload, opts Options) (string, error) {
	tmpl, err := promptTemplate(p, opts)
	if err != nil {
		return "", err
	}

	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	prompt := strings.ReplaceAll(tmpl, "{lang}", lang)
	prompt = strings.ReplaceAll(prompt, "{mathml_version}", opts.MathMLVersion)

	if p.Hint != "" {
		prompt += fmt.Sprintf("\nExisting description of the element, which may help: %q", p.Hint)
	}
	if p.Context != "" {
		prompt += "\n" + contextPreamble + "\n" + p.Context
	}
	return prompt, nil
}

func promptTemplate(p *Payload, opts Options) (string, error) {
	if opts.Prompt != "" {
		return loadCustomPrompt(opts.Prompt)
	}
	switch p.Task {
	case TaskAltText:
		if p.Markup != "" {
			return altTextMarkupPrompt, nil
		}
		return altTextPrompt, nil
	case TaskTableSummary:
		return tableSummaryPrompt, nil
	case TaskMathML:
		return mathMLPrompt, nil
	}
	return "", fmt.Errorf("no prompt for task %q", p.Task)
}

// loadCustomPrompt accepts either the prompt text itself or a path to a file
// containing it, and strips unknown placeholders either way.
func loadCustomPrompt(pathOrPrompt string) (string, error) {
	text := pathOrPrompt
	if fi, err := os.Stat(pathOrPrompt); err == nil && !fi.IsDir() {
		b, err := os.ReadFile(pathOrPrompt)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file: %w", err)
		}
		text = strings.TrimSpace(string(b))
	}
	return stripUnknownPlaceholders(text), nil
}

func stripUnknownPlaceholders(prompt string) string {
	return placeholderRE.ReplaceAllStringFunc(prompt, func(m string) string {
		name := placeholderRE.FindStringSubmatch(m)[1]
		if name == "lang" || name == "mathml_version" {
			return m
		}
		return ""
	})
}
