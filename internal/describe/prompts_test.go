package describe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	t.Run("alt text substitutes language", func(t *testing.T) {
		p := &Payload{Task: TaskAltText, Image: []byte("x")}
		got, err := buildPrompt(p, Options{Language: "de"})
		if err != nil {
			t.Fatalf("buildPrompt: %v", err)
		}
		if !strings.Contains(got, `"de"`) {
			t.Errorf("prompt missing language: %s", got)
		}
		if strings.Contains(got, "{lang}") {
			t.Error("placeholder left unsubstituted")
		}
	})

	t.Run("language defaults to en", func(t *testing.T) {
		p := &Payload{Task: TaskAltText, Image: []byte("x")}
		got, err := buildPrompt(p, Options{})
		if err != nil {
			t.Fatalf("buildPrompt: %v", err)
		}
		if !strings.Contains(got, `"en"`) {
			t.Errorf("prompt missing default language: %s", got)
		}
	})

	t.Run("mathml substitutes version", func(t *testing.T) {
		p := &Payload{Task: TaskMathML, Image: []byte("x")}
		got, err := buildPrompt(p, Options{MathMLVersion: "mathml-4"})
		if err != nil {
			t.Fatalf("buildPrompt: %v", err)
		}
		if !strings.Contains(got, "mathml-4") {
			t.Errorf("prompt missing version: %s", got)
		}
	})

	t.Run("markup payload uses markup template", func(t *testing.T) {
		p := &Payload{Task: TaskAltText, Markup: "<math/>"}
		got, err := buildPrompt(p, Options{})
		if err != nil {
			t.Fatalf("buildPrompt: %v", err)
		}
		if !strings.Contains(got, "MathML markup") {
			t.Errorf("expected markup template, got: %s", got)
		}
	})

	t.Run("hint and context appended", func(t *testing.T) {
		p := &Payload{
			Task:    TaskMathML,
			Image:   []byte("x"),
			Hint:    "existing alt",
			Context: `[{"P":"before"}]`,
		}
		got, err := buildPrompt(p, Options{MathMLVersion: "mathml-3"})
		if err != nil {
			t.Fatalf("buildPrompt: %v", err)
		}
		if !strings.Contains(got, "existing alt") {
			t.Error("hint not appended")
		}
		if !strings.Contains(got, `[{"P":"before"}]`) {
			t.Error("context not appended")
		}
	})

	t.Run("unknown task", func(t *testing.T) {
		p := &Payload{Task: Task("bogus"), Image: []byte("x")}
		if _, err := buildPrompt(p, Options{}); err == nil {
			t.Fatal("expected error for unknown task")
		}
	})
}

func TestCustomPrompt(t *testing.T) {
	t.Run("inline text", func(t *testing.T) {
		p := &Payload{Task: TaskAltText, Image: []byte("x")}
		got, err := buildPrompt(p, Options{Prompt: "Describe in {lang}.", Language: "fr"})
		if err != nil {
			t.Fatalf("buildPrompt: %v", err)
		}
		if got != "Describe in fr." {
			t.Errorf("prompt = %q", got)
		}
	})

	t.Run("prompt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompt.txt")
		if err := os.WriteFile(path, []byte("From a file, {lang}.\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		p := &Payload{Task: TaskAltText, Image: []byte("x")}
		got, err := buildPrompt(p, Options{Prompt: path, Language: "es"})
		if err != nil {
			t.Fatalf("buildPrompt: %v", err)
		}
		if got != "From a file, es." {
			t.Errorf("prompt = %q", got)
		}
	})

	t.Run("unknown placeholders stripped", func(t *testing.T) {
		got := stripUnknownPlaceholders("keep {lang} and {mathml_version}, drop {mystery}")
		if got != "keep {lang} and {mathml_version}, drop " {
			t.Errorf("stripped = %q", got)
		}
	})
}
