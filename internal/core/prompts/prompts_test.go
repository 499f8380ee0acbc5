package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	lib, err := Load("", "hr_formal")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if lib.Active() != "hr_formal" {
		t.Errorf("active = %q, want hr_formal", lib.Active())
	}

	prompt := lib.PolicyPrompt("Employees may take 21 days of annual leave.")
	if !strings.Contains(prompt, "21 days of annual leave") {
		t.Errorf("policy prompt does not embed context:\n%s", prompt)
	}
	if strings.Contains(prompt, "{context}") {
		t.Errorf("policy prompt still contains placeholder")
	}
}

func TestLoad_UnknownPersona(t *testing.T) {
	if _, err := Load("", "nonexistent"); err == nil {
		t.Fatal("expected error for unknown persona")
	}
}

func TestLoad_YAMLOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personas.yaml")
	raw := `
personas:
  - name: hr_formal
    policy: "Custom policy prompt. Context: {context}"
    web: "Custom web prompt. Context: {context}"
    decline: "Custom decline prompt."
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	lib, err := Load(path, "hr_formal")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := lib.PolicyPrompt("ctx"); got != "Custom policy prompt. Context: ctx" {
		t.Errorf("policy prompt = %q", got)
	}
	if got := lib.DeclinePrompt(); got != "Custom decline prompt." {
		t.Errorf("decline prompt = %q", got)
	}
}

func TestLoad_YAMLAddsPersona(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personas.yaml")
	raw := `
personas:
  - name: pirate
    policy: "Arr. {context}"
    web: "Arr web. {context}"
    decline: "Arr, no idea."
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	lib, err := Load(path, "pirate")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := lib.WebPrompt("x"); got != "Arr web. x" {
		t.Errorf("web prompt = %q", got)
	}
}

func TestAllDefaultPersonasComplete(t *testing.T) {
	for _, p := range defaultPersonas {
		if p.Policy == "" || p.Web == "" || p.Decline == "" {
			t.Errorf("persona %q has an empty template", p.Name)
		}
		if !strings.Contains(p.Policy, "{context}") {
			t.Errorf("persona %q policy template lacks context placeholder", p.Name)
		}
		if !strings.Contains(p.Web, "{context}") {
			t.Errorf("persona %q web template lacks context placeholder", p.Name)
		}
	}
}
