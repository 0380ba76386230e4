package llm

import (
	"strings"
	"testing"
)

func TestParseProviderType(t *testing.T) {
	cases := map[string]ProviderType{
		"gemini":    ProviderGemini,
		"Google":    ProviderGemini,
		"":          ProviderGemini,
		"gpt":       ProviderOpenAI,
		"claude":    ProviderAnthropic,
		"DEEPSEEK":  ProviderDeepSeek,
		" openai  ": ProviderOpenAI,
	}
	for in, want := range cases {
		got, err := ParseProviderType(in)
		if err != nil {
			t.Errorf("ParseProviderType(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseProviderType(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseProviderType("mystery"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestBuilderRejectsBlankKey(t *testing.T) {
	_, err := ProviderOpenAI.APIKey("   ")
	if err == nil {
		t.Fatal("expected error for blank API key")
	}
	if !strings.Contains(err.Error(), "openai") {
		t.Errorf("expected provider name in error, got %v", err)
	}
}

func TestBuilderAppliesModel(t *testing.T) {
	p, err := ProviderDeepSeek.Model(ModelDeepSeekReasoner).MaxTokens(512).Temperature(0.1).APIKey(testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "deepseek" || p.Model() != ModelDeepSeekReasoner {
		t.Errorf("unexpected provider %s/%s", p.Name(), p.Model())
	}

	p, err = ProviderAnthropic.APIKey(testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Model() != ProviderAnthropic.DefaultModel() {
		t.Errorf("expected default model, got %s", p.Model())
	}
}

func TestSupportsImages(t *testing.T) {
	if !ProviderGemini.SupportsImages() || !ProviderOpenAI.SupportsImages() {
		t.Error("expected gemini and openai to support images")
	}
	if ProviderAnthropic.SupportsImages() || ProviderDeepSeek.SupportsImages() {
		t.Error("expected anthropic and deepseek to be text only")
	}
}

func TestParseModality(t *testing.T) {
	if m, _ := ParseModality(""); m != ModalityText {
		t.Errorf("expected text for empty modality, got %s", m)
	}
	if m, _ := ParseModality("image"); m != ModalityImage {
		t.Errorf("expected image, got %s", m)
	}
	if _, err := ParseModality("video"); err == nil {
		t.Error("expected error for unknown modality")
	}
}
