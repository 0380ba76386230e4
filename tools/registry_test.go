package tools

import (
	"errors"
	"strings"
	"testing"

	"github.com/richinex/toolsuite/llm"
)

func TestWithDefaults(t *testing.T) {
	registry, err := WithDefaults()
	if err != nil {
		t.Fatalf("WithDefaults failed: %v", err)
	}

	ids := registry.IDs()
	if len(ids) != len(Defaults()) {
		t.Fatalf("expected %d tools, got %d", len(Defaults()), len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Errorf("IDs not sorted: %v", ids)
		}
	}

	img, ok := registry.Get("image-generator")
	if !ok {
		t.Fatal("image-generator not registered")
	}
	if img.Modality != llm.ModalityImage || img.Kind != KindGenerator {
		t.Errorf("unexpected image-generator tool: %+v", img)
	}

	notes, _ := registry.Get("notes")
	if notes.Kind != KindNotes {
		t.Errorf("expected notes kind, got %q", notes.Kind)
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	registry := NewRegistry()
	tool := Tool{ID: "x", Kind: KindNotes}
	if err := registry.Register(tool); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := registry.Register(tool); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestRegisterValidates(t *testing.T) {
	registry := NewRegistry()
	cases := []Tool{
		{Kind: KindNotes},
		{ID: "gen", Kind: KindGenerator},
		{ID: "odd", Kind: "calculator"},
		{ID: "video", Kind: KindGenerator, Instruction: "Film this:", Modality: "video"},
	}
	for _, tool := range cases {
		if err := registry.Register(tool); err == nil {
			t.Errorf("expected %+v to be rejected", tool)
		}
	}
}

func TestByCategoryAndDescription(t *testing.T) {
	registry, err := WithDefaults()
	if err != nil {
		t.Fatalf("WithDefaults failed: %v", err)
	}

	groups := registry.ByCategory()
	for _, tool := range groups[CategoryImage] {
		if tool.Category != CategoryImage {
			t.Errorf("tool %s in wrong group", tool.ID)
		}
	}
	if len(groups[CategoryProductivity]) != 2 {
		t.Errorf("expected 2 productivity tools, got %d", len(groups[CategoryProductivity]))
	}

	desc := registry.Description()
	if !strings.Contains(desc, CategoryWriting+":") || !strings.Contains(desc, "bulk-messaging") {
		t.Errorf("unexpected description:\n%s", desc)
	}
}

func TestResolvePrefix(t *testing.T) {
	registry, err := WithDefaults()
	if err != nil {
		t.Fatalf("WithDefaults failed: %v", err)
	}

	tool, err := registry.Resolve("blog")
	if err != nil || tool.ID != "blog-ideas" {
		t.Errorf("expected blog-ideas, got %q (%v)", tool.ID, err)
	}

	tool, err = registry.Resolve("notes")
	if err != nil || tool.ID != "notes" {
		t.Errorf("expected exact match notes, got %q (%v)", tool.ID, err)
	}

	_, err = registry.Resolve("image-")
	if !errors.Is(err, ErrAmbiguousTool) {
		t.Errorf("expected ErrAmbiguousTool, got %v", err)
	}

	if _, err := registry.Resolve("zzz"); err == nil {
		t.Error("expected error for unknown tool")
	}
	if _, err := registry.Resolve(""); err == nil {
		t.Error("expected error for empty id")
	}
}
