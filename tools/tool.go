// Package tools provides the static catalog of tool widgets.
//
// Information Hiding:
// - Instruction prefixes for each generator tool
// - Catalog storage and lookup
// - Category grouping for navigation
package tools

import (
	"fmt"

	"github.com/richinex/toolsuite/llm"
)

// Kind identifies which core utility backs a tool.
type Kind string

const (
	// KindGenerator tools forward input to a generation provider.
	KindGenerator Kind = "generator"
	// KindNotes is the autosaving notes pad.
	KindNotes Kind = "notes"
	// KindMessaging is the bulk messaging helper.
	KindMessaging Kind = "messaging"
)

// Tool describes one widget in the suite.
type Tool struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Kind        Kind         `json:"kind"`
	Instruction string       `json:"instruction,omitempty"`
	Modality    llm.Modality `json:"modality,omitempty"`
	// AcceptsImage marks generator tools that take an input image.
	AcceptsImage bool `json:"accepts_image,omitempty"`
}

// String returns a string representation of the tool.
func (t Tool) String() string {
	return fmt.Sprintf("%s: %s", t.ID, t.Description)
}

// Validate checks that the tool is registrable.
func (t Tool) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("tool id is required")
	}
	switch t.Kind {
	case KindGenerator:
		if t.Instruction == "" {
			return fmt.Errorf("generator tool '%s' needs an instruction", t.ID)
		}
		if _, err := llm.ParseModality(string(t.Modality)); err != nil {
			return fmt.Errorf("generator tool '%s': %w", t.ID, err)
		}
	case KindNotes, KindMessaging:
	default:
		return fmt.Errorf("tool '%s' has unknown kind %q", t.ID, t.Kind)
	}
	return nil
}
