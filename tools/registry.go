package tools

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/armon/go-radix"
	"github.com/richinex/toolsuite/llm"
)

// ErrAmbiguousTool is returned when a prefix matches more than one tool.
var ErrAmbiguousTool = errors.New("ambiguous tool")

// Registry maps tool identifiers to their descriptions.
// IDs live in a radix tree so listing is ordered and lookups accept unique prefixes.
type Registry struct {
	mu   sync.RWMutex
	tree *radix.Tree
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tree: radix.New(),
	}
}

// Register adds a new tool to the registry.
// Returns error if a tool with the same ID already exists.
func (r *Registry) Register(tool Tool) error {
	if err := tool.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tree.Get(tool.ID); exists {
		return fmt.Errorf("tool '%s' already registered", tool.ID)
	}
	r.tree.Insert(tool.ID, tool)
	return nil
}

// Get returns a tool by exact ID.
func (r *Registry) Get(id string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, exists := r.tree.Get(id)
	if !exists {
		return Tool{}, false
	}
	return v.(Tool), true
}

// Resolve returns the tool whose ID is id, or the only tool whose ID starts with id.
func (r *Registry) Resolve(id string) (Tool, error) {
	if tool, ok := r.Get(id); ok {
		return tool, nil
	}

	var matches []Tool
	if id != "" {
		matches = r.walk(id)
	}
	switch len(matches) {
	case 0:
		return Tool{}, fmt.Errorf("unknown tool: %q", id)
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		return Tool{}, fmt.Errorf("%w: %q matches %s", ErrAmbiguousTool, id, strings.Join(ids, ", "))
	}
}

// IDs returns all registered tool IDs in sorted order.
func (r *Registry) IDs() []string {
	all := r.walk("")
	ids := make([]string, len(all))
	for i, tool := range all {
		ids[i] = tool.ID
	}
	return ids
}

// walk returns tools with the given ID prefix in key order.
func (r *Registry) walk(prefix string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tools []Tool
	r.tree.WalkPrefix(prefix, func(_ string, v interface{}) bool {
		tools = append(tools, v.(Tool))
		return false
	})
	return tools
}

// ByCategory groups tools by category, each group sorted by ID.
func (r *Registry) ByCategory() map[string][]Tool {
	groups := make(map[string][]Tool)
	for _, tool := range r.walk("") {
		groups[tool.Category] = append(groups[tool.Category], tool)
	}
	return groups
}

// Categories returns the category names in sorted order.
func (r *Registry) Categories() []string {
	groups := r.ByCategory()
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Description returns a formatted listing of all tools, grouped by category.
func (r *Registry) Description() string {
	groups := r.ByCategory()

	var sections []string
	for _, category := range r.Categories() {
		lines := []string{category + ":"}
		for _, tool := range groups[category] {
			lines = append(lines, fmt.Sprintf("  %-22s %s", tool.ID, tool.Description))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	return strings.Join(sections, "\n\n")
}

// Tool categories.
const (
	CategoryWriting      = "AI Writing"
	CategoryImage        = "AI Image"
	CategoryProductivity = "Productivity"
)

// Defaults returns the built-in catalog.
func Defaults() []Tool {
	return []Tool{
		{
			ID: "blog-ideas", Name: "Blog Idea Generator", Category: CategoryWriting, Kind: KindGenerator,
			Description: "Suggest blog post ideas for a topic",
			Instruction: "Generate a list of five engaging blog post ideas, each with a one-line summary, about the following topic:",
		},
		{
			ID: "grammar-fix", Name: "Grammar Fixer", Category: CategoryWriting, Kind: KindGenerator,
			Description: "Correct grammar and spelling",
			Instruction: "Correct the grammar, spelling and punctuation of the following text and return only the corrected text:",
		},
		{
			ID: "paraphrase", Name: "Paraphraser", Category: CategoryWriting, Kind: KindGenerator,
			Description: "Rewrite text in different words",
			Instruction: "Paraphrase the following text, keeping its meaning but using different wording:",
		},
		{
			ID: "summarize", Name: "Text Summarizer", Category: CategoryWriting, Kind: KindGenerator,
			Description: "Summarize a passage",
			Instruction: "Summarize the following text in a short paragraph:",
		},
		{
			ID: "email-writer", Name: "Email Writer", Category: CategoryWriting, Kind: KindGenerator,
			Description: "Draft an email from a short brief",
			Instruction: "Write a clear, polite email based on the following brief:",
		},
		{
			ID: "hashtags", Name: "Hashtag Generator", Category: CategoryWriting, Kind: KindGenerator,
			Description: "Suggest social media hashtags",
			Instruction: "Suggest ten relevant social media hashtags for the following post:",
		},
		{
			ID: "product-description", Name: "Product Description Writer", Category: CategoryWriting, Kind: KindGenerator,
			Description: "Write a product description",
			Instruction: "Write a persuasive product description for the following product:",
		},
		{
			ID: "image-caption", Name: "Image Caption Generator", Category: CategoryImage, Kind: KindGenerator,
			Description: "Caption an uploaded image", AcceptsImage: true,
			Instruction: "Write a short, descriptive caption for the attached image. Extra context from the user:",
		},
		{
			ID: "image-generator", Name: "Image Generator", Category: CategoryImage, Kind: KindGenerator,
			Description: "Generate an image from a description", Modality: llm.ModalityImage,
			Instruction: "Generate an image that matches the following description:",
		},
		{
			ID: "image-edit", Name: "Image Editor", Category: CategoryImage, Kind: KindGenerator,
			Description: "Edit an uploaded image by instruction", Modality: llm.ModalityImage, AcceptsImage: true,
			Instruction: "Edit the attached image as follows:",
		},
		{
			ID: "notes", Name: "Notes", Category: CategoryProductivity, Kind: KindNotes,
			Description: "Autosaving notes pad",
		},
		{
			ID: "bulk-messaging", Name: "Bulk Messaging", Category: CategoryProductivity, Kind: KindMessaging,
			Description: "Open one chat link per recipient with a delay",
		},
	}
}

// WithDefaults creates a registry with the built-in catalog.
// Returns error if any tool registration fails.
func WithDefaults() (*Registry, error) {
	registry := NewRegistry()
	for _, t := range Defaults() {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("failed to register default tools: %w", err)
		}
	}
	return registry, nil
}
