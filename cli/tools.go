package cli

import (
	"fmt"
	"io"

	"github.com/richinex/toolsuite/tools"
)

// ListTools prints the tool catalog grouped by category.
func ListTools(w io.Writer, verbose bool) error {
	registry, err := tools.WithDefaults()
	if err != nil {
		return err
	}

	if !verbose {
		fmt.Fprintln(w, registry.Description())
		return nil
	}

	groups := registry.ByCategory()
	for _, category := range registry.Categories() {
		fmt.Fprintf(w, "%s:\n", category)
		for _, tool := range groups[category] {
			fmt.Fprintf(w, "  %s (%s)\n", tool.ID, tool.Name)
			fmt.Fprintf(w, "    %s\n", tool.Description)
			fmt.Fprintf(w, "    kind: %s\n", tool.Kind)
			if tool.Modality != "" {
				fmt.Fprintf(w, "    output: %s\n", tool.Modality)
			}
			if tool.AcceptsImage {
				fmt.Fprintln(w, "    input image: --image")
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}
