// Package main provides the toolsuite CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/richinex/toolsuite/cli"
	"github.com/richinex/toolsuite/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	provider   string
	configPath string
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	// Ctrl+C cancels the running command; dispatch stops before the next recipient.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "toolsuite",
		Short: "AI writing and image tools, autosaving notes and bulk messaging",
		Long: `A command-line tool suite.

- generate: send text (and optionally an image) to a generation provider
  with a tool-specific instruction
- notes: a notes pad that autosaves after a quiet period
- templates: reusable messages for bulk messaging
- dispatch: open one chat link per recipient with a delay between them`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "Generation provider ("+strings.Join(config.SupportedProviders(), ", ")+")")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	// Add commands
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(notesCmd())
	rootCmd.AddCommand(templatesCmd())
	rootCmd.AddCommand(dispatchCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	opts := cli.DefaultOptions()
	opts.Provider = provider
	opts.ConfigPath = configPath
	opts.Verbose = verbose
	return opts
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListTools(os.Stdout, verboseTools)
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool details")

	return cmd
}

func generateCmd() *cobra.Command {
	var g cli.GenerateOptions

	cmd := &cobra.Command{
		Use:   "generate [input...]",
		Short: "Run a generator tool on some input",
		Long: `Send input to a generation provider with the tool's fixed instruction.

Blank input is rejected without calling the provider. Image tools write the
generated image to --out (default <tool>.png).

Examples:
  toolsuite generate --tool blog-ideas "home composting"
  toolsuite generate --tool image-caption --image photo.jpg "for instagram"
  toolsuite generate -p openai --tool image-generator "a red bicycle"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g.Input = strings.Join(args, " ")
			return cli.Generate(cmd.Context(), g, options())
		},
	}

	cmd.Flags().StringVarP(&g.ToolID, "tool", "t", "", "Generator tool ID (see 'toolsuite tools')")
	cmd.Flags().StringVar(&g.ImagePath, "image", "", "Input image for tools that take one")
	cmd.Flags().StringVarP(&g.OutPath, "out", "o", "", "Output path for generated images")
	cmd.Flags().BoolVar(&g.Stream, "stream", false, "Stream text as it is generated")
	cmd.Flags().BoolVar(&g.Markdown, "markdown", false, "Render text output as markdown in the terminal")
	_ = cmd.MarkFlagRequired("tool")

	return cmd
}

func notesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Autosaving notes pad",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NotesShow(cmd.Context(), options())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "edit",
		Short: "Append to the notes interactively; changes save after a quiet period",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NotesEdit(cmd.Context(), options())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "tui",
		Short: "Full-screen notes editor (Ctrl+L clears, Esc saves and quits)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NotesTUI(cmd.Context(), options())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the stored notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NotesClear(cmd.Context(), options())
		},
	})

	return cmd
}

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"template"},
		Short:   "Manage message templates",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.TemplatesList(cmd.Context(), options())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add [name] [message]",
		Short: "Create a template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.TemplatesAdd(cmd.Context(), args[0], args[1], options())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "update [id] [name] [message]",
		Short: "Replace a template's name and message",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.TemplatesUpdate(cmd.Context(), args[0], args[1], args[2], options())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "rm [id]",
		Aliases: []string{"delete"},
		Short:   "Delete a template",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.TemplatesRemove(cmd.Context(), args[0], options())
		},
	})

	return cmd
}

func dispatchCmd() *cobra.Command {
	var d cli.DispatchOptions
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Open one chat link per recipient, waiting between recipients",
		Long: `Open a click-to-chat link for every recipient in order, with a fixed
delay between recipients. Recipients are normalized to digits only.

Openers:
  system    default browser (one tab per recipient)
  browser   a dedicated Chrome window kept logged in across runs
  telegram  send directly through a Telegram bot (recipients are chat IDs)
  dry-run   print the links without opening them

Ctrl+C stops the run before the next recipient.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d.To = append(d.To, args...)
			d.Delay = delay
			return cli.Dispatch(cmd.Context(), d, options())
		},
	}

	cmd.Flags().StringArrayVar(&d.To, "to", nil, "Recipient(s); repeatable, comma or newline separated")
	cmd.Flags().StringVar(&d.ToFile, "to-file", "", "File with one recipient per line")
	cmd.Flags().StringVarP(&d.Message, "message", "m", "", "Message to send")
	cmd.Flags().StringVar(&d.TemplateID, "template", "", "Use a stored template's message")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Delay between recipients (default from config)")
	cmd.Flags().StringVar(&d.Opener, "opener", "", "How links are opened: system, browser, telegram, dry-run")
	cmd.Flags().StringVar(&d.LinkBase, "link-base", "", "Chat link base URL (default https://wa.me)")
	cmd.Flags().StringVar(&d.ProfileDir, "profile", "", "Chrome profile directory for --opener browser")

	return cmd
}
