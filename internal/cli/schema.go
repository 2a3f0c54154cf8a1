package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// FlagDoc describes one command flag in machine-readable form.
type FlagDoc struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// CommandDoc describes a command tree in machine-readable form, for
// tooling that drives fixwised programmatically.
type CommandDoc struct {
	Name        string       `json:"name"`
	Use         string       `json:"use,omitempty"`
	Description string       `json:"description,omitempty"`
	Flags       []FlagDoc    `json:"flags,omitempty"`
	Subcommands []CommandDoc `json:"subcommands,omitempty"`
}

// DescribeCommand builds the CommandDoc for a cobra command and its
// visible subcommands.
func DescribeCommand(cmd *cobra.Command) CommandDoc {
	doc := CommandDoc{
		Name:        cmd.Name(),
		Use:         cmd.Use,
		Description: cmd.Short,
	}

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "help" || f.Name == "help-json" {
			return
		}
		doc.Flags = append(doc.Flags, FlagDoc{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
			Description: f.Usage,
		})
	})

	for _, sub := range cmd.Commands() {
		if sub.Name() == "help" || sub.Hidden {
			continue
		}
		doc.Subcommands = append(doc.Subcommands, DescribeCommand(sub))
	}

	return doc
}

// AddHelpJSONFlag adds the --help-json flag to a command.
func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("help-json", false, "Output command schema as JSON")
}

// CheckHelpJSON scans os.Args for --help-json and, if present, prints the
// schema of the addressed command and exits. Call before Execute so the
// flag works even when other required args are missing.
func CheckHelpJSON(rootCmd *cobra.Command) {
	for i, arg := range os.Args {
		if arg != "--help-json" {
			continue
		}

		target := rootCmd
		for _, name := range os.Args[1:i] {
			next := target
			for _, sub := range target.Commands() {
				if sub.Name() == name || sub.HasAlias(name) {
					next = sub
					break
				}
			}
			target = next
		}

		output, err := json.MarshalIndent(DescribeCommand(target), "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(output))
		os.Exit(0)
	}
}
