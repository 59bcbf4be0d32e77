package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/example/go-german-cv/internal/phoneme"
	"github.com/spf13/cobra"
)

func newInventoryCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Print the pattern tables and reclist inventory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			inv := phoneme.Snapshot()
			out := cmd.OutOrStdout()

			switch format {
			case "json":
				return writeJSON(out, inv)
			case "yaml":
				return writeYAML(out, inv)
			case "text":
				return writeInventory(out, inv)
			default:
				return fmt.Errorf("--format must be one of text|json|yaml")
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text|json|yaml")

	return cmd
}

func writeInventory(w io.Writer, inv phoneme.Inventory) error {
	var sb strings.Builder

	table := func(name string, t phoneme.Table) {
		fmt.Fprintf(&sb, "%s (priority order)\n", name)
		for i, r := range t {
			fmt.Fprintf(&sb, "  %2d  %-5s -> %s\n", i+1, r.Grapheme, r.Phoneme)
		}
	}
	table("consonants", inv.ConsonantTable)
	table("vowels", inv.VowelTable)

	fmt.Fprintf(&sb, "ending consonants:  %s\n", strings.Join(inv.EndingConsonants, " "))
	fmt.Fprintf(&sb, "reclist vowels:     %s\n", strings.Join(inv.Vowels, " "))
	fmt.Fprintf(&sb, "reclist consonants: %s\n", strings.Join(inv.Consonants, " "))

	_, err := io.WriteString(w, sb.String())
	return err
}
