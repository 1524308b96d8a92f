package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/sidepop/internal/rules"
)

var resolveOpts struct {
	format string
}

var resolveCmd = &cobra.Command{
	Use:   "resolve BUFFER",
	Short: "Show the placement decision for a buffer name",
	Long: `Resolve a buffer name against the configured rules and print the
resulting placement decision.

Exits non-zero when no rule claims the buffer (it would be displayed by
the host's default placement, not as a popup).

Examples:
  # Where would *Help* go?
  sidepop resolve '*Help*'

  # Machine-readable output
  sidepop resolve '*grep*' --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveOpts.format, "format", "f", "text",
		"Output format: text, json, yaml")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	buffer := args[0]

	store := rules.NewStore()
	if err := store.SetRules(getConfig().Rules); err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}
	resolver := rules.NewResolver(store, getConfig().ResolverDefaults())

	d, ok := resolver.Resolve(buffer)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: not a popup\n", buffer)
		os.Exit(1)
	}

	return printDecision(d, resolveOpts.format)
}

func printDecision(d rules.Decision, format string) error {
	switch format {
	case "json":
		out, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	case "yaml":
		out, err := yaml.Marshal(d)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
	case "text":
		fmt.Printf("buffer:   %s\n", d.Buffer)
		fmt.Printf("side:     %s\n", d.Side)
		fmt.Printf("size:     %s\n", d.Size)
		fmt.Printf("slot:     %d\n", d.Slot)
		fmt.Printf("vslot:    %d\n", d.VSlot)
		fmt.Printf("select:   %t\n", d.Select)
		fmt.Printf("modeline: %t\n", d.Modeline)
		fmt.Printf("quit:     %t\n", d.Quit)
		fmt.Printf("ttl:      %s\n", formatTTL(d.TTL))
		fmt.Printf("autosave: %t\n", d.Autosave)
	default:
		return fmt.Errorf("unknown format %q (use text, json, or yaml)", format)
	}
	return nil
}
