package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/sidepop/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the configured placement rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules in match order",
	RunE:  runRulesList,
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check BUFFER",
	Short: "Show which rules match a buffer name",
	Long: `Print every rule matching the buffer, in the order they are merged.
Later rules override earlier ones field by field.`,
	Args: cobra.ExactArgs(1),
	RunE: runRulesCheck,
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesCheckCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesList(cmd *cobra.Command, args []string) error {
	rs := getConfig().Rules
	if len(rs) == 0 {
		fmt.Println("no rules configured")
		return nil
	}

	for i, r := range rs {
		fmt.Printf("%3d  %-30s %s\n", i+1, r.Pattern, describeRule(r))
	}
	return nil
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	buffer := args[0]

	store := rules.NewStore()
	if err := store.SetRules(getConfig().Rules); err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}

	matches := store.FindMatches(buffer)
	if len(matches) == 0 {
		fmt.Printf("%s: no matching rules\n", buffer)
		return nil
	}

	for i, r := range matches {
		fmt.Printf("%3d  %-30s %s\n", i+1, r.Pattern, describeRule(r))
	}
	return nil
}

// describeRule renders the fields a rule actually specifies.
func describeRule(r rules.Rule) string {
	var parts []string

	if r.Match != "" && r.Match != rules.MatchRegex {
		parts = append(parts, "match="+string(r.Match))
	}
	if r.Ignore != nil && *r.Ignore {
		parts = append(parts, "ignore")
	}
	if r.Side != nil {
		parts = append(parts, "side="+string(*r.Side))
	}
	if r.Size != nil {
		parts = append(parts, "size="+r.Size.String())
	}
	if r.Slot != nil {
		parts = append(parts, fmt.Sprintf("slot=%d", *r.Slot))
	}
	if r.VSlot != nil {
		parts = append(parts, fmt.Sprintf("vslot=%d", *r.VSlot))
	}
	if r.Select != nil {
		parts = append(parts, fmt.Sprintf("select=%t", *r.Select))
	}
	if r.Modeline != nil {
		parts = append(parts, fmt.Sprintf("modeline=%t", *r.Modeline))
	}
	if r.Quit != nil {
		parts = append(parts, fmt.Sprintf("quit=%t", *r.Quit))
	}
	if r.TTL != nil {
		parts = append(parts, "ttl="+formatTTL(r.TTL.Duration()))
	}
	if r.Autosave != nil {
		parts = append(parts, fmt.Sprintf("autosave=%t", *r.Autosave))
	}

	if len(parts) == 0 {
		return "(defaults)"
	}

	out := parts[0]
	for _, p := range parts[1:] {
		out += " " + p
	}
	return out
}

// formatTTL renders a TTL for humans; zero means the popup never expires.
func formatTTL(d time.Duration) string {
	if d == 0 {
		return "never"
	}
	if d >= time.Minute && d%time.Minute == 0 {
		// "5 minutes" reads better than "5m0s" in rule listings
		return strings.TrimSpace(humanize.RelTime(time.Now().Add(-d), time.Now(), "", ""))
	}
	return d.String()
}
