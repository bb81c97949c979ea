package cmd

import (
	"fmt"
	"strconv"
	"vanisher/logger"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the ignore rule list from the command line",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists all ignore rules in order",
	Run: func(cmd *cobra.Command, args []string) {
		v, _, err := newVanisher(false)
		if err != nil {
			logger.Fatal("Could not initialize rule store: %v", err)
			return
		}
		rules := v.Store().Rules()
		if len(rules) == 0 {
			fmt.Println("No ignore rules.")
			return
		}
		for i, r := range rules {
			fmt.Printf("%3d  %-5s  %s\n", i, r.Scope, r.String())
		}
		if skipped := v.SkippedOnLoad(); skipped > 0 {
			fmt.Printf("(%d malformed persisted entries were skipped on load)\n", skipped)
		}
	},
}

var rulesAddCmd = &cobra.Command{
	Use:   "add <entry>",
	Short: "Adds an ignore rule (bare host or http(s) URL) and excludes it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v, _, err := newVanisher(false)
		if err != nil {
			logger.Fatal("Could not initialize rule store: %v", err)
			return
		}
		result, err := v.AddEntry(args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("Added %q at position %d. %s\n", result.Rule.String(), result.Position, result.Sync.Summary())
	},
}

var rulesEditCmd = &cobra.Command{
	Use:   "edit <position> <entry>",
	Short: "Replaces the rule at a position and excludes the new value",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		position, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Printf("Error: position must be an integer, got %q\n", args[0])
			return
		}
		v, _, err := newVanisher(false)
		if err != nil {
			logger.Fatal("Could not initialize rule store: %v", err)
			return
		}
		result, err := v.EditEntry(position, args[1])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("Position %d is now %q. %s\n", position, result.Rule.String(), result.Sync.Summary())
	},
}

var rulesRemoveCmd = &cobra.Command{
	Use:   "remove <position> [position...]",
	Short: "Removes the rules at the given positions",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		positions := make([]int, 0, len(args))
		for _, a := range args {
			p, err := strconv.Atoi(a)
			if err != nil {
				fmt.Printf("Error: position must be an integer, got %q\n", a)
				return
			}
			positions = append(positions, p)
		}
		v, _, err := newVanisher(false)
		if err != nil {
			logger.Fatal("Could not initialize rule store: %v", err)
			return
		}
		removed, err := v.RemoveRules(positions)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		for _, r := range removed {
			fmt.Printf("Removed %q\n", r.String())
		}
	},
}

var rulesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Removes every ignore rule (host scope exclusions remain)",
	Run: func(cmd *cobra.Command, args []string) {
		v, _, err := newVanisher(false)
		if err != nil {
			logger.Fatal("Could not initialize rule store: %v", err)
			return
		}
		n, err := v.ClearRules()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("Cleared %d rules. (Scope exclusions already pushed to the host remain.)\n", n)
	},
}

var rulesExcludeCmd = &cobra.Command{
	Use:   "exclude [position...]",
	Short: "Re-pushes rules to the host scope-exclusion list (all rules when no positions given)",
	Run: func(cmd *cobra.Command, args []string) {
		positions := make([]int, 0, len(args))
		for _, a := range args {
			p, err := strconv.Atoi(a)
			if err != nil {
				fmt.Printf("Error: position must be an integer, got %q\n", a)
				return
			}
			positions = append(positions, p)
		}
		v, _, err := newVanisher(false)
		if err != nil {
			logger.Fatal("Could not initialize rule store: %v", err)
			return
		}
		report, err := v.ExcludePositions(positions)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Println(report.Summary())
	},
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesAddCmd)
	rulesCmd.AddCommand(rulesEditCmd)
	rulesCmd.AddCommand(rulesRemoveCmd)
	rulesCmd.AddCommand(rulesClearCmd)
	rulesCmd.AddCommand(rulesExcludeCmd)
	rootCmd.AddCommand(rulesCmd)
}
