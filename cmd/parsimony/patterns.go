package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calliehart/parsimony/internal/cli"
	"github.com/calliehart/parsimony/internal/pattern"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Manage extraction patterns",
		Long:  `Inspect, seed, test, and deactivate the stored extraction patterns.`,
	}

	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsShowCmd())
	cmd.AddCommand(patternsSeedCmd())
	cmd.AddCommand(patternsDeactivateCmd())
	cmd.AddCommand(patternsTestCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, _ := cmd.Flags().GetBool("all")

			store, err := openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			templates, err := store.GetAllTemplates(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle("Extraction Patterns"))

			header := fmt.Sprintf("%-5s %-32s %-18s %-8s %-7s %-6s %s",
				"ID", "Sender", "Merchant", "Origin", "Success", "Uses", "Active")
			fmt.Println(cli.TableHeaderStyle.Render(header))

			shown := 0
			for _, tmpl := range templates {
				if !all && !tmpl.IsActive {
					continue
				}
				shown++

				active := cli.SuccessIcon
				if !tmpl.IsActive {
					active = cli.ErrorIcon
				}

				fmt.Printf("%-5d %-32s %-18s %-8s %-7.2f %-6d %s\n",
					tmpl.ID, truncate(tmpl.Sender, 32), truncate(tmpl.MerchantName, 18),
					tmpl.Origin, tmpl.SuccessRate, tmpl.UsageCount, active)
			}

			if shown == 0 {
				fmt.Println(cli.SubtleStyle.Render("No patterns stored. Run 'parsimony patterns seed' to add defaults."))
			}
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "include deactivated patterns")
	return cmd
}

func patternsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a pattern's fields and sample history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid pattern ID: %s", args[0])
			}

			store, err := openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tmpl, err := store.GetTemplate(cmd.Context(), id)
			if err != nil {
				return err
			}

			lines := []string{
				fmt.Sprintf("Sender:       %s", tmpl.Sender),
				fmt.Sprintf("Merchant:     %s", tmpl.MerchantName),
				fmt.Sprintf("Origin:       %s", tmpl.Origin),
				fmt.Sprintf("Success rate: %.2f over %d uses", tmpl.SuccessRate, tmpl.UsageCount),
				fmt.Sprintf("Active:       %t", tmpl.IsActive),
				"",
				fmt.Sprintf("Amount:       %s", tmpl.Patterns.Amount),
			}
			if tmpl.Patterns.Date != "" {
				lines = append(lines, fmt.Sprintf("Date:         %s", tmpl.Patterns.Date))
			}
			if tmpl.Patterns.Description != "" {
				lines = append(lines, fmt.Sprintf("Description:  %s", tmpl.Patterns.Description))
			}

			if len(tmpl.Samples) > 0 {
				lines = append(lines, "", fmt.Sprintf("Samples (%d):", len(tmpl.Samples)))
				for _, sample := range tmpl.Samples {
					lines = append(lines, fmt.Sprintf("  %s  %s",
						sample.Timestamp.Format("2006-01-02"), truncate(sample.Content, 60)))
				}
			}

			fmt.Println(cli.RenderBox(fmt.Sprintf("Pattern %d", tmpl.ID), strings.Join(lines, "\n")))
			return nil
		},
	}
}

func patternsSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the default patterns for common merchants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			count, err := store.SeedDefaultTemplates(cmd.Context())
			if err != nil {
				return err
			}

			if count == 0 {
				fmt.Println(cli.FormatInfo("Default patterns already installed"))
			} else {
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Installed %d default patterns", count)))
			}
			return nil
		},
	}
}

func patternsDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate a pattern so extraction stops using it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid pattern ID: %s", args[0])
			}

			store, err := openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SetTemplateActive(cmd.Context(), id, false); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Pattern %d deactivated", id)))
			return nil
		},
	}
}

func patternsTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <content>",
		Short: "Try the stored patterns against sample content",
		Long: `Run deterministic extraction against the given content without
consulting the language model or recording outcomes. Useful for checking
what a learned pattern would extract.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, _ := cmd.Flags().GetString("sender")
			if sender == "" {
				return fmt.Errorf("--sender is required")
			}

			store, backing, err := openPatternStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = backing.Close() }()

			candidates := store.Lookup(sender)
			if len(candidates) == 0 {
				fmt.Println(cli.FormatWarning("No active patterns match this sender"))
				return nil
			}

			extractor := pattern.NewExtractor(store)
			result := extractor.Preview(cmd.Context(), args[0], sender)

			if result.Confidence == 0 || !result.HasAmount() {
				fmt.Println(cli.FormatWarning(fmt.Sprintf(
					"%d patterns matched the sender but none extracted an amount", len(candidates))))
				return nil
			}

			return printResult(result, false)
		},
	}

	cmd.Flags().String("sender", "", "email sender address to match patterns against")
	return cmd
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	if limit <= 3 {
		return s[:limit]
	}
	return s[:limit-3] + "..."
}
