package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rendis/convograph/pkg/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|conversation-id>",
	Short: "Lint a conversation",
	Long: `Reports structural errors, a missing start state, dangling targets,
unreachable states and custom lint rule findings. Exits non-zero on errors.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.lint(cmd, args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
		} else {
			printIssues(w, result)
		}
		if !result.Valid() {
			return fmt.Errorf("%s: %d error(s)", args[0], len(result.Errors))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(validateCmd)
}

func (a *app) lint(cmd *cobra.Command, arg string) (*schema.ValidationResult, error) {
	ctx := cmd.Context()
	if _, err := os.Stat(arg); err == nil {
		_, raw, err := schema.LoadFile(arg)
		if err != nil {
			return nil, err
		}
		_, result, err := a.validator.ValidateDocument(ctx, raw)
		return result, err
	}

	// A failed start state is recorded like any layout; lint still reports it.
	if _, err := a.service.Layout(ctx, arg, a.cfg.Tenant); err != nil && !schema.IsCode(err, schema.ErrCodeStartNotFound) {
		return nil, err
	}
	return a.service.Lint(ctx, arg)
}

func printIssues(w io.Writer, result *schema.ValidationResult) {
	if result.Valid() && len(result.Warnings) == 0 {
		fmt.Fprintln(w, "ok")
		return
	}
	for _, issue := range result.Errors {
		fmt.Fprintf(w, "error   %-22s %s\n", issue.Code, describeIssue(issue))
	}
	for _, issue := range result.Warnings {
		fmt.Fprintf(w, "warning %-22s %s\n", issue.Code, describeIssue(issue))
	}
}

func describeIssue(issue schema.ValidationIssue) string {
	if issue.StateID != "" {
		return fmt.Sprintf("[%s] %s", issue.StateID, issue.Message)
	}
	return issue.Message
}
