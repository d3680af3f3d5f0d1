package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"archguard-hq/warden/pkg/cli"
	"archguard-hq/warden/pkg/engine"
)

var validateOutput string

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a unified diff against the architecture policy",
	Long: `Validate a unified diff against the architecture policy.

Reads the diff from the given file, or from stdin when no file is provided.
Prints the validation result and exits 1 when violations are found, so it
can gate commits and CI jobs.

Examples:
  warden validate change.patch
  git diff | warden validate
  git diff | warden validate -o text`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateOutput, "output", "o", "json", "output format (json or text)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var diffText []byte
	if len(args) == 1 {
		diffText, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read diff file: %w", err)
		}
	} else {
		diffText, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read diff from stdin: %w", err)
		}
	}

	eng := engine.New(cfg.Engine, nil)
	res := eng.ValidateDiff(cmd.Context(), string(diffText))

	if cli.OutputFormat(validateOutput) == cli.FormatText {
		printValidateText(os.Stdout, res)
	} else {
		formatter := cli.NewFormatter(cli.FormatJSON)
		if err := formatter.FormatTo(os.Stdout, res); err != nil {
			return err
		}
	}

	if !res.OK {
		return cli.NewExitError(1, nil)
	}
	return nil
}

func printValidateText(w io.Writer, res engine.ValidateResult) {
	if res.OK {
		fmt.Fprintf(w, "ok (%dms)\n", res.DurationMS)
		return
	}
	fmt.Fprintf(w, "%d violation(s) in %dms\n", len(res.Violations), res.DurationMS)
	for _, v := range res.Violations {
		if v.File != "" {
			fmt.Fprintf(w, "  [%s] %s: %s\n", v.Type, v.File, v.Message)
		} else {
			fmt.Fprintf(w, "  [%s] %s\n", v.Type, v.Message)
		}
	}
}
