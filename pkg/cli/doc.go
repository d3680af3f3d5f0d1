/*
Package cli provides command-line utilities for the warden command.

It covers the three concerns every subcommand shares: output formatting,
process exit codes, and signal-aware cancellation.

Output Formatting:

Command results render as JSON (default) or plain text:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Exit Codes:

A command that wants a specific process exit code returns an ExitError from
its RunE; Execute translates it without printing a redundant message:

	if !result.OK {
		return cli.NewExitError(1, nil)
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
