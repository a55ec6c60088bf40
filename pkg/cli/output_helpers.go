package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// getOutputFormat returns the effective output format from the root
// command's persistent flags. An unset flag means table on a terminal and
// json otherwise.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	if v != "" {
		return v
	}
	if stdoutIsTerminal() {
		return "table"
	}
	return "json"
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec // fd fits in int
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}
