package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"duck-pgcatalog/internal/engine"
	"duck-pgcatalog/internal/pgcatalog"
	"duck-pgcatalog/internal/service/introspection"
)

func newQueryCmd(opts *sessionOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query [sql]",
		Short: "Run SQL against the catalog chain",
		Long:  "Run one or more SQL statements. Without an argument the SQL is read from a stdin pipe.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sqlText string
			if len(args) == 1 {
				sqlText = strings.TrimSpace(args[0])
			} else {
				text, err := readPipedSQL(cmd.InOrStdin())
				if err != nil {
					return err
				}
				sqlText = text
			}
			if sqlText == "" {
				return fmt.Errorf("provide SQL as an argument or via stdin pipe")
			}

			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			results, execErr := s.app.Execute(cmd.Context(), *opts.user, sqlText)
			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				if err := PrintJSON(out, map[string]any{"results": jsonResults(results)}); err != nil {
					return errors.Join(execErr, err)
				}
				return execErr
			}
			for i, res := range results {
				if i > 0 {
					fmt.Fprintln(out)
				}
				printResultTable(cmd, res)
			}
			return execErr
		},
	}
}

// readPipedSQL reads r when it is not an interactive terminal.
func readPipedSQL(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", nil //nolint:nilerr // no pipe to read
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func printResultTable(cmd *cobra.Command, res *engine.Result) {
	if len(res.Columns) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), res.Tag)
		return
	}
	headers := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		headers[i] = c.Name
	}
	PrintTable(cmd.OutOrStdout(), headers, formatRows(res.Rows))
	fmt.Fprintf(cmd.ErrOrStderr(), "\n(%d rows)\n", len(res.Rows))
}

type jsonColumn struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	TypeOid uint32 `json:"type_oid"`
}

type jsonResult struct {
	Columns  []jsonColumn `json:"columns"`
	Rows     [][]any      `json:"rows"`
	RowCount int          `json:"row_count"`
	Tag      string       `json:"tag"`
}

func jsonResults(results []*engine.Result) []jsonResult {
	out := make([]jsonResult, 0, len(results))
	for _, res := range results {
		cols := make([]jsonColumn, len(res.Columns))
		for i, c := range res.Columns {
			name := "unknown"
			if t, ok := pgcatalog.LookupType(c.TypeOid); ok {
				name = t.Name
			}
			cols[i] = jsonColumn{Name: c.Name, Type: name, TypeOid: c.TypeOid}
		}
		out = append(out, jsonResult{
			Columns:  cols,
			Rows:     introspection.JSONRows(res.Rows),
			RowCount: len(res.Rows),
			Tag:      res.Tag,
		})
	}
	return out
}
