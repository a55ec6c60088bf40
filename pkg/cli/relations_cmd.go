package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"duck-pgcatalog/internal/service/introspection"
)

func newRelationsCmd(opts *sessionOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "relations",
		Short: "List the pg_catalog relations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			relations := s.app.Services.Relations.List()
			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(out, map[string]any{"relations": relations})
			}
			rows := make([][]string, len(relations))
			for i, r := range relations {
				rows[i] = []string{r.Name, strconv.Itoa(len(r.Columns))}
			}
			PrintTable(out, []string{"name", "columns"}, rows)
			return nil
		},
	}
}

func newDumpCmd(opts *sessionOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "dump <relation>",
		Short: "Print a snapshot of one pg_catalog relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0")
			}
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			data, err := s.app.Services.Relations.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if limit > 0 && len(data.Rows) > limit {
				data.Rows = data.Rows[:limit]
			}

			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				data.Rows = introspection.JSONRows(data.Rows)
				return PrintJSON(out, data)
			}
			headers := make([]string, len(data.Columns))
			for i, c := range data.Columns {
				headers[i] = c.Name
			}
			PrintTable(out, headers, formatRows(data.Rows))
			fmt.Fprintf(cmd.ErrOrStderr(), "\n(%d rows)\n", data.RowCount)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to print (0 prints all)")
	return cmd
}

func newFunctionsCmd(opts *sessionOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the registered introspection functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			functions := s.app.Services.Relations.Functions()
			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(out, map[string]any{"functions": functions})
			}
			rows := make([][]string, len(functions))
			for i, f := range functions {
				args := make([]string, len(f.Args))
				for j, a := range f.Args {
					args[j] = a.Type
				}
				rows[i] = []string{
					strconv.FormatUint(uint64(f.Oid), 10),
					f.Name + "(" + strings.Join(args, ", ") + ")",
					f.ReturnType,
					f.Volatility,
				}
			}
			PrintTable(out, []string{"oid", "signature", "returns", "volatility"}, rows)
			return nil
		},
	}
}

func formatRows(rows [][]any) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			if v == nil {
				out[i][j] = "NULL"
				continue
			}
			out[i][j] = introspection.FormatCell(v)
		}
	}
	return out
}
