package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devrev/meerkat-sub004/internal/domain"
	"github.com/devrev/meerkat-sub004/internal/service/semantic"
)

const inputHelp = "FILE is YAML or JSON; use - to read stdin."

func newCompileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "compile FILE",
		Short: "Compile a semantic query to SQL",
		Long:  "Compile a {query, tableSchemas} document to DuckDB SQL. " + inputHelp,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req semantic.CompileRequest
			if err := loadRequest(cmd, args[0], &req); err != nil {
				return err
			}
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close() //nolint:errcheck

			res, err := sess.semantic.Compile(cmd.Context(), req)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, res)
			}
			_, _ = fmt.Fprintln(os.Stdout, res.SQL)
			_, _ = fmt.Fprintln(os.Stdout)
			rows := make([][]string, 0, len(res.Columns))
			for _, c := range res.Columns {
				kind := "dimension"
				if c.Measure {
					kind = "measure"
				}
				rows = append(rows, []string{c.Member, c.Alias, string(c.Type), kind})
			}
			PrintTable(os.Stdout, []string{"member", "alias", "type", "kind"}, rows)
			return nil
		},
	}
}

func newResolveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve FILE",
		Short: "Compile a query and resolve lookup columns",
		Long:  "Compile a {query, tableSchemas, resolutionConfig} document and join the configured columns to their lookup schemas. " + inputHelp,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req semantic.ResolveRequest
			if err := loadRequest(cmd, args[0], &req); err != nil {
				return err
			}
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close() //nolint:errcheck

			res, err := sess.semantic.CompileWithResolution(cmd.Context(), req)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, res)
			}
			_, _ = fmt.Fprintln(os.Stdout, res.SQL)
			_, _ = fmt.Fprintln(os.Stdout)
			PrintTable(os.Stdout, []string{"name", "type", "kind"}, schemaRows(res.Schema))
			return nil
		},
	}
}

func newDedupeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dedupe FILE",
		Short: "Drop filters a base query already enforces",
		Long:  "Read a {filters, baseSql} document and print the filters baseSql does not already enforce. " + inputHelp,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req semantic.DedupeRequest
			if err := loadRequest(cmd, args[0], &req); err != nil {
				return err
			}
			svc := semantic.NewService(nil, nil, opts.logger())
			out := svc.DedupeFilters(cmd.Context(), req)

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, map[string]interface{}{"filters": out})
			}
			rows := make([][]string, 0, len(out))
			for _, f := range out {
				rows = append(rows, []string{domain.FilterString(f)})
			}
			PrintTable(os.Stdout, []string{"filter"}, rows)
			return nil
		},
	}
}

func newRunCmd(opts *options) *cobra.Command {
	var showSQL bool
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Compile a semantic query and execute it",
		Long:  "Compile a {query, tableSchemas} document and run the SQL on DuckDB. " + inputHelp,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req semantic.CompileRequest
			if err := loadRequest(cmd, args[0], &req); err != nil {
				return err
			}
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close() //nolint:errcheck

			res, err := sess.semantic.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, res)
			}
			if showSQL {
				_, _ = fmt.Fprintln(os.Stdout, res.SQL)
				_, _ = fmt.Fprintln(os.Stdout)
			}
			rows := make([][]string, 0, len(res.Result.Rows))
			for _, row := range res.Result.Rows {
				cells := make([]string, len(row))
				for i, v := range row {
					cells[i] = formatCell(v)
				}
				rows = append(rows, cells)
			}
			PrintTable(os.Stdout, res.Result.Columns, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSQL, "show-sql", false, "Print the compiled SQL before the rows")
	return cmd
}

func newASTCmd(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "ast [SQL]",
		Short: "Print DuckDB's serialized AST for a SELECT statement",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var query string
			switch {
			case file != "" && len(args) > 0:
				return fmt.Errorf("pass either SQL or --file, not both")
			case file != "":
				data, err := readInput(file, cmd.InOrStdin())
				if err != nil {
					return err
				}
				query = string(data)
			case len(args) == 1:
				query = args[0]
			default:
				return fmt.Errorf("SQL text or --file is required")
			}
			if strings.TrimSpace(query) == "" {
				return fmt.Errorf("SQL text is empty")
			}

			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close() //nolint:errcheck

			ast, err := sess.engine.SerializeSQL(cmd.Context(), query)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := json.Indent(&buf, ast, "", "  "); err != nil {
				return fmt.Errorf("format ast: %w", err)
			}
			buf.WriteByte('\n')
			_, err = buf.WriteTo(os.Stdout)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read SQL from FILE (- for stdin)")
	return cmd
}

func loadRequest(cmd *cobra.Command, path string, v interface{}) error {
	data, err := readInput(path, cmd.InOrStdin())
	if err != nil {
		return err
	}
	return decodeRequest(data, v)
}

func schemaRows(s domain.TableSchema) [][]string {
	rows := make([][]string, 0, len(s.Dimensions)+len(s.Measures))
	for _, d := range s.Dimensions {
		rows = append(rows, []string{d.Name, string(d.Type), "dimension"})
	}
	for _, m := range s.Measures {
		rows = append(rows, []string{m.Name, string(m.Type), "measure"})
	}
	return rows
}
