package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"qs-rls-manager/internal/api"
)

func newCSVCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Export and import permissions as RLS CSV",
	}
	cmd.AddCommand(newCSVExportCmd(rt))
	cmd.AddCommand(newCSVImportCmd(rt))
	return cmd
}

func newCSVExportCmd(rt *runtime) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export <dataset-arn>",
		Short: "Render the permissions of a dataset exactly as a publish would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.App()
			if err != nil {
				return err
			}
			doc, err := a.Services.Permission.ExportCSV(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if file == "" {
				_, err = io.WriteString(rt.out, doc.Text)
				return err
			}
			if err := os.WriteFile(file, []byte(doc.Text), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", file, err)
			}
			_, _ = fmt.Fprintf(rt.errOut, "Wrote %s\n", file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Write to this file instead of stdout")
	return cmd
}

func newCSVImportCmd(rt *runtime) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "import <dataset-arn> <file|->",
		Short: "Parse an RLS CSV and, with --apply, replace the dataset's permissions",
		Long: "Parse an RLS CSV in the ARN, user-name or group-name dialect. Without --apply the\n" +
			"parsed permissions and diagnostics are only reported. Rows whose principal\n" +
			"cannot be resolved are never stored.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src io.Reader = rt.in
			if args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				src = f
			}

			a, err := rt.App()
			if err != nil {
				return err
			}
			res, err := a.Services.Permission.ImportCSV(cmd.Context(), args[0], src, apply)
			if err != nil {
				return err
			}
			out := api.ImportToAPI(res)
			if rt.opts.output == outputJSON {
				return rt.printJSON(out)
			}

			rows := make([][]string, len(out.Permissions))
			for i, p := range out.Permissions {
				resolved := "yes"
				if !p.Resolved {
					resolved = "no"
				}
				rows[i] = []string{p.PrincipalName, p.UserGroupArn, p.Field, p.RLSValues, resolved}
			}
			if err := rt.printTable([]string{"name", "principal", "field", "values", "resolved"}, rows); err != nil {
				return err
			}
			for _, d := range out.Diagnostics {
				_, _ = fmt.Fprintf(rt.errOut, "line %d: %s: %s\n", d.Line, d.Severity, d.Message)
			}
			if out.Applied {
				_, _ = fmt.Fprintf(rt.out, "Stored %d permissions (dialect %s)\n", out.Stored, out.Dialect)
			} else {
				_, _ = fmt.Fprintf(rt.out, "Dry run: %d permissions parsed (dialect %s); rerun with --apply to store\n",
					len(out.Permissions), out.Dialect)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Replace the stored permissions with the resolved rows")
	return cmd
}
