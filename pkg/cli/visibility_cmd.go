package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"qs-rls-manager/internal/api"
	"qs-rls-manager/internal/domain"
)

func newVisibilityCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visibility",
		Short: "Control who can see the generated rules dataset",
	}
	cmd.AddCommand(newVisibilityListCmd(rt))
	cmd.AddCommand(newVisibilitySetCmd(rt))
	return cmd
}

func newVisibilityListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list <dataset-arn>",
		Short: "List the visibility grants of a dataset's rules dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.App()
			if err != nil {
				return err
			}
			grants, err := a.Services.RLS.Visibility(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return rt.printGrants(grants)
		},
	}
}

// parseGrantFlags turns repeated principal=LEVEL flags into grants.
func parseGrantFlags(dataSetArn string, specs []string) ([]domain.RLSDataSetVisibility, error) {
	out := make([]domain.RLSDataSetVisibility, 0, len(specs))
	for _, s := range specs {
		// Principal ARNs contain no '=', so the last one separates the level.
		i := strings.LastIndex(s, "=")
		if i <= 0 {
			return nil, domain.ErrValidation("invalid --grant %q: expected principal-arn=OWNER|VIEWER", s)
		}
		out = append(out, domain.RLSDataSetVisibility{
			DataSetArn:   dataSetArn,
			PrincipalArn: s[:i],
			Level:        strings.ToUpper(s[i+1:]),
		})
	}
	return out, nil
}

func newVisibilitySetCmd(rt *runtime) *cobra.Command {
	var specs []string

	cmd := &cobra.Command{
		Use:   "set <dataset-arn>",
		Short: "Replace the visibility grants of the dataset's rules dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grants, err := parseGrantFlags(args[0], specs)
			if err != nil {
				return err
			}
			a, err := rt.App()
			if err != nil {
				return err
			}
			saved, err := a.Services.RLS.SetVisibility(cmd.Context(), args[0], grants)
			if err != nil {
				return err
			}
			if rt.opts.output != outputJSON {
				_, _ = fmt.Fprintf(rt.errOut, "%d grants saved\n", len(saved))
			}
			return rt.printGrants(saved)
		},
	}

	cmd.Flags().StringArrayVar(&specs, "grant", nil, "Grant as principal-arn=OWNER|VIEWER (repeatable; none clears)")
	return cmd
}

func (rt *runtime) printGrants(grants []domain.RLSDataSetVisibility) error {
	out := api.VisibilityRequest{Grants: api.VisibilityToAPI(grants)}
	return rt.print(out, []string{"principal", "level"}, func() [][]string {
		rows := make([][]string, len(out.Grants))
		for i, g := range out.Grants {
			rows[i] = []string{g.PrincipalArn, g.Level}
		}
		return rows
	})
}
