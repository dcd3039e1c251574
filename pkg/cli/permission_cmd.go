package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"qs-rls-manager/internal/api"
	"qs-rls-manager/internal/domain"
)

func newPermissionCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "permission",
		Aliases: []string{"perm"},
		Short:   "Manage the row-filter permissions of a dataset",
	}
	cmd.AddCommand(newPermissionAddCmd(rt))
	cmd.AddCommand(newPermissionListCmd(rt))
	cmd.AddCommand(newPermissionUpdateCmd(rt))
	cmd.AddCommand(newPermissionRemoveCmd(rt))
	return cmd
}

func newPermissionAddCmd(rt *runtime) *cobra.Command {
	var req domain.CreatePermissionRequest

	cmd := &cobra.Command{
		Use:   "add <dataset-arn>",
		Short: "Grant a user or group the rows whose field matches the given values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.App()
			if err != nil {
				return err
			}
			req.DataSetArn = args[0]
			p, err := a.Services.Permission.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			if rt.opts.output == outputJSON {
				return rt.printJSON(api.PermissionToAPI(*p))
			}
			_, _ = fmt.Fprintln(rt.out, p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.UserGroupArn, "principal", "", "User or group ARN (required)")
	cmd.Flags().StringVar(&req.Field, "field", domain.Wildcard, "Field the rule filters on, or * for every field")
	cmd.Flags().StringVar(&req.RLSValues, "values", domain.Wildcard, "Comma-separated values, or * for all values")
	cmd.Flags().StringVar(&req.Status, "status", "", "Initial status (PENDING, PUBLISHED, FAILED, MANUAL)")
	_ = cmd.MarkFlagRequired("principal")
	return cmd
}

func newPermissionListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list <dataset-arn>",
		Short: "List the permissions of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.App()
			if err != nil {
				return err
			}
			perms, err := a.Services.Permission.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := make([]api.Permission, len(perms))
			for i, p := range perms {
				out[i] = api.PermissionToAPI(p)
			}
			return rt.print(out, []string{"id", "principal", "field", "values", "status"}, func() [][]string {
				rows := make([][]string, len(out))
				for i, p := range out {
					rows[i] = []string{p.ID, p.UserGroupArn, p.Field, p.RLSValues, p.Status}
				}
				return rows
			})
		},
	}
}

func newPermissionUpdateCmd(rt *runtime) *cobra.Command {
	var field, values, status string

	cmd := &cobra.Command{
		Use:   "update <permission-id>",
		Short: "Change the field, values or status of a permission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req domain.UpdatePermissionRequest
			if cmd.Flags().Changed("field") {
				req.Field = &field
			}
			if cmd.Flags().Changed("values") {
				req.RLSValues = &values
			}
			if cmd.Flags().Changed("status") {
				req.Status = &status
			}
			a, err := rt.App()
			if err != nil {
				return err
			}
			p, err := a.Services.Permission.Update(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			if rt.opts.output == outputJSON {
				return rt.printJSON(api.PermissionToAPI(*p))
			}
			_, _ = fmt.Fprintf(rt.out, "Permission %s updated\n", p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "New field")
	cmd.Flags().StringVar(&values, "values", "", "New comma-separated values")
	cmd.Flags().StringVar(&status, "status", "", "New status")
	return cmd
}

func newPermissionRemoveCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <permission-id>",
		Aliases: []string{"delete"},
		Short:   "Remove a permission",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.App()
			if err != nil {
				return err
			}
			if err := a.Services.Permission.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.out, "Permission %s removed\n", args[0])
			return nil
		},
	}
}
