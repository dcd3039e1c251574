package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"qs-rls-manager/internal/api"
	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/service/dataset"
)

func newDatasetCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Register and inspect dataset mirrors",
	}
	cmd.AddCommand(newDatasetRegisterCmd(rt))
	cmd.AddCommand(newDatasetListCmd(rt))
	cmd.AddCommand(newDatasetGetCmd(rt))
	return cmd
}

// parseFieldFlags turns repeated name=TYPE flags into ordered field types.
func parseFieldFlags(specs []string) (domain.FieldTypes, error) {
	out := make(domain.FieldTypes, 0, len(specs))
	for _, s := range specs {
		name, typ, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		typ = strings.ToUpper(strings.TrimSpace(typ))
		if !ok || name == "" || typ == "" {
			return nil, domain.ErrValidation("invalid --field %q: expected name=TYPE", s)
		}
		out = append(out, domain.FieldType{Name: name, Type: typ})
	}
	return out, nil
}

func newDatasetRegisterCmd(rt *runtime) *cobra.Command {
	var (
		name   string
		fields []string
	)

	cmd := &cobra.Command{
		Use:   "register <dataset-arn>",
		Short: "Mirror a QuickSight dataset so permissions can be managed for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ft, err := parseFieldFlags(fields)
			if err != nil {
				return err
			}
			a, err := rt.App()
			if err != nil {
				return err
			}
			ds, err := a.Services.Dataset.Register(cmd.Context(), dataset.RegisterRequest{
				DataSetArn: args[0],
				Name:       name,
				FieldTypes: ft,
			})
			if err != nil {
				return err
			}
			if rt.opts.output == outputJSON {
				return rt.printJSON(api.DatasetToAPI(*ds))
			}
			_, _ = fmt.Fprintf(rt.out, "Dataset %s registered (%d fields)\n", ds.DataSetArn, len(ds.FieldTypes))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "Field and its type as name=TYPE (repeatable, in column order)")
	return cmd
}

func newDatasetListCmd(rt *runtime) *cobra.Command {
	var (
		region    string
		rulesOnly bool
		page      domain.PageRequest
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dataset mirrors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter domain.DatasetFilter
			if !cmd.Flags().Changed("region") && rt.profile.Region != "" {
				region = rt.profile.Region
			}
			if region != "" {
				filter.Region = &region
			}
			if cmd.Flags().Changed("rules") {
				filter.IsRLS = &rulesOnly
			}

			a, err := rt.App()
			if err != nil {
				return err
			}
			items, total, err := a.Services.Dataset.List(cmd.Context(), filter, page)
			if err != nil {
				return err
			}
			out := api.DatasetList{Data: make([]api.Dataset, len(items)), Total: total}
			for i, d := range items {
				out.Data[i] = api.DatasetToAPI(d)
			}
			out.NextPageToken = domain.NextPageToken(page.Offset(), page.Limit(), total)

			return rt.print(out, []string{"arn", "name", "rls", "rules dataset", "version", "published"}, func() [][]string {
				rows := make([][]string, len(out.Data))
				for i, d := range out.Data {
					rls := d.RLSEnabled
					if d.IsRLS {
						rls = "RULES"
					}
					rows[i] = []string{d.DataSetArn, d.Name, rls, orDash(d.RLSDataSetID),
						strconv.Itoa(d.CurrentVersion), formatTime(d.LastPublishedAt)}
				}
				return rows
			})
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "Only datasets in this region (defaults to the profile region)")
	cmd.Flags().BoolVar(&rulesOnly, "rules", false, "Only rules datasets (or, with --rules=false, only data datasets)")
	cmd.Flags().IntVar(&page.MaxResults, "max-results", 0, "Page size")
	cmd.Flags().StringVar(&page.PageToken, "page-token", "", "Token of the page to fetch")
	return cmd
}

func newDatasetGetCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "get <dataset-arn>",
		Short: "Show a dataset mirror and its field types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.App()
			if err != nil {
				return err
			}
			ds, err := a.Services.Dataset.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := api.DatasetToAPI(*ds)
			return rt.print(out, []string{"field", "type"}, func() [][]string {
				rows := make([][]string, len(out.FieldTypes))
				for i, f := range out.FieldTypes {
					rows[i] = []string{f.Name, f.Type}
				}
				return rows
			})
		},
	}
}
