package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"qs-rls-manager/internal/api"
	"qs-rls-manager/internal/domain"
)

func newRegionCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "region",
		Short: "Configure managed regions",
	}
	cmd.AddCommand(newRegionSetCmd(rt))
	cmd.AddCommand(newRegionListCmd(rt))
	return cmd
}

func newRegionSetCmd(rt *runtime) *cobra.Command {
	var reg domain.ManagedRegion

	cmd := &cobra.Command{
		Use:   "set <region>",
		Short: "Create or update the bucket, catalog database and data source of a region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.App()
			if err != nil {
				return err
			}
			reg.Region = args[0]
			saved, err := a.Services.Dataset.PutRegion(cmd.Context(), &reg)
			if err != nil {
				return err
			}
			if rt.opts.output == outputJSON {
				return rt.printJSON(api.RegionToAPI(*saved))
			}
			_, _ = fmt.Fprintf(rt.out, "Region %s configured\n", saved.Region)
			return nil
		},
	}

	cmd.Flags().StringVar(&reg.BucketName, "bucket", "", "S3 bucket holding the rules CSVs (required)")
	cmd.Flags().StringVar(&reg.GlueDatabaseName, "glue-database", "", "Glue database for the rules tables (required)")
	cmd.Flags().StringVar(&reg.DataSourceName, "data-source", "", "QuickSight data source id (required)")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("glue-database")
	_ = cmd.MarkFlagRequired("data-source")
	return cmd
}

func newRegionListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List managed regions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.App()
			if err != nil {
				return err
			}
			regions, err := a.Services.Dataset.ListRegions(cmd.Context())
			if err != nil {
				return err
			}
			out := make([]api.Region, len(regions))
			for i, r := range regions {
				out[i] = api.RegionToAPI(r)
			}
			return rt.print(out, []string{"region", "bucket", "glue database", "data source"}, func() [][]string {
				rows := make([][]string, len(out))
				for i, r := range out {
					rows[i] = []string{r.Region, r.BucketName, r.GlueDatabaseName, r.DataSourceName}
				}
				return rows
			})
		},
	}
}
