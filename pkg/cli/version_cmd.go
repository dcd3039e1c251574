package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if rt.opts.output == outputJSON {
				return rt.printJSON(map[string]string{"version": version, "commit": commit})
			}
			_, _ = fmt.Fprintf(rt.out, "rlsctl %s (commit: %s)\n", version, commit)
			return nil
		},
	}
}
