package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration profiles",
	}
	cmd.AddCommand(newConfigShowCmd(rt))
	cmd.AddCommand(newConfigSetProfileCmd(rt))
	cmd.AddCommand(newConfigUseProfileCmd(rt))
	return cmd
}

func newConfigShowCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				return err
			}
			if rt.opts.output == outputJSON {
				return rt.printJSON(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, _ = fmt.Fprint(rt.out, string(data))
			return nil
		},
	}
}

func newConfigSetProfileCmd(rt *runtime) *cobra.Command {
	var name, region string

	cmd := &cobra.Command{
		Use:   "set-profile",
		Short: "Create or update a configuration profile",
		Long: "Create or update a configuration profile. The global --meta-db, --account-id\n" +
			"and --output flags given with this command are stored in the profile.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				return err
			}

			existing := cfg.Profiles[name]
			if cmd.Flags().Changed("meta-db") {
				existing.MetaDB = rt.opts.metaDB
			}
			if cmd.Flags().Changed("account-id") {
				existing.AccountID = rt.opts.accountID
			}
			if cmd.Flags().Changed("region") {
				existing.Region = region
			}
			if cmd.Flags().Changed("output") {
				existing.Output = rt.opts.output
			}
			cfg.Profiles[name] = existing

			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			if rt.opts.output == outputJSON {
				return rt.printJSON(map[string]string{"status": "ok", "profile": name, "path": ConfigPath()})
			}
			_, _ = fmt.Fprintf(rt.out, "Profile %q saved to %s\n", name, ConfigPath())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Profile name (required)")
	cmd.Flags().StringVar(&region, "region", "", "Default region for dataset listings")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newConfigUseProfileCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "use-profile <name>",
		Short: "Set the active configuration profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				return err
			}
			name := args[0]
			if _, ok := cfg.Profiles[name]; !ok {
				return fmt.Errorf("profile %q not found", name)
			}
			cfg.CurrentProfile = name
			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.out, "Active profile set to %q\n", name)
			return nil
		},
	}
}
