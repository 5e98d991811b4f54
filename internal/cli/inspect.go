package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"envlock/internal/app"
)

type inspectOptions struct {
	Lockfile string
}

func newInspectCommand() *cobra.Command {
	opts := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize a lockfile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Lockfile, "lockfile", "envlock.lock", "Lockfile path")
	_ = viper.BindPFlag("lockfile", cmd.Flags().Lookup("lockfile"))
	return cmd
}

func runInspect(cmd *cobra.Command, opts inspectOptions) error {
	service := newAppService()
	result, err := service.Inspect(app.InspectRequest{
		LockfilePath: resolveString(cmd, opts.Lockfile, "lockfile", "lockfile"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("registry inputs: %d\n", result.InputCount)
	for _, system := range result.Systems {
		fmt.Printf("%s: %d package(s)\n", system.System, len(system.Packages))
		for _, pkg := range system.Packages {
			fmt.Printf("- %s -> %s (priority=%d, input=%s)\n",
				pkg.InstallID, pkg.AttrPath, pkg.Priority, pkg.InputRef)
		}
		for _, iid := range system.Unresolved {
			fmt.Printf("- %s (optional, unresolved)\n", iid)
		}
	}
	return nil
}
