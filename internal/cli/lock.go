package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"envlock/internal/app"
)

type lockOptions struct {
	Manifest       string
	GlobalManifest string
	Lockfile       string
	Output         string
	Pins           string
	Systems        []string
	Upgrade        bool
	UpgradeGroups  []string
}

func newLockCommand() *cobra.Command {
	opts := lockOptions{}
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Resolve a manifest and write the lockfile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLock(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "Manifest file path")
	cmd.Flags().StringVar(&opts.GlobalManifest, "global-manifest", "", "Global manifest file path")
	cmd.Flags().StringVar(&opts.Lockfile, "lockfile", "", "Prior lockfile path")
	cmd.Flags().StringVar(&opts.Output, "output", "envlock.lock", "Output lockfile path")
	cmd.Flags().StringVar(&opts.Pins, "pins", "", "Registry pins file path")
	cmd.Flags().StringSliceVar(&opts.Systems, "system", nil, "Systems to lock (overrides manifest)")
	cmd.Flags().BoolVar(&opts.Upgrade, "upgrade", false, "Upgrade every group")
	cmd.Flags().StringSliceVar(&opts.UpgradeGroups, "upgrade-group", nil, "Groups to upgrade")

	_ = viper.BindPFlag("manifest", cmd.Flags().Lookup("manifest"))
	_ = viper.BindPFlag("global_manifest", cmd.Flags().Lookup("global-manifest"))
	_ = viper.BindPFlag("lockfile", cmd.Flags().Lookup("lockfile"))
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("pins", cmd.Flags().Lookup("pins"))
	_ = viper.BindPFlag("systems", cmd.Flags().Lookup("system"))
	_ = viper.BindPFlag("upgrade", cmd.Flags().Lookup("upgrade"))
	_ = viper.BindPFlag("upgrade_groups", cmd.Flags().Lookup("upgrade-group"))

	return cmd
}

func runLock(ctx context.Context, cmd *cobra.Command, opts lockOptions) error {
	service := newAppService()
	result, err := service.Lock(ctx, app.LockRequest{
		ManifestPath:       resolveString(cmd, opts.Manifest, "manifest", "manifest"),
		GlobalManifestPath: resolveString(cmd, opts.GlobalManifest, "global_manifest", "global-manifest"),
		LockfilePath:       resolveString(cmd, opts.Lockfile, "lockfile", "lockfile"),
		OutputPath:         resolveString(cmd, opts.Output, "output", "output"),
		PinsPath:           resolveString(cmd, opts.Pins, "pins", "pins"),
		Systems:            resolveStrings(cmd, opts.Systems, "systems", "system"),
		UpgradeAll:         resolveBool(cmd, opts.Upgrade, "upgrade", "upgrade"),
		UpgradeGroups:      resolveStrings(cmd, opts.UpgradeGroups, "upgrade_groups", "upgrade-group"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("locked %d package(s) for %s -> %s\n",
		result.PackageCount, strings.Join(result.Systems, ", "), result.OutputPath)
	return nil
}
