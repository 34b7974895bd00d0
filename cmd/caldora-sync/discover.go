package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/cyp0633/caldora-sync/davclient"
	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List the calendars of the configured account",
	Args:  cobra.NoArgs,
	RunE:  runDiscover,
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := davclient.NewClient(cfg.Server.URL, cfg.Server.Username, cfg.Server.Password,
		davclient.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	principal, err := client.PrincipalURL(ctx)
	if err != nil {
		return err
	}
	home, err := client.CalendarHomeSetURL(ctx)
	if err != nil {
		return err
	}
	cals, err := client.RemoteCalendars(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "principal:     %s\n", principal)
	fmt.Fprintf(out, "calendar home: %s\n", home)
	for _, id := range slices.Sorted(maps.Keys(cals)) {
		cal := cals[id]
		fmt.Fprintf(out, "  %-24s %-14s %s\n", cal.Name(), cal.SupportedComponents(), id)
	}
	return nil
}
