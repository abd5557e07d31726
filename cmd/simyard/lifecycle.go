package simyard

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var bootCmd = &cobra.Command{
	Use:   "boot <device>",
	Short: "Boot a device and wait until it is usable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(nil)
		if err != nil {
			return err
		}
		dev, err := a.mgr.Boot(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s %s is %s\n", stateDot(dev.State), dev.Name, stateLabel(dev.State))
		return nil
	},
}

var shutdownCmd = &cobra.Command{
	Use:     "shutdown <device>",
	Aliases: []string{"stop"},
	Short:   "Shut a device down",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(nil)
		if err != nil {
			return err
		}
		dev, err := a.mgr.Shutdown(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s %s is %s\n", stateDot(dev.State), dev.Name, stateLabel(dev.State))
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart <device>",
	Short: "Power-cycle a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(nil)
		if err != nil {
			return err
		}
		dev, err := a.mgr.Restart(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s %s is %s\n", stateDot(dev.State), dev.Name, stateLabel(dev.State))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <device>",
	Aliases: []string{"rm"},
	Short:   "Delete a device definition",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(nil)
		if err != nil {
			return err
		}
		if err := a.mgr.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("%s deleted %s\n", render(okStyle, "✓"), args[0])
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <device>",
	Short: "Show the live state of a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(nil)
		if err != nil {
			return err
		}
		dev, status, err := a.mgr.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s %s (%s)\n", stateDot(status.State), dev.Name, platformBadge(dev.Platform))
		fmt.Printf("  state: %s\n", stateLabel(status.State))
		fmt.Printf("  as of: %s\n", status.LastUpdated.Format("15:04:05"))

		keys := make([]string, 0, len(status.Info))
		for k := range status.Info {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %s\n", k, status.Info[k])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bootCmd)
	rootCmd.AddCommand(shutdownCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statusCmd)
}
