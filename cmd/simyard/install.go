package simyard

import (
	"fmt"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install <device> <path>",
	Short: "Install an app artifact on a device",
	Long: `Install an app artifact (.app bundle or .apk) on a device.

iOS simulators must be booted first. Android emulators are booted
automatically when needed.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(nil)
		if err != nil {
			return err
		}
		dev, err := a.mgr.InstallApp(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s installed %s on %s\n", render(okStyle, "✓"), args[1], dev.Name)
		return nil
	},
}

var batteryCharging bool

var batteryCmd = &cobra.Command{
	Use:   "battery <device> <level>",
	Short: "Override the displayed battery level",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var level int
		if _, err := fmt.Sscanf(args[1], "%d", &level); err != nil {
			return fmt.Errorf("battery level must be a number, got %q", args[1])
		}

		a, err := buildApp(nil)
		if err != nil {
			return err
		}
		dev, err := a.mgr.ApplyBattery(cmd.Context(), args[0], level, batteryCharging)
		if err != nil {
			return err
		}
		fmt.Printf("%s battery set to %d%% on %s\n", render(okStyle, "✓"), level, dev.Name)
		return nil
	},
}

var locationCmd = &cobra.Command{
	Use:   "location <device> <latitude> <longitude>",
	Short: "Override the simulated GPS position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var lat, lon float64
		if _, err := fmt.Sscanf(args[1], "%g", &lat); err != nil {
			return fmt.Errorf("latitude must be a number, got %q", args[1])
		}
		if _, err := fmt.Sscanf(args[2], "%g", &lon); err != nil {
			return fmt.Errorf("longitude must be a number, got %q", args[2])
		}

		a, err := buildApp(nil)
		if err != nil {
			return err
		}
		dev, err := a.mgr.ApplyLocation(cmd.Context(), args[0], lat, lon)
		if err != nil {
			return err
		}
		fmt.Printf("%s location set to %g,%g on %s\n", render(okStyle, "✓"), lat, lon, dev.Name)
		return nil
	},
}

func init() {
	batteryCmd.Flags().BoolVar(&batteryCharging, "charging", false, "show the battery as charging")
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(batteryCmd)
	rootCmd.AddCommand(locationCmd)
}
