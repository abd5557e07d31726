package simyard

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/icarus-itcs/simyard/internal/device"
	"github.com/icarus-itcs/simyard/internal/platform/ios"
)

var createRuntime string

var createCmd = &cobra.Command{
	Use:   "create <name> <device-type>",
	Short: "Create a new iOS simulator",
	Long: `Create a new iOS simulator from a device type, optionally pinning a
runtime. Without --runtime the newest installed runtime for the device
type is used.

See 'simyard devicetypes' and 'simyard runtimes' for the accepted values.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(nil)
		if err != nil {
			return err
		}
		dev, err := a.mgr.CreateDevice(cmd.Context(), device.PlatformIOS, args[0], args[1], createRuntime)
		if err != nil {
			return err
		}
		fmt.Printf("%s created %s (%s)\n", render(okStyle, "✓"), dev.Name, render(mutedStyle, dev.NativeID))
		return nil
	},
}

var deviceTypesCmd = &cobra.Command{
	Use:   "devicetypes",
	Short: "List the simulator hardware profiles available for create",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(nil)
		if err != nil {
			return err
		}
		sim, err := simulatorAdapter(a)
		if err != nil {
			return err
		}
		types, err := sim.DeviceTypes(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, render(headerStyle, "NAME\tIDENTIFIER"))
		for _, t := range types {
			fmt.Fprintf(w, "%s\t%s\n", t.Name, render(mutedStyle, t.Identifier))
		}
		return w.Flush()
	},
}

var runtimesCmd = &cobra.Command{
	Use:   "runtimes",
	Short: "List the installed simulator runtimes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(nil)
		if err != nil {
			return err
		}
		sim, err := simulatorAdapter(a)
		if err != nil {
			return err
		}
		runtimes, err := sim.Runtimes(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, render(headerStyle, "NAME\tVERSION\tAVAILABLE\tIDENTIFIER"))
		for _, r := range runtimes {
			available := render(okStyle, "yes")
			if !r.IsAvailable {
				available = render(errStyle, "no")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Version, available, render(mutedStyle, r.Identifier))
		}
		return w.Flush()
	},
}

func simulatorAdapter(a *app) (*ios.Adapter, error) {
	adapter, ok := a.mgr.Adapter(device.PlatformIOS)
	if !ok {
		return nil, device.NewUnsupported("simulator inventory")
	}
	sim, ok := adapter.(*ios.Adapter)
	if !ok {
		return nil, device.NewUnsupported("simulator inventory")
	}
	return sim, nil
}

func init() {
	createCmd.Flags().StringVar(&createRuntime, "runtime", "", "runtime identifier to pin (default: newest installed)")
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(deviceTypesCmd)
	rootCmd.AddCommand(runtimesCmd)
}
