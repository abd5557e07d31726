package simyard

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/icarus-itcs/simyard/internal/device"
	"github.com/icarus-itcs/simyard/internal/manager"
)

var listRefresh bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "devices"},
	Short:   "List simulators and emulators",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(nil)
		if err != nil {
			return err
		}

		devices, err := a.mgr.List(cmd.Context(), listRefresh)
		var partial *manager.PartialError
		if err != nil && !errors.As(err, &partial) {
			return err
		}

		if len(devices) == 0 {
			fmt.Println("no devices found")
		} else {
			printDeviceTable(devices)
		}

		if partial != nil {
			for _, e := range partial.Failures.Errors {
				fmt.Fprintln(os.Stderr, render(warnStyle, "warning: ")+e.Error())
			}
		}
		return nil
	},
}

func printDeviceTable(devices []device.Device) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, render(headerStyle, "  NAME\tPLATFORM\tSTATE\tOS\tMODEL\tID"))
	for _, d := range devices {
		fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\t%s\t%s\n",
			stateDot(d.State),
			d.Name,
			platformBadge(d.Platform),
			stateLabel(d.State),
			orDash(d.OSVersion),
			orDash(d.Model),
			render(mutedStyle, d.ID),
		)
	}
	_ = w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	listCmd.Flags().BoolVar(&listRefresh, "refresh", false, "bypass the listing cache")
	rootCmd.AddCommand(listCmd)
}
