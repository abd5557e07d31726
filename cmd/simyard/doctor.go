package simyard

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/icarus-itcs/simyard/internal/config"
	"github.com/icarus-itcs/simyard/internal/preflight"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the platform toolchains are installed and usable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		results := preflight.Run(cfg)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, c := range results.Checks {
			fmt.Fprintf(w, "%s %s\t%s\t%s\n", checkIcon(c.Status), c.Name, c.Message, render(mutedStyle, c.Path))
		}
		_ = w.Flush()

		if len(results.Discoveries) > 0 {
			fmt.Println()
			fmt.Println(render(headerStyle, "Discovered"))
			dw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, d := range results.Discoveries {
				fmt.Fprintf(dw, "  %s\t%s\t%s\n", d.Name, d.Details, render(mutedStyle, d.Path))
			}
			_ = dw.Flush()
		}

		fmt.Println()
		fmt.Println(results.Summary())
		if results.HasErrors {
			return fmt.Errorf("preflight found problems")
		}
		return nil
	},
}

func checkIcon(status preflight.Status) string {
	switch status {
	case preflight.StatusOK:
		return render(okStyle, "✓")
	case preflight.StatusWarning:
		return render(warnStyle, "!")
	default:
		return render(errStyle, "✗")
	}
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
