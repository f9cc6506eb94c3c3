package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/eunhhu/carf-sub000/internal/backend"
	"github.com/spf13/cobra"
)

var devicesListProcesses string

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices and, optionally, their processes",
	Long: `List the devices the backend currently sees.

Examples:
  carfctl devices
  carfctl devices --processes local`,
	RunE: runDevices,
}

func init() {
	devicesCmd.Flags().StringVar(&devicesListProcesses, "processes", "", "Also list processes on this device ID")
}

func runDevices(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	facade := newFacade()

	devices, err := facade.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.Name, d.Type)
	}
	tw.Flush()

	if devicesListProcesses == "" {
		return nil
	}

	procs, err := facade.ListProcesses(ctx, devicesListProcesses)
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	fmt.Println()
	tw = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tNAME")
	for _, p := range procs {
		fmt.Fprintf(tw, "%d\t%s\n", p.PID, p.Name)
	}
	tw.Flush()

	return nil
}

// newFacade returns the backend facade carfctl drives. A real native
// instrumentation binding is out of scope; NullFacade is the non-hosted
// default and SimFacade (--sim) hosts an in-process fixture agent for
// local development.
func newFacade() backend.Facade {
	if useSim {
		return backend.NewSimFacade(nil, 0)
	}
	return backend.NewNullFacade()
}
