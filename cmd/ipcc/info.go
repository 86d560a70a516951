package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/eugeniofciuvasile/ipcc/internal/device"
)

type managedEntry struct {
	Class  string `json:"class"`
	Path   string `json:"path"`
	Format string `json:"format"`
}

func (a *app) newFilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files [class]",
		Short: "List the managed files of each device type",
		Long: `List the files ipcc fetches for a device type: camera or board.
Without a class every type is listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classes := device.Classes()
			if len(args) == 1 {
				class, err := device.ParseClass(args[0])
				if err != nil {
					return err
				}
				classes = []device.Class{class}
			}

			entries := []managedEntry{}
			for _, class := range classes {
				for _, f := range device.FileSet(class) {
					entries = append(entries, managedEntry{Class: class.String(), Path: f.Path, Format: f.Format.String()})
				}
			}

			if a.jsonOut {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No managed files for this device type")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "CLASS\tPATH\tFORMAT")
			fmt.Fprintln(w, "-----\t----\t------")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Class, e.Path, e.Format)
			}
			return w.Flush()
		},
	}
}

type probeResult struct {
	Host     string `json:"host"`
	Hostname string `json:"hostname"`
	Class    string `json:"class"`
}

func (a *app) newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Print the device hostname and the type it maps to",
		Long: `Connect, run hostname and report the device type inferred from it.
With --verify and an explicit --class a mismatch is an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, target, err := a.connect(cmd)
			if err != nil {
				return err
			}
			hostname, class, err := orch.Probe(cmd.Context(), target.Creds)
			if err != nil {
				return err
			}
			if a.opts.Verify {
				if _, err := device.Resolve(target.Class, hostname); err != nil {
					return err
				}
			}

			res := probeResult{Host: target.Creds.Address(), Hostname: hostname, Class: class.String()}
			if a.jsonOut {
				return writeJSON(cmd, res)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "HOST\tHOSTNAME\tCLASS")
			fmt.Fprintf(w, "%s\t%s\t%s\n", res.Host, res.Hostname, class.Label())
			return w.Flush()
		},
	}
}
