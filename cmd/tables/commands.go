package tables

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/ValentinKolb/dNT/lib/nt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := viewOf(inst.GetEntry(args[0]))
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), viper.GetString("output"), []entryView{view})
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value of an entry",
		Long:  "Sets the value of an entry. The write is rejected if the entry holds a value of another type.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, _ := cmd.Flags().GetString("type")
			v, err := parseValue(typ, args[1])
			if err != nil {
				return err
			}
			if err := inst.GetEntry(args[0]).SetValue(v); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "set successfully")
			return nil
		},
	}
	editCmd = &cobra.Command{
		Use:   "edit [key]",
		Short: "Replaces the value of an entry by the result of an expression",
		Long:  `Evaluates an expression with the current value bound to "value" and writes the result back, e.g. --expr 'value + 1' or --expr 'map(value, # * 2)'. The entry must hold a value.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _ := cmd.Flags().GetString("expr")
			entry := inst.GetEntry(args[0])

			v, err := entry.GetValue()
			if err != nil {
				return err
			}
			if v == nil {
				return fmt.Errorf("entry %s holds no value", args[0])
			}

			updated, err := evalExpr(code, v)
			if err != nil {
				return fmt.Errorf("evaluating %q: %w", code, err)
			}
			if err := entry.SetValue(updated); err != nil {
				return err
			}

			view, err := viewOf(entry)
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), viper.GetString("output"), []entryView{view})
		},
	}
	listCmd = &cobra.Command{
		Use:   "list [prefix]",
		Short: "Lists all entries whose name starts with prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}

			types, _ := cmd.Flags().GetStringSlice("types")
			mask, err := parseMask(types)
			if err != nil {
				return err
			}

			entries := inst.GetEntriesFiltered(prefix, mask)
			views := make([]entryView, 0, len(entries))
			for _, e := range entries {
				view, err := viewOf(e)
				if err != nil {
					return err
				}
				views = append(views, view)
			}
			return printEntries(cmd.OutOrStdout(), viper.GetString("output"), views)
		},
	}
	connectionsCmd = &cobra.Command{
		Use:   "connections",
		Short: "Lists the clients connected to the instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var views []connectionView
			err := inst.WithConnections(func(snap *nt.ConnectionSnapshot) error {
				for _, c := range snap.All() {
					views = append(views, connectionViewOf(c))
				}
				return nil
			})
			if err != nil {
				return err
			}
			return printConnections(cmd.OutOrStdout(), viper.GetString("output"), views)
		},
	}
	deleteAllCmd = &cobra.Command{
		Use:   "delete-all",
		Short: "Removes the values of all entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := inst.DeleteAllEntries(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted successfully")
			return nil
		},
	}
	flushCmd = &cobra.Command{
		Use:   "flush",
		Short: "Persists pending changes on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := inst.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "flushed successfully")
			return nil
		},
	}
	counterCmd = &cobra.Command{
		Use:   "counter [key]",
		Short: "Sets an entry to 0 and increments it periodically",
		Long:  "Sets the entry (default /foo/bar/baz) to 0.0 and adds 1.0 every interval until interrupted or --count increments are done.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := "/foo/bar/baz"
			if len(args) == 1 {
				key = args[0]
			}
			interval, _ := cmd.Flags().GetDuration("interval")
			count, _ := cmd.Flags().GetInt("count")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return runCounter(ctx, inst.GetEntry(key), interval, count, func(v nt.Value) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, formatNative(nt.Native(v)))
			})
		},
	}
)

func init() {
	setCmd.Flags().String("type", "auto", "Type of the value (auto, bool, double, string, raw, bool[], double[], string[])")
	editCmd.Flags().String("expr", "value", "Expression computing the new value")
	listCmd.Flags().StringSlice("types", nil, "Only list entries of these types (e.g. Double,String)")
	counterCmd.Flags().Duration("interval", time.Second, "Time between two increments")
	counterCmd.Flags().Int("count", 0, "Number of increments (0 runs until interrupted)")
}

// parseMask builds a mask from type names as printed by EntryType.String
func parseMask(names []string) (nt.EntryMask, error) {
	mask := nt.MaskAll()
	for _, name := range names {
		found := false
		for _, t := range nt.EntryTypes {
			if t.String() == name {
				mask = mask.With(t)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("invalid entry type %s", name)
		}
	}
	return mask, nil
}

// runCounter sets entry to 0.0 and edits it +1.0 every interval. report is
// called with every value written.
func runCounter(ctx context.Context, entry nt.Entry, interval time.Duration, count int, report func(nt.Value)) error {
	if err := entry.SetValue(nt.Double(0)); err != nil {
		return err
	}
	report(nt.Double(0))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; count <= 0 || i < count; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		entry.Edit(func(v nt.Value) nt.Value {
			return nt.MapDouble(v, func(d float64) float64 { return d + 1 })
		})

		v, err := entry.GetValue()
		if err != nil {
			return err
		}
		report(v)
	}
	return nil
}
