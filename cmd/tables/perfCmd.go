package tables

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/dNT/cmd/util"
	"github.com/ValentinKolb/dNT/lib/nt"
	"github.com/ValentinKolb/dNT/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dNT servers",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "/__perf"
	perfNumThreads = 10
	perfKeySpread  = 100
	perfOps        = 10000
	perfSkip       = make([]string, 0)
)

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different entries to use for the tests"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 10000, util.WrapString("Number of operations per benchmark"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfOps = max(viper.GetInt("ops"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfResult holds the outcome of one benchmark
type perfResult struct {
	name    string
	timer   metrics.Timer
	errors  metrics.Meter
	elapsed time.Duration
	skipped bool
}

func (r perfResult) opsPerSec() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.timer.Count()) / r.elapsed.Seconds()
}

// perfBenchmark is one operation under test, i is the operation number
type perfBenchmark struct {
	name    string
	prepare func(entries []nt.Entry) error
	op      func(entries []nt.Entry, i int) error
}

var perfBenchmarks = []perfBenchmark{
	{
		name: "set",
		op: func(entries []nt.Entry, i int) error {
			return entries[i%len(entries)].SetValue(nt.Double(float64(i)))
		},
	},
	{
		name:    "get",
		prepare: fillEntries,
		op: func(entries []nt.Entry, i int) error {
			_, err := entries[i%len(entries)].GetValue()
			return err
		},
	},
	{
		name: "resolve",
		op: func(_ []nt.Entry, i int) error {
			e := inst.GetEntry(fmt.Sprintf("%s/resolve/%d", perfKeyPrefix, i%perfKeySpread))
			if e.Handle() == 0 {
				return fmt.Errorf("resolution failed")
			}
			return nil
		},
	},
	{
		name:    "list",
		prepare: fillEntries,
		op: func(_ []nt.Entry, _ int) error {
			inst.GetEntriesFiltered(perfKeyPrefix+"/list/", nt.MaskAll())
			return nil
		},
	},
	{
		name:    "edit",
		prepare: fillEntries,
		op: func(entries []nt.Entry, i int) error {
			entries[i%len(entries)].Edit(func(v nt.Value) nt.Value {
				return nt.MapDouble(v, func(d float64) float64 { return d + 1 })
			})
			return nil
		},
	},
	{
		name:    "mixed",
		prepare: fillEntries,
		op: func(entries []nt.Entry, i int) error {
			e := entries[i%len(entries)]
			switch i % 3 {
			case 0:
				return e.SetValue(nt.Double(float64(i)))
			case 1:
				_, err := e.GetValue()
				return err
			default:
				_ = e.Type()
				return nil
			}
		},
	},
}

func fillEntries(entries []nt.Entry) error {
	for i, e := range entries {
		if err := e.SetValue(nt.Double(float64(i))); err != nil {
			return err
		}
	}
	return nil
}

func runPerf(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Performance testing tool for dNT servers")

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintln(out, util.GetClientConfig().String())
	fmt.Fprintf(out, "Threads: %d, Operations: %d, Entries: %d\n", perfNumThreads, perfOps, perfKeySpread)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "starting tests...")

	registry := metrics.NewRegistry()
	results := make([]perfResult, 0, len(perfBenchmarks))

	for _, b := range perfBenchmarks {
		result := perfResult{
			name:   b.name,
			timer:  metrics.GetOrRegisterTimer(b.name, registry),
			errors: metrics.GetOrRegisterMeter(b.name+".errors", registry),
		}

		if slices.Contains(perfSkip, b.name) {
			result.skipped = true
		} else if err := runBenchmark(b, &result); err != nil {
			return fmt.Errorf("benchmark %s: %w", b.name, err)
		}

		results = append(results, result)
		printPerfResult(result)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Fprintf(out, "\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Fprintln(out, "Export complete")
	}

	return nil
}

// runBenchmark spreads perfOps operations over perfNumThreads goroutines
func runBenchmark(b perfBenchmark, result *perfResult) error {
	entries := make([]nt.Entry, perfKeySpread)
	table := inst.GetTable(perfKeyPrefix + "/" + b.name)
	for i := range entries {
		entries[i] = table.Get(strconv.Itoa(i))
	}
	if b.prepare != nil {
		if err := b.prepare(entries); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	jobs := make(chan int, perfNumThreads)

	start := time.Now()
	for t := 0; t < perfNumThreads; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				var err error
				result.timer.Time(func() { err = b.op(entries, i) })
				if err != nil {
					result.errors.Mark(1)
					log.Printf("(%s) - error: %v\n", b.name, err)
				}
			}
		}()
	}
	for i := 0; i < perfOps; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	result.elapsed = time.Since(start)

	return nil
}

// printPerfResult prints the result of a benchmark in a formatted way
func printPerfResult(r perfResult) {
	if r.skipped {
		fmt.Printf("%-12sskipped\n", r.name)
		return
	}

	ps := r.timer.Percentiles([]float64{0.5, 0.99})
	fmt.Printf("%-12s%8.0f ops/sec\tmean %s\tp50 %s\tp99 %s\terrors %d\n",
		r.name,
		r.opsPerSec(),
		time.Duration(r.timer.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		r.errors.Count(),
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "Ops", "OpsPerSec", "MeanNs", "P50Ns", "P99Ns", "Errors", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"InstanceID", "Serializer", "Transport", "Threads", "Entries",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, r := range results {
		ps := r.timer.Percentiles([]float64{0.5, 0.99})
		row := []string{
			r.name,
			strconv.FormatInt(r.timer.Count(), 10),
			fmt.Sprintf("%.0f", r.opsPerSec()),
			fmt.Sprintf("%.0f", r.timer.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			strconv.FormatInt(r.errors.Count(), 10),
			strconv.FormatBool(r.skipped),
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetInstanceID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.name, err)
		}
	}

	return nil
}
