// Command perf-regression compares two `go test -bench` outputs and fails
// when a tracked benchmark got slower than the allowed ratio.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

const defaultThreshold = 0.30

// defaultTracked are the session hot paths guarded in CI.
var defaultTracked = map[string][]string{
	"BenchmarkManagerGet":    {"ns/op", "allocs/op"},
	"BenchmarkManagerRenew":  {"ns/op", "allocs/op"},
	"BenchmarkManagerCreate": {"ns/op"},
}

// samples maps benchmark -> unit -> values, one value per -count run.
type samples map[string]map[string][]float64

type comparison struct {
	benchmark string
	unit      string
	base      float64
	candidate float64
}

func (c comparison) delta() float64 {
	return (c.candidate - c.base) / c.base
}

func main() {
	var (
		baselinePath  string
		candidatePath string
		threshold     float64
		only          string
	)
	flag.StringVar(&baselinePath, "baseline", "", "path to baseline benchmark output")
	flag.StringVar(&candidatePath, "candidate", "", "path to candidate benchmark output")
	flag.Float64Var(&threshold, "threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	flag.StringVar(&only, "bench", "", "comma-separated benchmark names to track with ns/op (default: session hot paths)")
	flag.Parse()

	if baselinePath == "" || candidatePath == "" {
		fmt.Fprintln(os.Stderr, "-baseline and -candidate are required")
		os.Exit(2)
	}
	if threshold < 0 {
		fmt.Fprintln(os.Stderr, "-threshold must be >= 0")
		os.Exit(2)
	}

	tracked := defaultTracked
	if only != "" {
		tracked = map[string][]string{}
		for _, name := range strings.Split(only, ",") {
			if name = strings.TrimSpace(name); name != "" {
				tracked[name] = []string{"ns/op"}
			}
		}
	}

	baseline, err := parseFile(baselinePath, tracked)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse baseline: %v\n", err)
		os.Exit(1)
	}
	candidate, err := parseFile(candidatePath, tracked)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse candidate: %v\n", err)
		os.Exit(1)
	}

	results, failures := compare(baseline, candidate, tracked, threshold)
	fmt.Println("benchmark unit baseline candidate delta")
	for _, r := range results {
		fmt.Printf("%s %s %.3f %.3f %+0.2f%%\n", r.benchmark, r.unit, r.base, r.candidate, r.delta()*100)
	}
	if len(failures) > 0 {
		fmt.Fprintln(os.Stderr, "performance regression threshold exceeded:")
		for _, failure := range failures {
			fmt.Fprintf(os.Stderr, "  - %s\n", failure)
		}
		os.Exit(1)
	}
}

// compare returns one row per tracked metric in a stable order, plus a
// message for every missing or regressed metric.
func compare(baseline, candidate samples, tracked map[string][]string, threshold float64) ([]comparison, []string) {
	names := make([]string, 0, len(tracked))
	for name := range tracked {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		rows     []comparison
		failures []string
	)
	for _, name := range names {
		for _, unit := range tracked[name] {
			b, c := baseline[name][unit], candidate[name][unit]
			if len(b) == 0 || len(c) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", name, unit))
				continue
			}
			row := comparison{benchmark: name, unit: unit, base: median(b), candidate: median(c)}
			if row.base <= 0 {
				failures = append(failures, fmt.Sprintf("invalid baseline median for %s %s", name, unit))
				continue
			}
			rows = append(rows, row)
			if row.delta() > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)",
					name, unit, row.delta()*100, threshold*100))
			}
		}
	}
	return rows, failures
}

func parseFile(path string, tracked map[string][]string) (samples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f, tracked)
}

// parse reads benchmark lines such as
//
//	BenchmarkManagerGet-8   50000   23456 ns/op   1024 B/op   12 allocs/op
func parse(r io.Reader, tracked map[string][]string) (samples, error) {
	out := samples{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || !strings.HasPrefix(fields[0], "Benchmark") {
			continue
		}
		name := trimProcs(fields[0])
		if _, ok := tracked[name]; !ok {
			continue
		}
		if out[name] == nil {
			out[name] = map[string][]float64{}
		}
		for i := 2; i+1 < len(fields); i += 2 {
			value, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			out[name][fields[i+1]] = append(out[name][fields[i+1]], value)
		}
	}
	return out, scanner.Err()
}

// trimProcs drops the -GOMAXPROCS suffix go test appends.
func trimProcs(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
