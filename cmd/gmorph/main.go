// Command-line interface to gmorph graph rewriting.
// Provides commands to run rewriting pipelines and inspect stored results.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/gmorph/gmorph/gmorph"
	"github.com/gmorph/gmorph/graph"
	"github.com/gmorph/gmorph/oracle"
	"github.com/gmorph/gmorph/pipeline"
	"github.com/gmorph/gmorph/similarity"
	"github.com/gmorph/gmorph/storage"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Write result records to this file instead of stdout.
	outputPath = flag.String("output", "", "")

	// Profile CPU usage using standard gotest system.
	cpuprofile = flag.String("cpuprofile", "", "")

	// Profile memory usage using standard gotest system.
	memprofile = flag.String("memprofile", "", "")

	// Number of logical CPUs to use for rewriting runs.
	useCPU = flag.Int("numcpu", 0, "")
)

const helpMessage = `
gmorph rewrites labeled property graphs with edits derived by declarative rule oracles

Usage: gmorph [options] <command>

      -output     =string   Write result records to this file instead of stdout.
      -cpuprofile =string   Write CPU profile to this file.
      -memprofile =string   Write memory profile to this file on ctrl-C.
      -numcpu     =number   Number of logical CPUs to use.
      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message

Commands:

	about
	help
	run     <config path> <graph file> ... [target=/path/to/graph.json]
	results <config path> <run id>

The run command rewrites each input graph with every transformation named in the
config, ranking results against the target graph when one is given.  Accepted
results stream to stdout and, when configured, to the local result store and
Kafka.  The results command replays a stored run.
`

var usage = func() {
	fmt.Printf(helpMessage)
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() >= 1 && strings.ToLower(flag.Args()[0]) == "help" {
		*showHelp = true
	}

	if *runVerbose {
		gmorph.Verbose = true
	} else {
		gmorph.SetLogMode(gmorph.InfoMode)
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	// Unless overridden, all logical CPUs are available to the worker pool.
	if *useCPU != 0 {
		runtime.GOMAXPROCS(*useCPU)
	}

	// Capture ctrl+c and other interrupts.  Then handle graceful shutdown.
	stopSig := make(chan os.Signal, 1)
	go func() {
		for sig := range stopSig {
			log.Printf("Stop signal captured: %q.  Shutting down...\n", sig)
			if *memprofile != "" {
				log.Printf("Storing memory profiling to %s...\n", *memprofile)
				f, err := os.Create(*memprofile)
				if err != nil {
					log.Fatal(err)
				}
				pprof.WriteHeapProfile(f)
				f.Close()
			}
			if *cpuprofile != "" {
				log.Printf("Stopping CPU profiling to %s...\n", *cpuprofile)
				pprof.StopCPUProfile()
			}
			gmorph.Shutdown()
			time.Sleep(1 * time.Second)
			os.Exit(0)
		}
	}()
	signal.Notify(stopSig, os.Interrupt, syscall.SIGTERM)

	command := gmorph.Command(flag.Args())
	if err := DoCommand(command); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// DoCommand serves as a switchboard for commands.
func DoCommand(cmd gmorph.Command) error {
	if len(cmd) == 0 {
		return fmt.Errorf("blank command")
	}

	switch cmd.Name() {
	case "run":
		return DoRun(cmd)
	case "results":
		return DoResults(cmd)
	case "about":
		fmt.Printf("gmorph %s\n", gmorph.Version)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
	return nil
}

// DoRun performs the "run" command, rewriting the given graphs with the
// configured oracle and streaming accepted results to the sinks.
func DoRun(cmd gmorph.Command) error {
	var configPath string
	graphPaths := cmd.CommandArgs(&configPath)
	if configPath == "" {
		return fmt.Errorf("run command must be followed by the path to a TOML config")
	}
	if len(graphPaths) == 0 {
		return fmt.Errorf("run command needs at least one input graph file")
	}

	config, err := pipeline.LoadConfig(configPath)
	if err != nil {
		return err
	}
	config.Logging.SetLogger()
	defer gmorph.Shutdown()

	// Rule programs are code, not configuration, so the command line can only
	// reach an oracle served elsewhere.  Embedded evaluators go through the
	// pipeline package directly.
	if config.Oracle.Address == "" {
		return fmt.Errorf("config needs an [oracle] address; there is no built-in rule program")
	}

	graphs, err := loadGraphs(graphPaths)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Workers:         config.Pipeline.Workers,
		Queue:           config.Pipeline.Queue,
		Transformations: config.Pipeline.Transformations,
		Keep:            config.Pipeline.Keep,
		Factory:         oracle.RemoteFactory(config.Oracle.Address),
	}

	if targetPath, found := cmd.Parameter(gmorph.KeyTarget); found {
		target, err := loadGraph(targetPath)
		if err != nil {
			return err
		}
		opts.Target = target
	}
	if config.Cache.SignatureBytes > 0 {
		opts.Cache = similarity.NewSignatureCache(config.Cache.SignatureBytes)
	}

	out := io.Writer(os.Stdout)
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	sinks := pipeline.MultiSink{pipeline.NewWriterSink(out, *runVerbose)}

	runID := storage.NewRunID()
	if config.Store.Path != "" {
		store, err := storage.OpenResultStore(config.Store)
		if err != nil {
			return err
		}
		defer store.Close()
		sinks = append(sinks, pipeline.NewStoreSink(store, runID))
	}
	if len(config.Kafka.Servers) > 0 {
		publisher, err := storage.NewKafkaPublisher(config.Kafka)
		if err != nil {
			return err
		}
		defer publisher.Close()
		sinks = append(sinks, pipeline.NewKafkaSink(publisher, runID))
	}
	opts.Sink = sinks

	gmorph.Infof("Run %s: rewriting %d input graph(s)\n", runID, len(graphs))
	return pipeline.Run(context.Background(), graphs, opts)
}

// DoResults performs the "results" command, replaying every stored record
// for a given run id.
func DoResults(cmd gmorph.Command) error {
	var configPath, runID string
	cmd.CommandArgs(&configPath, &runID)
	if configPath == "" || runID == "" {
		return fmt.Errorf("results command must be followed by a TOML config path and a run id")
	}

	config, err := pipeline.LoadConfig(configPath)
	if err != nil {
		return err
	}
	config.Logging.SetLogger()
	defer gmorph.Shutdown()

	if config.Store.Path == "" {
		return fmt.Errorf("config has no [store] path to read results from")
	}
	store, err := storage.OpenResultStore(config.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	count := int64(0)
	err = store.ForEach(runID, func(res storage.Result) error {
		count++
		fmt.Printf("=== %s batch %d", res.Transformation, res.Batch)
		if res.Ranked {
			fmt.Printf(" similarity %.6f", res.Score)
		}
		fmt.Printf("\n%s---\n%s", res.Before, res.After)
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("Found %s result(s) for run %s.\n", humanize.Comma(count), runID)
	return nil
}

func loadGraph(path string) (*graph.PropertyGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := graph.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("graph file %s: %v", path, err)
	}
	return g, nil
}

func loadGraphs(paths []string) ([]*graph.PropertyGraph, error) {
	graphs := make([]*graph.PropertyGraph, 0, len(paths))
	for _, path := range paths {
		g, err := loadGraph(path)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}
