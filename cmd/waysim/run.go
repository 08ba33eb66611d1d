package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/waysim/acceptancetests/memaccessagent"
	"github.com/sarchlab/waysim/cache"
	"github.com/sarchlab/waysim/cache/trace"
	"github.com/sarchlab/waysim/datarecording"
	"github.com/sarchlab/waysim/mem/idealmemcontroller"
	"github.com/sarchlab/waysim/monitoring"
	"github.com/sarchlab/waysim/sim"
	"github.com/sarchlab/waysim/sim/directconnection"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a randomized cache simulation.",
	Long: `Run drives a stream of random read and write requests through the ` +
		`cache and reports the hit and miss counts at the end.`,
	Run: func(cmd *cobra.Command, _ []string) {
		runSimulation(cmd)
	},
}

func init() {
	runCmd.Flags().Int("num-sets", 64, "Number of sets in the cache")
	runCmd.Flags().Int("latency", 100, "Memory latency in cycles")
	runCmd.Flags().Int("num-access", 100000, "Number of accesses to generate")
	runCmd.Flags().Int64("seed", 0, "Random seed, 0 uses the current time")
	runCmd.Flags().Uint64("max-address", 1048576, "Address range to use")
	runCmd.Flags().String("record", "",
		"Record cache accesses into an SQLite database with the given name")
	runCmd.Flags().Bool("monitor", false, "Start the monitoring server")
	runCmd.Flags().Int("monitor-port", 0, "Port for the monitoring server")
	runCmd.Flags().Bool("open-browser", false,
		"Open the monitoring page in a browser")
	runCmd.Flags().Bool("verbose", false, "Print all the events")

	rootCmd.AddCommand(runCmd)
}

type simulationEnv struct {
	engine sim.Engine
	agent  *memaccessagent.MemAccessAgent
	cache  *cache.Comp
}

func runSimulation(cmd *cobra.Command) {
	initSeed(cmd)

	env := buildEnvironment(cmd)
	monitor := setupMonitoring(cmd, env)
	setupRecording(cmd, env)

	var bar *monitoring.ProgressBar

	numAccess, _ := cmd.Flags().GetInt("num-access")
	if monitor != nil {
		bar = monitor.CreateProgressBar("Accesses", uint64(numAccess)*2)
		go updateProgress(bar, env.agent)
	}

	err := env.engine.Run()
	if err != nil {
		log.Panic(err)
	}

	if bar != nil {
		monitor.CompleteProgressBar(bar)
	}

	fmt.Printf("Hits %d, Misses %d\n",
		env.cache.HitCount(), env.cache.MissCount())

	atexit.Exit(0)
}

func initSeed(cmd *cobra.Command) {
	seed, _ := cmd.Flags().GetInt64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	fmt.Fprintf(os.Stderr, "Seed %d\n", seed)

	rand.Seed(seed)
}

func buildEnvironment(cmd *cobra.Command) *simulationEnv {
	numSets, _ := cmd.Flags().GetInt("num-sets")
	latency, _ := cmd.Flags().GetInt("latency")
	numAccess, _ := cmd.Flags().GetInt("num-access")
	maxAddress, _ := cmd.Flags().GetUint64("max-address")
	verbose, _ := cmd.Flags().GetBool("verbose")

	engine := sim.NewSerialEngine()
	if verbose {
		engine.AcceptHook(sim.NewEventLogger(log.New(os.Stdout, "", 0)))
	}

	conn := directconnection.MakeBuilder().
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		Build("Conn")

	agent := memaccessagent.NewMemAccessAgent(engine, "Agent")
	agent.MaxAddress = maxAddress
	agent.WriteLeft = numAccess
	agent.ReadLeft = numAccess

	cacheComp := cache.MakeBuilder().
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		WithNumSets(numSets).
		WithWayAssociativity(4).
		Build("Cache")

	dram := idealmemcontroller.MakeBuilder().
		WithEngine(engine).
		WithLatency(latency).
		WithNewStorage(maxAddress).
		Build("DRAM")

	cacheComp.BottomModule = dram.GetPortByName("Top").AsRemote()
	agent.LowModule = cacheComp.GetPortByName("Top")

	conn.PlugIn(agent.GetPortByName("Mem"))
	conn.PlugIn(cacheComp.GetPortByName("Top"))
	conn.PlugIn(cacheComp.GetPortByName("Bottom"))
	conn.PlugIn(dram.GetPortByName("Top"))

	agent.TickLater()

	return &simulationEnv{
		engine: engine,
		agent:  agent,
		cache:  cacheComp,
	}
}

func setupMonitoring(cmd *cobra.Command, env *simulationEnv) *monitoring.Monitor {
	useMonitor, _ := cmd.Flags().GetBool("monitor")
	if !useMonitor {
		return nil
	}

	port, _ := cmd.Flags().GetInt("monitor-port")
	if port == 0 {
		port, _ = strconv.Atoi(os.Getenv("WAYSIM_MONITOR_PORT"))
	}

	monitor := monitoring.NewMonitor()
	monitor.RegisterEngine(env.engine)
	monitor.RegisterComponent(env.cache)
	monitor.RegisterComponent(env.agent)

	if port != 0 {
		monitor.WithPortNumber(port)
	}

	openBrowser, _ := cmd.Flags().GetBool("open-browser")
	if openBrowser {
		monitor.WithOpenBrowser()
	}

	monitor.StartServer()

	return monitor
}

func setupRecording(cmd *cobra.Command, env *simulationEnv) {
	dbName, _ := cmd.Flags().GetString("record")
	if dbName == "" {
		return
	}

	recorder := datarecording.New(dbName)
	tracer := trace.NewDBTracer(env.engine, recorder)
	env.cache.AcceptHook(tracer)
}

// updateProgress periodically copies the number of completed accesses into
// the progress bar so that the monitoring page can show it.
func updateProgress(
	bar *monitoring.ProgressBar,
	agent *memaccessagent.MemAccessAgent,
) {
	for {
		time.Sleep(100 * time.Millisecond)

		bar.Lock()
		bar.Finished = bar.Total -
			uint64(agent.WriteLeft) - uint64(agent.ReadLeft)
		bar.Unlock()
	}
}
