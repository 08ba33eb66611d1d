package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/sarchlab/waysim/acceptancetests/memaccessagent"
	"github.com/sarchlab/waysim/cache"
	"github.com/sarchlab/waysim/mem/idealmemcontroller"
	"github.com/sarchlab/waysim/sim"
	"github.com/sarchlab/waysim/sim/directconnection"
)

var seedFlag = flag.Int64("seed", 0, "Random Seed")
var numAccessFlag = flag.Int("num-access", 100000,
	"Number of accesses to generate")
var maxAddressFlag = flag.Uint64("max-address", 1048576, "Address range to use")
var numSetsFlag = flag.Int("num-sets", 64, "Number of sets in the cache")
var latencyFlag = flag.Int("latency", 100, "Memory latency in cycles")

var engine sim.Engine
var agent *memaccessagent.MemAccessAgent
var cacheComp *cache.Comp

func main() {
	flag.Parse()

	initSeed()
	buildEnvironment()
	runSimulation()
	allMsgsMustBeSent()
	reportStats()
}

func initSeed() {
	var seed int64
	if *seedFlag == 0 {
		seed = time.Now().UnixNano()
	} else {
		seed = *seedFlag
	}

	fmt.Fprintf(os.Stderr, "Seed %d\n", seed)

	rand.Seed(seed)
}

func buildEnvironment() {
	engine = sim.NewSerialEngine()

	conn := directconnection.MakeBuilder().
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		Build("Conn")

	agent = memaccessagent.NewMemAccessAgent(engine, "Agent")
	agent.MaxAddress = *maxAddressFlag
	agent.WriteLeft = *numAccessFlag
	agent.ReadLeft = *numAccessFlag

	cacheComp = cache.MakeBuilder().
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		WithNumSets(*numSetsFlag).
		WithWayAssociativity(4).
		Build("Cache")

	dram := idealmemcontroller.MakeBuilder().
		WithEngine(engine).
		WithLatency(*latencyFlag).
		WithNewStorage(*maxAddressFlag).
		Build("DRAM")

	cacheComp.BottomModule = dram.GetPortByName("Top").AsRemote()
	agent.LowModule = cacheComp.GetPortByName("Top")

	conn.PlugIn(agent.GetPortByName("Mem"))
	conn.PlugIn(cacheComp.GetPortByName("Top"))
	conn.PlugIn(cacheComp.GetPortByName("Bottom"))
	conn.PlugIn(dram.GetPortByName("Top"))

	agent.TickLater()
}

func runSimulation() {
	err := engine.Run()
	if err != nil {
		panic(err)
	}
}

func allMsgsMustBeSent() {
	if len(agent.PendingWriteReq) > 0 || len(agent.PendingReadReq) > 0 {
		panic("Not all req returned")
	}

	if agent.WriteLeft > 0 || agent.ReadLeft > 0 {
		panic("more requests to send")
	}
}

func reportStats() {
	fmt.Fprintf(os.Stderr, "Hits %d, Misses %d\n",
		cacheComp.HitCount(), cacheComp.MissCount())
}
