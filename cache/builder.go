package cache

import (
	"math/bits"

	"github.com/sarchlab/waysim/cache/internal/tagging"
	"github.com/sarchlab/waysim/sim"
)

// Builder can build cache controllers.
type Builder struct {
	engine           sim.Engine
	freq             sim.Freq
	numSets          int
	wayAssociativity int
	portBufSize      int
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:             1 * sim.GHz,
		numSets:          64,
		wayAssociativity: 4,
		portBufSize:      4,
	}
}

// WithEngine sets the engine that drives the controller.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the controller.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithNumSets sets the number of sets. It must be a power of two, as the set
// index is taken from the low bits of the address.
func (b Builder) WithNumSets(numSets int) Builder {
	b.numSets = numSets
	return b
}

// WithWayAssociativity sets the number of ways per set.
func (b Builder) WithWayAssociativity(wayAssociativity int) Builder {
	b.wayAssociativity = wayAssociativity
	return b
}

// WithPortBufSize sets the incoming and outgoing buffer sizes of the ports.
func (b Builder) WithPortBufSize(size int) Builder {
	b.portBufSize = size
	return b
}

// Build creates a new cache controller.
func (b Builder) Build(name string) *Comp {
	if bits.OnesCount(uint(b.numSets)) != 1 {
		panic("the number of sets must be a power of two")
	}

	c := &Comp{
		numSets:          b.numSets,
		wayAssociativity: b.wayAssociativity,
		tags:             tagging.NewTagArray(b.numSets, b.wayAssociativity),
		recency: tagging.NewRecencyTable(
			b.numSets, b.wayAssociativity),
	}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.topPort = sim.NewPort(c, b.portBufSize, b.portBufSize,
		name+".TopPort")
	c.bottomPort = sim.NewPort(c, b.portBufSize, b.portBufSize,
		name+".BottomPort")
	c.controlPort = sim.NewPort(c, b.portBufSize, b.portBufSize,
		name+".ControlPort")

	c.AddPort("Top", c.topPort)
	c.AddPort("Bottom", c.bottomPort)
	c.AddPort("Control", c.controlPort)

	return c
}
