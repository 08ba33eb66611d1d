// Package memaccessagent provides an agent that drives randomized read and
// write requests into a memory system and checks the values read back.
package memaccessagent

import (
	"encoding/binary"
	"log"
	"math/rand"
	"reflect"

	"github.com/sarchlab/waysim/mem"
	"github.com/sarchlab/waysim/sim"
)

// A MemAccessAgent is a component that helps testing caches and memory
// controllers by generating a large number of read and write requests.
type MemAccessAgent struct {
	*sim.TickingComponent

	LowModule  sim.Port
	MaxAddress uint64

	WriteLeft       int
	ReadLeft        int
	KnownMemValue   map[uint64]uint32
	PendingReadReq  map[string]*mem.ReadReq
	PendingWriteReq map[string]*mem.WriteReq

	memPort sim.Port
}

// NewMemAccessAgent creates a new MemAccessAgent.
func NewMemAccessAgent(engine sim.Engine, name string) *MemAccessAgent {
	a := &MemAccessAgent{
		KnownMemValue:   make(map[uint64]uint32),
		PendingReadReq:  make(map[string]*mem.ReadReq),
		PendingWriteReq: make(map[string]*mem.WriteReq),
	}

	a.TickingComponent = sim.NewTickingComponent(name, engine, 1*sim.GHz, a)

	a.memPort = sim.NewPort(a, 4, 4, name+".MemPort")
	a.AddPort("Mem", a.memPort)

	return a
}

// Tick updates the state of the agent and issues new read and write
// requests.
func (a *MemAccessAgent) Tick() bool {
	madeProgress := a.processMsgRsp()

	if a.ReadLeft == 0 && a.WriteLeft == 0 {
		return madeProgress
	}

	if a.shouldRead() {
		madeProgress = a.doRead() || madeProgress
	} else {
		madeProgress = a.doWrite() || madeProgress
	}

	return madeProgress
}

func (a *MemAccessAgent) processMsgRsp() bool {
	msg := a.memPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	switch msg := msg.(type) {
	case *mem.WriteDoneRsp:
		delete(a.PendingWriteReq, msg.RespondTo)
		return true
	case *mem.DataReadyRsp:
		req, found := a.PendingReadReq[msg.RespondTo]
		if !found {
			log.Panicf("no pending read request %s", msg.RespondTo)
		}

		delete(a.PendingReadReq, msg.RespondTo)
		a.checkReadResult(req, msg)

		return true
	default:
		log.Panicf("cannot process message of type %s", reflect.TypeOf(msg))
	}

	return false
}

func (a *MemAccessAgent) checkReadResult(
	req *mem.ReadReq,
	rsp *mem.DataReadyRsp,
) {
	want := a.KnownMemValue[req.Address]
	got := binary.LittleEndian.Uint32(rsp.Data)

	if got != want {
		log.Panicf("read 0x%x from 0x%x, want 0x%x",
			got, req.Address, want)
	}
}

func (a *MemAccessAgent) shouldRead() bool {
	if len(a.KnownMemValue) == 0 {
		return false
	}

	if a.ReadLeft == 0 {
		return false
	}

	if a.WriteLeft == 0 {
		return true
	}

	return rand.Float64() > 0.5
}

func (a *MemAccessAgent) doRead() bool {
	address := a.randomReadAddress()
	if a.isAddressInPendingReq(address) {
		return false
	}

	readReq := mem.ReadReqBuilder{}.
		WithSrc(a.memPort.AsRemote()).
		WithDst(a.LowModule.AsRemote()).
		WithAddress(address).
		Build()

	if err := a.memPort.Send(readReq); err != nil {
		return false
	}

	a.PendingReadReq[readReq.ID] = readReq
	a.ReadLeft--

	return true
}

func (a *MemAccessAgent) doWrite() bool {
	address := rand.Uint64() % a.MaxAddress
	if a.isAddressInPendingReq(address) {
		return false
	}

	value := rand.Uint32()
	data := make([]byte, mem.WordSize)
	binary.LittleEndian.PutUint32(data, value)

	writeReq := mem.WriteReqBuilder{}.
		WithSrc(a.memPort.AsRemote()).
		WithDst(a.LowModule.AsRemote()).
		WithAddress(address).
		WithData(data).
		Build()

	if err := a.memPort.Send(writeReq); err != nil {
		return false
	}

	a.PendingWriteReq[writeReq.ID] = writeReq
	a.KnownMemValue[address] = value
	a.WriteLeft--

	return true
}

// randomReadAddress picks a random address that has been written before, so
// that the value read back can be checked.
func (a *MemAccessAgent) randomReadAddress() uint64 {
	for {
		addr := rand.Uint64() % a.MaxAddress
		if _, written := a.KnownMemValue[addr]; written {
			return addr
		}
	}
}

func (a *MemAccessAgent) isAddressInPendingReq(addr uint64) bool {
	for _, req := range a.PendingReadReq {
		if req.Address == addr {
			return true
		}
	}

	for _, req := range a.PendingWriteReq {
		if req.Address == addr {
			return true
		}
	}

	return false
}
