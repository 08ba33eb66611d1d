// Package cache provides a single-level, set-associative, write-back,
// write-allocate cache controller.
package cache

import (
	"log"
	"reflect"

	"github.com/sarchlab/waysim/cache/internal/tagging"
	"github.com/sarchlab/waysim/mem"
	"github.com/sarchlab/waysim/sim"
)

type fsmState int

const (
	stateIdle fsmState = iota
	stateCompare
	stateWriteback
	stateAllocate
)

// A transaction captures the request that the controller is currently
// serving. At most one transaction is in flight at a time.
type transaction struct {
	req     mem.AccessReq
	address uint64
	tag     uint64
	setID   int
	isWrite bool
	data    []byte

	victimWay int
	wasMiss   bool

	reqToBottom mem.AccessReq
}

// Comp is the cache controller. It serves one request at a time through a
// four-state protocol: it idles until a request arrives, compares the tag
// against the addressed set, writes a dirty victim back to the backing
// store, and allocates the missing line before completing the request.
type Comp struct {
	*sim.TickingComponent

	topPort     sim.Port
	bottomPort  sim.Port
	controlPort sim.Port

	// BottomModule is the port of the backing store that the controller
	// fetches from and writes back to.
	BottomModule sim.RemotePort

	numSets          int
	wayAssociativity int

	tags    tagging.TagArray
	recency tagging.RecencyTable

	state fsmState
	trans *transaction

	pendingCtrlRsp sim.Msg

	hitCount  uint64
	missCount uint64
}

// HitCount returns the number of requests that completed without accessing
// the backing store.
func (c *Comp) HitCount() uint64 {
	return c.hitCount
}

// MissCount returns the number of requests that required an allocation.
// A request that misses and then completes on the refilled line counts as
// one miss, not as a miss and a hit.
func (c *Comp) MissCount() uint64 {
	return c.missCount
}

// Tick advances the controller by one state transition. A reset on the
// control port takes precedence over normal operation.
func (c *Comp) Tick() bool {
	if c.sendPendingCtrlRsp() {
		return true
	}

	if c.processControlMsg() {
		return true
	}

	switch c.state {
	case stateIdle:
		return c.idleTick()
	case stateCompare:
		return c.compareTick()
	case stateWriteback:
		return c.writebackTick()
	case stateAllocate:
		return c.allocateTick()
	}

	return false
}

func (c *Comp) sendPendingCtrlRsp() bool {
	if c.pendingCtrlRsp == nil {
		return false
	}

	if err := c.controlPort.Send(c.pendingCtrlRsp); err != nil {
		return false
	}

	c.pendingCtrlRsp = nil

	return true
}

func (c *Comp) processControlMsg() bool {
	msg := c.controlPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	ctrl, ok := msg.(*mem.ControlMsg)
	if !ok {
		log.Panicf("cannot handle control message of type %s",
			reflect.TypeOf(msg))
	}

	if ctrl.Reset {
		c.reset()
	}

	rsp := sim.GeneralRspBuilder{}.
		WithSrc(c.controlPort.AsRemote()).
		WithDst(ctrl.Src).
		WithOriginalReq(ctrl).
		Build()

	if err := c.controlPort.Send(rsp); err != nil {
		c.pendingCtrlRsp = rsp
	}

	return true
}

// reset discards the in-flight transaction and clears all lines, recency
// counters and statistics. A backing-store response for a discarded
// transaction is dropped when it arrives.
func (c *Comp) reset() {
	c.tags.Reset()
	c.recency.Reset()
	c.state = stateIdle
	c.trans = nil
	c.hitCount = 0
	c.missCount = 0
}

func (c *Comp) idleTick() bool {
	if c.dropStaleBottomRsp() {
		return true
	}

	msg := c.topPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	trans := &transaction{}

	switch req := msg.(type) {
	case *mem.ReadReq:
		trans.req = req
		trans.address = req.Address
	case *mem.WriteReq:
		trans.req = req
		trans.address = req.Address
		trans.isWrite = true
		trans.data = req.Data
	default:
		log.Panicf("cannot handle request of type %s", reflect.TypeOf(msg))
	}

	trans.tag, trans.setID = c.decode(trans.address)

	c.trans = trans
	c.state = stateCompare

	return true
}

func (c *Comp) compareTick() bool {
	trans := c.trans

	wayID, found := c.tags.Lookup(trans.setID, trans.tag)
	if found {
		return c.completeHit(wayID)
	}

	return c.handleMiss()
}

func (c *Comp) completeHit(wayID int) bool {
	trans := c.trans

	var rsp sim.Msg
	if trans.isWrite {
		rsp = mem.WriteDoneRspBuilder{}.
			WithSrc(c.topPort.AsRemote()).
			WithDst(trans.req.Meta().Src).
			WithRspTo(trans.req.Meta().ID).
			Build()
	} else {
		rsp = mem.DataReadyRspBuilder{}.
			WithSrc(c.topPort.AsRemote()).
			WithDst(trans.req.Meta().Src).
			WithRspTo(trans.req.Meta().ID).
			WithData(c.tags.ReadData(trans.setID, wayID)).
			Build()
	}

	if err := c.topPort.Send(rsp); err != nil {
		return false
	}

	if trans.isWrite {
		c.tags.WriteHit(trans.setID, wayID, trans.data)
	}
	c.recency.Promote(trans.setID, wayID)

	if !trans.wasMiss {
		c.hitCount++
		c.invokeAccessHook(HookPosHit, trans, wayID)
	}

	c.trans = nil
	c.state = stateIdle

	return true
}

func (c *Comp) handleMiss() bool {
	trans := c.trans

	trans.victimWay = c.recency.SelectVictim(
		trans.setID, c.tags.ValidMask(trans.setID))
	trans.wasMiss = true
	c.missCount++
	c.invokeAccessHook(HookPosMiss, trans, trans.victimWay)

	victim := c.tags.LineAt(trans.setID, trans.victimWay)
	if victim.Valid && victim.Dirty {
		c.state = stateWriteback
	} else {
		c.state = stateAllocate
	}

	return true
}

func (c *Comp) writebackTick() bool {
	trans := c.trans

	if trans.reqToBottom == nil {
		victim := c.tags.LineAt(trans.setID, trans.victimWay)

		wb := mem.WriteReqBuilder{}.
			WithSrc(c.bottomPort.AsRemote()).
			WithDst(c.BottomModule).
			WithAddress(c.lineAddress(victim.Tag, trans.setID)).
			WithData(victim.Data).
			Build()

		if err := c.bottomPort.Send(wb); err != nil {
			return false
		}

		trans.reqToBottom = wb
		c.invokeAccessHook(HookPosWriteback, trans, trans.victimWay)

		return true
	}

	msg := c.bottomPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	rsp, ok := msg.(sim.Rsp)
	if !ok || rsp.GetRspTo() != trans.reqToBottom.Meta().ID {
		// Response to a request that was abandoned by a reset.
		return true
	}

	trans.reqToBottom = nil
	c.state = stateAllocate

	return true
}

func (c *Comp) allocateTick() bool {
	trans := c.trans

	if trans.reqToBottom == nil {
		fetch := mem.ReadReqBuilder{}.
			WithSrc(c.bottomPort.AsRemote()).
			WithDst(c.BottomModule).
			WithAddress(trans.address).
			Build()

		if err := c.bottomPort.Send(fetch); err != nil {
			return false
		}

		trans.reqToBottom = fetch

		return true
	}

	msg := c.bottomPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	dataReady, ok := msg.(*mem.DataReadyRsp)
	if !ok || dataReady.RespondTo != trans.reqToBottom.Meta().ID {
		// Response to a request that was abandoned by a reset.
		return true
	}

	c.tags.Fill(trans.setID, trans.victimWay, trans.tag, dataReady.Data)
	c.recency.Promote(trans.setID, trans.victimWay)
	c.invokeAccessHook(HookPosFill, trans, trans.victimWay)

	trans.reqToBottom = nil
	c.state = stateCompare

	return true
}

// dropStaleBottomRsp discards backing-store responses that no transaction is
// waiting for. They can only exist after a reset abandoned an in-flight
// eviction or allocation.
func (c *Comp) dropStaleBottomRsp() bool {
	if c.bottomPort.PeekIncoming() == nil {
		return false
	}

	c.bottomPort.RetrieveIncoming()

	return true
}
