// Package idealmemcontroller provides a memory controller that always
// responds to an access request after a fixed number of cycles.
package idealmemcontroller

import (
	"log"
	"reflect"

	"github.com/sarchlab/waysim/mem"
	"github.com/sarchlab/waysim/sim"
)

type readRespondEvent struct {
	*sim.EventBase

	req *mem.ReadReq
}

func newReadRespondEvent(
	time sim.VTimeInSec,
	handler sim.Handler,
	req *mem.ReadReq,
) *readRespondEvent {
	return &readRespondEvent{sim.NewEventBase(time, handler), req}
}

type writeRespondEvent struct {
	*sim.EventBase

	req *mem.WriteReq
}

func newWriteRespondEvent(
	time sim.VTimeInSec,
	handler sim.Handler,
	req *mem.WriteReq,
) *writeRespondEvent {
	return &writeRespondEvent{sim.NewEventBase(time, handler), req}
}

// A Comp is an ideal memory controller that always responds to requests
// after a fixed number of cycles. Every issued request is acknowledged
// exactly once.
type Comp struct {
	*sim.TickingComponent

	topPort sim.Port

	Storage *mem.Storage
	Latency int
}

// Handle defines how the Comp handles events.
func (c *Comp) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *readRespondEvent:
		return c.handleReadRespondEvent(e)
	case *writeRespondEvent:
		return c.handleWriteRespondEvent(e)
	case sim.TickEvent:
		return c.TickingComponent.Handle(e)
	default:
		log.Panicf("cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

// Tick accepts requests from the top port and schedules their responses.
func (c *Comp) Tick() bool {
	msg := c.topPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	now := c.CurrentTime()

	switch req := msg.(type) {
	case *mem.ReadReq:
		c.Engine.Schedule(newReadRespondEvent(
			c.Freq.NCyclesLater(c.Latency, now), c, req))
	case *mem.WriteReq:
		c.Engine.Schedule(newWriteRespondEvent(
			c.Freq.NCyclesLater(c.Latency, now), c, req))
	default:
		log.Panicf("cannot handle request of type %s", reflect.TypeOf(msg))
	}

	return true
}

func (c *Comp) handleReadRespondEvent(e *readRespondEvent) error {
	req := e.req

	data, err := c.Storage.Read(req.Address)
	if err != nil {
		return err
	}

	rsp := mem.DataReadyRspBuilder{}.
		WithSrc(c.topPort.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		WithData(data).
		Build()

	if sendErr := c.topPort.Send(rsp); sendErr != nil {
		c.retry(e)
		return nil
	}

	c.TickLater()

	return nil
}

func (c *Comp) handleWriteRespondEvent(e *writeRespondEvent) error {
	req := e.req

	if err := c.Storage.Write(req.Address, req.Data); err != nil {
		return err
	}

	rsp := mem.WriteDoneRspBuilder{}.
		WithSrc(c.topPort.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		Build()

	if sendErr := c.topPort.Send(rsp); sendErr != nil {
		c.retry(e)
		return nil
	}

	c.TickLater()

	return nil
}

// retry reschedules the event one cycle later when the top port is busy.
func (c *Comp) retry(e sim.Event) {
	now := c.CurrentTime()

	switch e := e.(type) {
	case *readRespondEvent:
		c.Engine.Schedule(newReadRespondEvent(
			c.Freq.NCyclesLater(1, now), c, e.req))
	case *writeRespondEvent:
		c.Engine.Schedule(newWriteRespondEvent(
			c.Freq.NCyclesLater(1, now), c, e.req))
	}
}
