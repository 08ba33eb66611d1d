// Package directconnection provides a connection that can directly connect
// two or more components without latency.
package directconnection

import (
	"github.com/sarchlab/waysim/sim"
)

// Comp is a connection that delivers messages to their destinations in the
// same cycle they are sent.
type Comp struct {
	*sim.TickingComponent

	ports      []sim.Port
	portByName map[sim.RemotePort]sim.Port
	nextPortID int
}

// PlugIn connects a port to the connection.
func (c *Comp) PlugIn(port sim.Port) {
	c.Lock()
	defer c.Unlock()

	c.ports = append(c.ports, port)
	c.portByName[port.AsRemote()] = port

	port.SetConnection(c)
}

// Unplug removes a port from the connection.
func (c *Comp) Unplug(_ sim.Port) {
	panic("not implemented")
}

// NotifyAvailable is called by a port to notify that the port can receive
// messages again.
func (c *Comp) NotifyAvailable(_ sim.Port) {
	c.TickNow()
}

// NotifySend is called by a port to notify that a message is waiting to be
// delivered.
func (c *Comp) NotifySend() {
	c.TickNow()
}

// Tick moves pending messages from outgoing buffers to the incoming buffers
// of their destinations.
func (c *Comp) Tick() bool {
	madeProgress := false

	for i := 0; i < len(c.ports); i++ {
		portID := (i + c.nextPortID) % len(c.ports)
		port := c.ports[portID]
		madeProgress = c.forwardMany(port) || madeProgress
	}

	if len(c.ports) > 0 {
		c.nextPortID = (c.nextPortID + 1) % len(c.ports)
	}

	return madeProgress
}

func (c *Comp) forwardMany(src sim.Port) bool {
	madeProgress := false

	for {
		msg := src.PeekOutgoing()
		if msg == nil {
			break
		}

		dst, found := c.portByName[msg.Meta().Dst]
		if !found {
			panic("destination " + string(msg.Meta().Dst) +
				" is not connected to " + c.Name())
		}

		if err := dst.Deliver(msg); err != nil {
			break
		}

		src.RetrieveOutgoing()
		madeProgress = true
	}

	return madeProgress
}
