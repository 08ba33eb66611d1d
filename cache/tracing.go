package cache

import (
	"github.com/sarchlab/waysim/sim"
)

// HookPosHit marks a request that completed without backing-store traffic.
var HookPosHit = &sim.HookPos{Name: "Cache Hit"}

// HookPosMiss marks a request that requires an allocation.
var HookPosMiss = &sim.HookPos{Name: "Cache Miss"}

// HookPosWriteback marks a dirty victim being written back to the backing
// store.
var HookPosWriteback = &sim.HookPos{Name: "Cache Writeback"}

// HookPosFill marks a line becoming resident after an allocation.
var HookPosFill = &sim.HookPos{Name: "Cache Fill"}

// AccessDetail carries the information attached to the cache hook
// invocations.
type AccessDetail struct {
	Address uint64
	SetID   int
	WayID   int
	IsWrite bool
}

func (c *Comp) invokeAccessHook(
	pos *sim.HookPos,
	trans *transaction,
	wayID int,
) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   trans.req,
		Detail: AccessDetail{
			Address: trans.address,
			SetID:   trans.setID,
			WayID:   wayID,
			IsWrite: trans.isWrite,
		},
	})
}
