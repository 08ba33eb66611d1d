// Package trace provides tracers that observe cache accesses and record them
// for later analysis.
package trace

import (
	"log"

	"github.com/sarchlab/waysim/cache"
	"github.com/sarchlab/waysim/datarecording"
	"github.com/sarchlab/waysim/sim"
)

// accessTableEntry is one row in the recorded access table.
type accessTableEntry struct {
	Time    float64
	Kind    string
	Address uint64
	SetID   int
	WayID   int
	IsWrite bool
}

// DBTracer stores cache access events in a database through a DataRecorder.
type DBTracer struct {
	timeTeller sim.TimeTeller
	backend    datarecording.DataRecorder
	tableName  string
}

// NewDBTracer creates a DBTracer that writes into the given backend.
func NewDBTracer(
	timeTeller sim.TimeTeller,
	backend datarecording.DataRecorder,
) *DBTracer {
	t := &DBTracer{
		timeTeller: timeTeller,
		backend:    backend,
		tableName:  "cache_access",
	}

	backend.CreateTable(t.tableName, accessTableEntry{})

	return t
}

// Func records the access that triggered the hook.
func (t *DBTracer) Func(ctx sim.HookCtx) {
	kind := kindOfPos(ctx.Pos)
	if kind == "" {
		return
	}

	detail, ok := ctx.Detail.(cache.AccessDetail)
	if !ok {
		return
	}

	t.backend.InsertData(t.tableName, accessTableEntry{
		Time:    float64(t.timeTeller.CurrentTime()),
		Kind:    kind,
		Address: detail.Address,
		SetID:   detail.SetID,
		WayID:   detail.WayID,
		IsWrite: detail.IsWrite,
	})
}

// LogTracer prints cache access events with a standard logger.
type LogTracer struct {
	timeTeller sim.TimeTeller
	logger     *log.Logger
}

// NewLogTracer creates a LogTracer.
func NewLogTracer(
	timeTeller sim.TimeTeller,
	logger *log.Logger,
) *LogTracer {
	return &LogTracer{
		timeTeller: timeTeller,
		logger:     logger,
	}
}

// Func logs the access that triggered the hook.
func (t *LogTracer) Func(ctx sim.HookCtx) {
	kind := kindOfPos(ctx.Pos)
	if kind == "" {
		return
	}

	detail, ok := ctx.Detail.(cache.AccessDetail)
	if !ok {
		return
	}

	t.logger.Printf("%.10f, %s, 0x%x, set %d, way %d, write %t\n",
		t.timeTeller.CurrentTime(), kind,
		detail.Address, detail.SetID, detail.WayID, detail.IsWrite)
}

func kindOfPos(pos *sim.HookPos) string {
	switch pos {
	case cache.HookPosHit:
		return "hit"
	case cache.HookPosMiss:
		return "miss"
	case cache.HookPosWriteback:
		return "writeback"
	case cache.HookPosFill:
		return "fill"
	default:
		return ""
	}
}
