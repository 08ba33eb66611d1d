// Package tagging provides the tag array and the recency state that a
// set-associative cache controller operates on.
package tagging

import (
	"github.com/sarchlab/waysim/mem"
)

// A Line is the information that is associated with one cached word.
type Line struct {
	Tag   uint64
	Data  []byte
	Valid bool
	Dirty bool
}

// A Set is the group of lines that a certain index maps to.
type Set struct {
	Lines []Line
}

// A TagArray stores the lines of all the sets of a cache.
//
// The tag array does not enforce tag uniqueness within a set. It is the
// controller's responsibility to only ever fill the way that was selected as
// the victim of the ongoing miss, which keeps the tags of the valid ways of
// a set pairwise distinct.
type TagArray interface {
	NumSets() int
	NumWays() int

	// Lookup returns the way whose line is valid and holds the given tag.
	Lookup(setID int, tag uint64) (wayID int, ok bool)

	// ReadData returns a copy of the word stored in the given way.
	ReadData(setID, wayID int) []byte

	// WriteHit overwrites the word stored in the given way and marks the
	// line dirty.
	WriteHit(setID, wayID int, data []byte)

	// Fill installs a new line in the given way, valid and clean.
	Fill(setID, wayID int, tag uint64, data []byte)

	// LineAt returns the line stored in the given way.
	LineAt(setID, wayID int) Line

	// ValidMask returns, for each way of the set, whether the line is valid.
	ValidMask(setID int) []bool

	// Reset marks every line of every set invalid.
	Reset()
}

// NewTagArray returns a newly created TagArray with all lines invalid.
func NewTagArray(numSets, numWays int) TagArray {
	a := &tagArrayImpl{
		numSets: numSets,
		numWays: numWays,
	}

	a.Reset()

	return a
}

type tagArrayImpl struct {
	numSets int
	numWays int
	sets    []Set
}

func (a *tagArrayImpl) NumSets() int {
	return a.numSets
}

func (a *tagArrayImpl) NumWays() int {
	return a.numWays
}

func (a *tagArrayImpl) Lookup(setID int, tag uint64) (int, bool) {
	set := &a.sets[setID]
	for wayID, line := range set.Lines {
		if line.Valid && line.Tag == tag {
			return wayID, true
		}
	}

	return 0, false
}

func (a *tagArrayImpl) ReadData(setID, wayID int) []byte {
	data := make([]byte, mem.WordSize)
	copy(data, a.sets[setID].Lines[wayID].Data)

	return data
}

func (a *tagArrayImpl) WriteHit(setID, wayID int, data []byte) {
	line := &a.sets[setID].Lines[wayID]
	copy(line.Data, data)
	line.Dirty = true
}

func (a *tagArrayImpl) Fill(setID, wayID int, tag uint64, data []byte) {
	line := &a.sets[setID].Lines[wayID]
	line.Tag = tag
	copy(line.Data, data)
	line.Valid = true
	line.Dirty = false
}

func (a *tagArrayImpl) LineAt(setID, wayID int) Line {
	line := a.sets[setID].Lines[wayID]
	data := make([]byte, mem.WordSize)
	copy(data, line.Data)
	line.Data = data

	return line
}

func (a *tagArrayImpl) ValidMask(setID int) []bool {
	set := &a.sets[setID]
	mask := make([]bool, a.numWays)
	for wayID, line := range set.Lines {
		mask[wayID] = line.Valid
	}

	return mask
}

func (a *tagArrayImpl) Reset() {
	a.sets = make([]Set, a.numSets)
	for i := range a.sets {
		a.sets[i].Lines = make([]Line, a.numWays)
		for j := range a.sets[i].Lines {
			a.sets[i].Lines[j].Data = make([]byte, mem.WordSize)
		}
	}
}
