package cache

// decodeAddress splits a word address into a tag and a set index. The low
// bits of the address select the set and the remaining high bits form the
// tag.
func decodeAddress(addr uint64, numSets int) (tag uint64, setID int) {
	setID = int(addr % uint64(numSets))
	tag = addr / uint64(numSets)

	return tag, setID
}

// reconstructAddress rebuilds the word address of a line from its stored tag
// and the index of the set it lives in.
func reconstructAddress(tag uint64, setID, numSets int) uint64 {
	return tag*uint64(numSets) + uint64(setID)
}

func (c *Comp) decode(addr uint64) (tag uint64, setID int) {
	return decodeAddress(addr, c.numSets)
}

func (c *Comp) lineAddress(tag uint64, setID int) uint64 {
	return reconstructAddress(tag, setID, c.numSets)
}
