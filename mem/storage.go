package mem

import (
	"errors"
	"fmt"
)

// wordsPerUnit is the allocation granularity of a Storage. Units that are
// never touched by Read or Write do not consume host memory.
const wordsPerUnit = 1024

// A Storage keeps the data of a simulated memory. It is word addressed: the
// address n names the n-th word, and every access transfers exactly one
// word.
type Storage struct {
	capacity uint64
	units    map[uint64][]byte
}

// NewStorage creates a storage object that can hold the given number of
// words.
func NewStorage(capacity uint64) *Storage {
	s := new(Storage)
	s.capacity = capacity
	s.units = make(map[uint64][]byte)

	return s
}

// Capacity returns the number of words the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) unitFor(addr uint64) ([]byte, uint64, error) {
	if addr >= s.capacity {
		return nil, 0, fmt.Errorf(
			"accessing word 0x%x beyond the storage capacity 0x%x",
			addr, s.capacity)
	}

	base := addr / wordsPerUnit
	unit, ok := s.units[base]
	if !ok {
		unit = make([]byte, wordsPerUnit*WordSize)
		s.units[base] = unit
	}

	offset := (addr % wordsPerUnit) * WordSize

	return unit, offset, nil
}

// Read returns the word stored at the given word address.
func (s *Storage) Read(addr uint64) ([]byte, error) {
	unit, offset, err := s.unitFor(addr)
	if err != nil {
		return nil, err
	}

	word := make([]byte, WordSize)
	copy(word, unit[offset:offset+WordSize])

	return word, nil
}

// Write stores one word at the given word address.
func (s *Storage) Write(addr uint64, data []byte) error {
	if len(data) != WordSize {
		return errors.New("data must be exactly one word")
	}

	unit, offset, err := s.unitFor(addr)
	if err != nil {
		return err
	}

	copy(unit[offset:offset+WordSize], data)

	return nil
}
