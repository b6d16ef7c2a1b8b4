package block_service

import "fmt"

const (
	// BlockSize is the number of bytes one block holds.
	BlockSize = 10
	// MaxBlocks bounds the capacity Initialize accepts.
	MaxBlocks = 1000
)

type BlockState int

const (
	StateFree BlockState = iota
	StateDefective
	StateReserved
	StateAllocated
)

var stateNames = map[BlockState]string{
	StateFree:      "free",
	StateDefective: "defective",
	StateReserved:  "reserved",
	StateAllocated: "allocated",
}

func (s BlockState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("BlockState(%d)", int(s))
}

// Code is the one-letter tag used by block listings: F, B, I or A.
func (s BlockState) Code() string {
	switch s {
	case StateFree:
		return "F"
	case StateDefective:
		return "B"
	case StateReserved:
		return "I"
	case StateAllocated:
		return "A"
	}
	return "?"
}

func (s BlockState) MarshalText() ([]byte, error) {
	if _, ok := stateNames[s]; !ok {
		return nil, fmt.Errorf("unknown block state %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *BlockState) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown block state %q", string(text))
}

type BlockStatus struct {
	Index int        `json:"index"`
	State BlockState `json:"state"`
}

type Options struct {
	// StrictDefective rejects MarkDefective with ErrBlockInUse unless the block is free.
	StrictDefective bool
}

// BlockService owns block states and the LIFO stack of free block indices.
type BlockService interface {
	// Initialize resets capacity blocks to free and pushes 0..capacity-1, so the
	// first allocation returns capacity-1. Prior allocation state is discarded.
	Initialize(capacity int) error

	Capacity() int

	// Allocate pops the top of the free stack and marks it allocated.
	Allocate() (int, error)

	// Release marks an allocated block free and pushes it on top of the stack.
	Release(index int) error

	MarkDefective(index int) error

	State(index int) (BlockState, error)

	// ListStates returns exactly Capacity() entries in ascending index order.
	ListStates() []BlockStatus

	FreeCount() int
}
