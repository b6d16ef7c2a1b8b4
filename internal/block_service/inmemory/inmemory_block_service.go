package inmemory

import (
	"sync"

	bs "github.com/AnishMulay/inodestore/internal/block_service"
	"github.com/AnishMulay/inodestore/internal/log_service"
)

type InMemoryBlockService struct {
	mu     sync.Mutex
	states []bs.BlockState
	// free is a stack; the last element is the top.
	free []int

	strictDefective bool
	ls              log_service.LogService
}

func NewInMemoryBlockService(ls log_service.LogService, opts bs.Options) *InMemoryBlockService {
	return &InMemoryBlockService{
		strictDefective: opts.StrictDefective,
		ls:              ls,
	}
}

func (s *InMemoryBlockService) Initialize(capacity int) error {
	if capacity <= 0 || capacity > bs.MaxBlocks {
		s.ls.Warn(log_service.LogEvent{
			Message:  "Rejected disk initialization",
			Metadata: map[string]any{"capacity": capacity, "max": bs.MaxBlocks},
		})
		return bs.ErrInvalidCapacity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.states = make([]bs.BlockState, capacity)
	s.free = make([]int, 0, capacity)
	for i := 0; i < capacity; i++ {
		s.states[i] = bs.StateFree
		s.free = append(s.free, i)
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "Disk initialized",
		Metadata: map[string]any{"capacity": capacity},
	})
	return nil
}

func (s *InMemoryBlockService) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

func (s *InMemoryBlockService) Allocate() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.free) == 0 {
		s.ls.Warn(log_service.LogEvent{Message: "No free blocks available"})
		return 0, bs.ErrNoFreeBlocks
	}

	top := len(s.free) - 1
	index := s.free[top]
	s.free = s.free[:top]
	s.states[index] = bs.StateAllocated

	s.ls.Debug(log_service.LogEvent{
		Message:  "Block allocated",
		Metadata: map[string]any{"block": index, "free": len(s.free)},
	})
	return index, nil
}

func (s *InMemoryBlockService) Release(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inRange(index) {
		return bs.ErrInvalidBlockIndex
	}

	switch s.states[index] {
	case bs.StateFree:
		// already on the stack
		return nil
	case bs.StateDefective:
		s.ls.Warn(log_service.LogEvent{
			Message:  "Defective block not returned to free list",
			Metadata: map[string]any{"block": index},
		})
		return nil
	}

	s.states[index] = bs.StateFree
	s.free = append(s.free, index)

	s.ls.Debug(log_service.LogEvent{
		Message:  "Block released",
		Metadata: map[string]any{"block": index, "free": len(s.free)},
	})
	return nil
}

func (s *InMemoryBlockService) MarkDefective(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inRange(index) {
		return bs.ErrInvalidBlockIndex
	}

	prev := s.states[index]
	if s.strictDefective && prev != bs.StateFree && prev != bs.StateDefective {
		s.ls.Warn(log_service.LogEvent{
			Message:  "Refused to mark block in use as defective",
			Metadata: map[string]any{"block": index, "state": prev.String()},
		})
		return bs.ErrBlockInUse
	}

	if prev == bs.StateFree {
		s.removeFree(index)
	}
	s.states[index] = bs.StateDefective

	if prev == bs.StateAllocated {
		s.ls.Warn(log_service.LogEvent{
			Message:  "Allocated block marked defective",
			Metadata: map[string]any{"block": index},
		})
	} else {
		s.ls.Info(log_service.LogEvent{
			Message:  "Block marked defective",
			Metadata: map[string]any{"block": index},
		})
	}
	return nil
}

func (s *InMemoryBlockService) State(index int) (bs.BlockState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inRange(index) {
		return 0, bs.ErrInvalidBlockIndex
	}
	return s.states[index], nil
}

func (s *InMemoryBlockService) ListStates() []bs.BlockStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]bs.BlockStatus, len(s.states))
	for i, state := range s.states {
		out[i] = bs.BlockStatus{Index: i, State: state}
	}
	return out
}

func (s *InMemoryBlockService) FreeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.free)
}

func (s *InMemoryBlockService) inRange(index int) bool {
	return index >= 0 && index < len(s.states)
}

// removeFree drops index from the stack, keeping the order of the rest. Caller holds mu.
func (s *InMemoryBlockService) removeFree(index int) {
	for i := len(s.free) - 1; i >= 0; i-- {
		if s.free[i] == index {
			s.free = append(s.free[:i], s.free[i+1:]...)
			return
		}
	}
}

var _ bs.BlockService = (*InMemoryBlockService)(nil)
