package inmemory

import (
	"errors"
	"fmt"
	"sync"
	"time"

	is "github.com/AnishMulay/inodestore/internal/inode_service"
	"github.com/AnishMulay/inodestore/internal/log_service"
)

type InMemoryInodeService struct {
	mu     sync.RWMutex
	inodes [is.MaxInodes]is.Inode
	ls     log_service.LogService
}

func NewInMemoryInodeService(ls log_service.LogService) *InMemoryInodeService {
	s := &InMemoryInodeService{ls: ls}
	s.reset()
	return s
}

func (s *InMemoryInodeService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.ls.Info(log_service.LogEvent{Message: "Inode table reset", Metadata: map[string]any{"capacity": is.MaxInodes}})
}

func (s *InMemoryInodeService) reset() {
	for i := range s.inodes {
		s.inodes[i] = is.FreeInode(i)
	}
}

func (s *InMemoryInodeService) FindFreeSlot() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.inodes {
		if s.inodes[i].Size == 0 {
			return i, nil
		}
	}
	s.ls.Warn(log_service.LogEvent{Message: "No free inodes available"})
	return 0, is.ErrNoFreeInodes
}

func (s *InMemoryInodeService) Occupy(slot int, name string, sizeBytes int, createdAt time.Time) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("%w: size %d", is.ErrInvalidInode, sizeBytes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inode, err := s.lookup(slot)
	if err != nil {
		return err
	}
	if inode.InUse() {
		return fmt.Errorf("%w: slot %d already in use", is.ErrInvalidInode, slot)
	}

	inode.Name = name
	inode.Size = sizeBytes
	inode.LinkCount = 1
	inode.Type = is.TypeRegular
	inode.Stamp(createdAt)

	s.ls.Debug(log_service.LogEvent{
		Message:  "Inode occupied",
		Metadata: map[string]any{"slot": slot, "size": sizeBytes},
	})
	return nil
}

func (s *InMemoryInodeService) AssignBlock(slot int, position int, block int) error {
	if position < 0 || position >= is.SlotCount {
		return is.ErrInvalidPosition
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inode, err := s.lookup(slot)
	if err != nil {
		return err
	}
	if !inode.InUse() {
		return is.ErrInvalidInode
	}
	inode.Blocks[position] = is.Assigned(block)
	return nil
}

func (s *InMemoryInodeService) Release(slot int, release is.ReleaseFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inode, err := s.lookup(slot)
	if err != nil {
		return err
	}
	if !inode.InUse() {
		return is.ErrInvalidInode
	}

	var errs []error
	released := 0
	for _, bslot := range inode.Blocks {
		block, ok := bslot.Block()
		if !ok {
			continue
		}
		if err := release(block); err != nil {
			errs = append(errs, fmt.Errorf("release block %d: %w", block, err))
		} else {
			released++
		}
	}

	*inode = is.FreeInode(slot)

	s.ls.Debug(log_service.LogEvent{
		Message:  "Inode released",
		Metadata: map[string]any{"slot": slot, "blocks": released},
	})
	return errors.Join(errs...)
}

func (s *InMemoryInodeService) BlocksOf(slot int) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inode, err := s.lookup(slot)
	if err != nil {
		return nil, err
	}
	if !inode.InUse() {
		return nil, is.ErrInvalidInode
	}
	return inode.DirectBlocks(), nil
}

func (s *InMemoryInodeService) Get(slot int) (is.Inode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inode, err := s.lookup(slot)
	if err != nil {
		return is.Inode{}, err
	}
	return *inode, nil
}

func (s *InMemoryInodeService) List() []is.Inode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []is.Inode
	for i := range s.inodes {
		if s.inodes[i].InUse() {
			out = append(out, s.inodes[i])
		}
	}
	return out
}

func (s *InMemoryInodeService) InUseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for i := range s.inodes {
		if s.inodes[i].InUse() {
			n++
		}
	}
	return n
}

// lookup returns the record at slot. Caller holds mu.
func (s *InMemoryInodeService) lookup(slot int) (*is.Inode, error) {
	if slot < 0 || slot >= is.MaxInodes {
		return nil, is.ErrInvalidInode
	}
	return &s.inodes[slot], nil
}

var _ is.InodeService = (*InMemoryInodeService)(nil)
