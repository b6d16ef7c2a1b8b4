package simple

import (
	"fmt"
	"sync"
	"time"

	bs "github.com/AnishMulay/inodestore/internal/block_service"
	fsvc "github.com/AnishMulay/inodestore/internal/file_service"
	is "github.com/AnishMulay/inodestore/internal/inode_service"
	"github.com/AnishMulay/inodestore/internal/log_service"
)

// SimpleFileService serializes every multi-step operation behind one mutex so an
// allocation for one file never interleaves with a release for another.
type SimpleFileService struct {
	mu     sync.Mutex
	blocks bs.BlockService
	inodes is.InodeService
	opts   fsvc.Options
	now    func() time.Time
	ls     log_service.LogService
}

func NewSimpleFileService(blocks bs.BlockService, inodes is.InodeService, ls log_service.LogService, opts fsvc.Options) *SimpleFileService {
	return &SimpleFileService{
		blocks: blocks,
		inodes: inodes,
		opts:   opts,
		now:    time.Now,
		ls:     ls,
	}
}

func (s *SimpleFileService) Initialize(capacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blocks.Initialize(capacity); err != nil {
		return err
	}
	s.inodes.Reset()
	return nil
}

func (s *SimpleFileService) CreateFile(name string, sizeBytes int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sizeBytes <= 0 {
		s.warn("Rejected file creation", name, sizeBytes, fsvc.ErrInvalidSize)
		return 0, fsvc.ErrInvalidSize
	}

	limit := s.blocks.Capacity() * bs.BlockSize
	if sizeBytes > limit {
		s.warn("Rejected file creation", name, sizeBytes, fsvc.ErrSizeExceedsDisk)
		return 0, fmt.Errorf("%w: %d bytes > %d", fsvc.ErrSizeExceedsDisk, sizeBytes, limit)
	}

	needed := fsvc.BlocksNeeded(sizeBytes)
	if s.opts.RejectOversized && needed > is.DirectSlots {
		s.warn("Rejected file creation", name, sizeBytes, fsvc.ErrFileTooLarge)
		return 0, fmt.Errorf("%w: %d blocks > %d", fsvc.ErrFileTooLarge, needed, is.DirectSlots)
	}

	slot, err := s.inodes.FindFreeSlot()
	if err != nil {
		s.warn("Rejected file creation", name, sizeBytes, err)
		return 0, err
	}

	var createdAt time.Time
	if s.opts.RecordCreationTime {
		createdAt = s.now()
	}
	if err := s.inodes.Occupy(slot, name, sizeBytes, createdAt); err != nil {
		return 0, err
	}

	allocated := make([]int, 0, is.DirectSlots)
	for i := 0; i < min(needed, is.DirectSlots); i++ {
		block, err := s.blocks.Allocate()
		if err != nil {
			if s.opts.RollbackOnExhaustion {
				s.rollback(slot, allocated)
				s.warn("Rolled back file creation", name, sizeBytes, err)
				return 0, err
			}
			// slot i stays unassigned and the file is left partially backed
			continue
		}
		if err := s.inodes.AssignBlock(slot, i, block); err != nil {
			return 0, err
		}
		allocated = append(allocated, block)
	}

	backed := min(len(allocated)*bs.BlockSize, sizeBytes)
	meta := map[string]any{
		"name":   name,
		"slot":   slot,
		"size":   sizeBytes,
		"blocks": allocated,
	}
	if backed < sizeBytes {
		meta["unbackedBytes"] = sizeBytes - backed
		s.ls.Warn(log_service.LogEvent{Message: "File created with unbacked bytes", Metadata: meta})
	} else {
		s.ls.Info(log_service.LogEvent{Message: "File created", Metadata: meta})
	}
	return slot, nil
}

// rollback undoes a partial creation. Blocks go back in reverse allocation
// order so the free stack ends up exactly as it was. Caller holds mu.
func (s *SimpleFileService) rollback(slot int, allocated []int) {
	for i := len(allocated) - 1; i >= 0; i-- {
		if err := s.blocks.Release(allocated[i]); err != nil {
			s.ls.Error(log_service.LogEvent{
				Message:  "Failed to release block during rollback",
				Metadata: map[string]any{"block": allocated[i], "error": err.Error()},
			})
		}
	}
	if err := s.inodes.Release(slot, func(int) error { return nil }); err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "Failed to free inode during rollback",
			Metadata: map[string]any{"slot": slot, "error": err.Error()},
		})
	}
}

func (s *SimpleFileService) DeleteFile(handle int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.liveInode(handle); err != nil {
		s.ls.Warn(log_service.LogEvent{
			Message:  "Rejected file deletion",
			Metadata: map[string]any{"slot": handle, "error": err.Error()},
		})
		return err
	}

	if err := s.inodes.Release(handle, s.blocks.Release); err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "File deleted with block release errors",
			Metadata: map[string]any{"slot": handle, "error": err.Error()},
		})
		return err
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "File deleted and blocks released",
		Metadata: map[string]any{"slot": handle},
	})
	return nil
}

func (s *SimpleFileService) AllocateBlock() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	block, err := s.blocks.Allocate()
	if err != nil {
		return 0, err
	}
	s.ls.Info(log_service.LogEvent{
		Message:  "Block allocated manually",
		Metadata: map[string]any{"block": block},
	})
	return block, nil
}

func (s *SimpleFileService) ReleaseBlock(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.blocks.State(index); err != nil {
		return err
	}
	if owner, ok := s.owner(index); ok {
		s.ls.Warn(log_service.LogEvent{
			Message:  "Refused to release block owned by a file",
			Metadata: map[string]any{"block": index, "slot": owner},
		})
		return fmt.Errorf("%w: referenced by inode %d", bs.ErrBlockInUse, owner)
	}
	return s.blocks.Release(index)
}

func (s *SimpleFileService) MarkDefective(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocks.MarkDefective(index)
}

func (s *SimpleFileService) ListBlockStates() []bs.BlockStatus {
	return s.blocks.ListStates()
}

func (s *SimpleFileService) BlocksOccupiedBy(handle int) ([]int, error) {
	return s.inodes.BlocksOf(handle)
}

func (s *SimpleFileService) Inode(handle int) (is.Inode, error) {
	return s.liveInode(handle)
}

func (s *SimpleFileService) liveInode(handle int) (is.Inode, error) {
	inode, err := s.inodes.Get(handle)
	if err != nil {
		return is.Inode{}, err
	}
	if !inode.InUse() {
		return is.Inode{}, is.ErrInvalidInode
	}
	return inode, nil
}

// owner finds the live inode referencing block in any of its slots.
func (s *SimpleFileService) owner(block int) (int, bool) {
	for _, inode := range s.inodes.List() {
		for _, slot := range inode.Blocks {
			if b, ok := slot.Block(); ok && b == block {
				return inode.Slot, true
			}
		}
	}
	return 0, false
}

func (s *SimpleFileService) warn(msg string, name string, size int, err error) {
	meta := map[string]any{"name": name, "size": size}
	if err != nil {
		meta["error"] = err.Error()
	}
	s.ls.Warn(log_service.LogEvent{Message: msg, Metadata: meta})
}

var _ fsvc.FileService = (*SimpleFileService)(nil)
