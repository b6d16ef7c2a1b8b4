package simple

import (
	"golang.org/x/exp/slices"

	bs "github.com/AnishMulay/inodestore/internal/block_service"
	fsvc "github.com/AnishMulay/inodestore/internal/file_service"
	is "github.com/AnishMulay/inodestore/internal/inode_service"
)

func (s *SimpleFileService) LargestCreatableFileBlocks() int {
	return s.blocks.FreeCount()
}

func (s *SimpleFileService) MaxAddressableBlocks() int {
	return fsvc.MaxAddressableBlocks(s.blocks.FreeCount())
}

func (s *SimpleFileService) LongestFreeRun() fsvc.FreeRun {
	return fsvc.LongestFreeRun(s.blocks.ListStates())
}

func (s *SimpleFileService) ListFiles() []fsvc.FileInfo {
	inodes := s.inodes.List()
	files := make([]fsvc.FileInfo, 0, len(inodes))
	for _, inode := range inodes {
		files = append(files, fsvc.FileInfo{
			Slot:      inode.Slot,
			Name:      inode.Name,
			Size:      inode.Size,
			Type:      inode.Type,
			Blocks:    inode.DirectBlocks(),
			CreatedAt: inode.CreatedAt(),
		})
	}
	return files
}

func (s *SimpleFileService) IntegrityReport() []fsvc.FileIntegrity {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := s.blocks.ListStates()
	var report []fsvc.FileIntegrity
	for _, inode := range s.inodes.List() {
		blocks := inode.DirectBlocks()
		entry := fsvc.FileIntegrity{
			Slot:        inode.Slot,
			Name:        inode.Name,
			Size:        inode.Size,
			Blocks:      blocks,
			BackedBytes: min(len(blocks)*bs.BlockSize, inode.Size),
		}
		for _, b := range blocks {
			if b < len(states) && states[b].State == bs.StateDefective {
				entry.DefectiveBlocks = append(entry.DefectiveBlocks, b)
			}
		}
		entry.Intact = len(entry.DefectiveBlocks) == 0 && entry.BackedBytes >= entry.Size
		report = append(report, entry)
	}
	return report
}

func (s *SimpleFileService) LostBlocks() fsvc.LostSpace {
	s.mu.Lock()
	defer s.mu.Unlock()

	referenced := s.referencedBlocks()
	lost := fsvc.LostSpace{Blocks: []int{}}
	for _, st := range s.blocks.ListStates() {
		switch st.State {
		case bs.StateDefective:
			lost.DefectiveBlocks++
		case bs.StateAllocated:
			if _, found := slices.BinarySearch(referenced, st.Index); !found {
				lost.Blocks = append(lost.Blocks, st.Index)
			}
		}
	}
	lost.LostBytes = len(lost.Blocks) * bs.BlockSize
	return lost
}

// referencedBlocks returns every block pointer held by a live inode, sorted.
func (s *SimpleFileService) referencedBlocks() []int {
	var refs []int
	for _, inode := range s.inodes.List() {
		for _, slot := range inode.Blocks {
			if b, ok := slot.Block(); ok {
				refs = append(refs, b)
			}
		}
	}
	slices.Sort(refs)
	return refs
}

func (s *SimpleFileService) Stats() fsvc.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := fsvc.Stats{
		Capacity:       s.blocks.Capacity(),
		FreeBlocks:     s.blocks.FreeCount(),
		InodesInUse:    s.inodes.InUseCount(),
		InodeCapacity:  is.MaxInodes,
		BlockSizeBytes: bs.BlockSize,
	}
	for _, st := range s.blocks.ListStates() {
		switch st.State {
		case bs.StateAllocated:
			stats.Allocated++
		case bs.StateDefective:
			stats.Defective++
		case bs.StateReserved:
			stats.Reserved++
		}
	}
	return stats
}
