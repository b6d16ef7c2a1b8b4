package file_service

import (
	"time"

	bs "github.com/AnishMulay/inodestore/internal/block_service"
	is "github.com/AnishMulay/inodestore/internal/inode_service"
)

// FileService binds the block store and the inode table into files made of
// directly addressed blocks.
type FileService interface {
	// Initialize resets the disk to capacity free blocks and frees every inode.
	Initialize(capacity int) error

	// CreateFile returns the inode slot holding the new file.
	CreateFile(name string, sizeBytes int) (int, error)
	DeleteFile(handle int) error

	// AllocateBlock takes one block off the free stack without any owning file.
	AllocateBlock() (int, error)
	// ReleaseBlock returns a block that no live file references.
	ReleaseBlock(index int) error
	MarkDefective(index int) error

	ListBlockStates() []bs.BlockStatus
	BlocksOccupiedBy(handle int) ([]int, error)
	Inode(handle int) (is.Inode, error)
	ListFiles() []FileInfo

	// LargestCreatableFileBlocks is the legacy report: the raw free block count.
	LargestCreatableFileBlocks() int
	// MaxAddressableBlocks is the number of blocks a new file can really get.
	MaxAddressableBlocks() int
	LongestFreeRun() FreeRun

	IntegrityReport() []FileIntegrity
	LostBlocks() LostSpace
	Stats() Stats
}

type Options struct {
	// RollbackOnExhaustion makes CreateFile all-or-nothing when the disk runs out
	// of blocks part way through.
	RollbackOnExhaustion bool

	// RejectOversized fails CreateFile when the file needs more blocks than the
	// direct slots can address.
	RejectOversized bool

	// RecordCreationTime stamps new inodes with the current date and time.
	RecordCreationTime bool
}

type FileInfo struct {
	Slot      int          `json:"slot"`
	Name      string       `json:"name"`
	Size      int          `json:"size"`
	Type      is.InodeType `json:"type"`
	Blocks    []int        `json:"blocks"`
	CreatedAt time.Time    `json:"createdAt"`
}

type FreeRun struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

type FileIntegrity struct {
	Slot   int    `json:"slot"`
	Name   string `json:"name"`
	Size   int    `json:"size"`
	Blocks []int  `json:"blocks"`
	// BackedBytes is the part of Size actually covered by assigned blocks.
	BackedBytes     int   `json:"backedBytes"`
	DefectiveBlocks []int `json:"defectiveBlocks,omitempty"`
	Intact          bool  `json:"intact"`
}

type LostSpace struct {
	// Blocks are allocated but referenced by no live file, ascending.
	Blocks          []int `json:"blocks"`
	LostBytes       int   `json:"lostBytes"`
	DefectiveBlocks int   `json:"defectiveBlocks"`
}

type Stats struct {
	Capacity       int `json:"capacity"`
	FreeBlocks     int `json:"freeBlocks"`
	Allocated      int `json:"allocated"`
	Defective      int `json:"defective"`
	Reserved       int `json:"reserved"`
	InodesInUse    int `json:"inodesInUse"`
	InodeCapacity  int `json:"inodeCapacity"`
	BlockSizeBytes int `json:"blockSizeBytes"`
}

// BlocksNeeded is the number of BlockSize blocks covering sizeBytes.
func BlocksNeeded(sizeBytes int) int {
	if sizeBytes <= 0 {
		return 0
	}
	return (sizeBytes + bs.BlockSize - 1) / bs.BlockSize
}

// MaxAddressableBlocks caps a free block count at the direct slot limit.
func MaxAddressableBlocks(freeBlocks int) int {
	return min(freeBlocks, is.DirectSlots)
}

// LongestFreeRun finds the first longest run of consecutive free blocks.
// Start is -1 when nothing is free.
func LongestFreeRun(states []bs.BlockStatus) FreeRun {
	best := FreeRun{Start: -1}
	runStart, runLen := 0, 0
	for _, st := range states {
		if st.State != bs.StateFree {
			runLen = 0
			continue
		}
		if runLen == 0 {
			runStart = st.Index
		}
		runLen++
		if runLen > best.Length {
			best = FreeRun{Start: runStart, Length: runLen}
		}
	}
	return best
}
