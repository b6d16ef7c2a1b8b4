package inode_service

import "time"

// ReleaseFunc returns one block to whoever owns block state.
type ReleaseFunc func(block int) error

// InodeService owns the fixed-capacity inode table. It stores block indices but
// never touches block state itself; Release hands each one to a ReleaseFunc.
type InodeService interface {
	// Reset returns every record to its free state without releasing blocks.
	Reset()

	// FindFreeSlot returns the lowest slot whose size is zero.
	FindFreeSlot() (int, error)

	// Occupy marks slot in use with sizeBytes, link count 1 and type regular.
	// A zero createdAt leaves the creation date and time unset.
	Occupy(slot int, name string, sizeBytes int, createdAt time.Time) error

	// AssignBlock points block slot position of the inode at block.
	AssignBlock(slot int, position int, block int) error

	// Release hands every assigned block pointer to release, clears it, and
	// frees the record.
	Release(slot int, release ReleaseFunc) error

	// BlocksOf lists the direct blocks of an in-use inode in slot order.
	BlocksOf(slot int) ([]int, error)

	Get(slot int) (Inode, error)

	// List returns the in-use records in ascending slot order.
	List() []Inode

	InUseCount() int
}
