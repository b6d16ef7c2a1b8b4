package block_service

import "errors"

var (
	ErrNoFreeBlocks      = errors.New("no free blocks available")
	ErrInvalidBlockIndex = errors.New("invalid block index")
	ErrBlockInUse        = errors.New("block is in use")
	ErrInvalidCapacity   = errors.New("disk capacity out of range")
)
