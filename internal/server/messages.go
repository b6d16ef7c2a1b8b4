package server

import (
	fsvc "github.com/AnishMulay/inodestore/internal/file_service"
)

// Message Type Constants
const (
	// Disk administration
	MsgInit          = "init"
	MsgAllocBlock    = "alloc_block"
	MsgReleaseBlock  = "release_block"
	MsgMarkDefective = "mark_defective"

	// File lifecycle
	MsgCreate = "create"
	MsgDelete = "delete"

	// Reports
	MsgListBlocks  = "list_blocks"
	MsgBlocksOf    = "blocks_of"
	MsgInode       = "inode"
	MsgListFiles   = "list_files"
	MsgIntegrity   = "integrity"
	MsgLostBlocks  = "lost_blocks"
	MsgLargestFile = "largest_file"
	MsgStats       = "stats"
)

// --- Payload Structs ---

type InitRequest struct {
	Capacity int `json:"capacity"`
}

type CreateRequest struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type CreateResponse struct {
	Slot int `json:"slot"`
}

type InodeRequest struct {
	Slot int `json:"slot"`
}

type BlockRequest struct {
	Block int `json:"block"`
}

type BlockResponse struct {
	Block int `json:"block"`
}

type EmptyRequest struct{}

type LargestFileResponse struct {
	// LegacyBlocks is the raw free block count.
	LegacyBlocks         int          `json:"legacyBlocks"`
	MaxAddressableBlocks int          `json:"maxAddressableBlocks"`
	LongestFreeRun       fsvc.FreeRun `json:"longestFreeRun"`
}

type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
