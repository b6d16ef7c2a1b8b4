package inodelib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	bs "github.com/AnishMulay/inodestore/internal/block_service"
	"github.com/AnishMulay/inodestore/internal/communication"
	fsvc "github.com/AnishMulay/inodestore/internal/file_service"
	is "github.com/AnishMulay/inodestore/internal/inode_service"
	ps "github.com/AnishMulay/inodestore/internal/server"
)

var (
	ErrClientNotConfigured = errors.New("inode store client is not configured")
	ErrDecodeResponse      = errors.New("failed to decode response body")
)

func NewInodeClient(serverAddr string, comm communication.Communicator) *InodeClient {
	return &InodeClient{
		ServerAddr: serverAddr,
		ClientID:   "inodelib-" + uuid.NewString()[:8],
		Comm:       comm,
	}
}

func (c *InodeClient) Initialize(ctx context.Context, capacity int) error {
	return c.call(ctx, ps.MsgInit, ps.InitRequest{Capacity: capacity}, nil)
}

// CreateFile returns the inode slot of the new file.
func (c *InodeClient) CreateFile(ctx context.Context, name string, sizeBytes int) (int, error) {
	var resp ps.CreateResponse
	if err := c.call(ctx, ps.MsgCreate, ps.CreateRequest{Name: name, Size: sizeBytes}, &resp); err != nil {
		return 0, err
	}
	return resp.Slot, nil
}

func (c *InodeClient) DeleteFile(ctx context.Context, slot int) error {
	return c.call(ctx, ps.MsgDelete, ps.InodeRequest{Slot: slot}, nil)
}

func (c *InodeClient) AllocateBlock(ctx context.Context) (int, error) {
	var resp ps.BlockResponse
	if err := c.call(ctx, ps.MsgAllocBlock, ps.EmptyRequest{}, &resp); err != nil {
		return 0, err
	}
	return resp.Block, nil
}

func (c *InodeClient) ReleaseBlock(ctx context.Context, block int) error {
	return c.call(ctx, ps.MsgReleaseBlock, ps.BlockRequest{Block: block}, nil)
}

func (c *InodeClient) MarkDefective(ctx context.Context, block int) error {
	return c.call(ctx, ps.MsgMarkDefective, ps.BlockRequest{Block: block}, nil)
}

func (c *InodeClient) ListBlockStates(ctx context.Context) ([]bs.BlockStatus, error) {
	var states []bs.BlockStatus
	err := c.call(ctx, ps.MsgListBlocks, ps.EmptyRequest{}, &states)
	return states, err
}

func (c *InodeClient) BlocksOccupiedBy(ctx context.Context, slot int) ([]int, error) {
	var blocks []int
	err := c.call(ctx, ps.MsgBlocksOf, ps.InodeRequest{Slot: slot}, &blocks)
	return blocks, err
}

func (c *InodeClient) Inode(ctx context.Context, slot int) (is.Inode, error) {
	var inode is.Inode
	err := c.call(ctx, ps.MsgInode, ps.InodeRequest{Slot: slot}, &inode)
	return inode, err
}

func (c *InodeClient) ListFiles(ctx context.Context) ([]fsvc.FileInfo, error) {
	var files []fsvc.FileInfo
	err := c.call(ctx, ps.MsgListFiles, ps.EmptyRequest{}, &files)
	return files, err
}

func (c *InodeClient) LargestFile(ctx context.Context) (ps.LargestFileResponse, error) {
	var resp ps.LargestFileResponse
	err := c.call(ctx, ps.MsgLargestFile, ps.EmptyRequest{}, &resp)
	return resp, err
}

func (c *InodeClient) IntegrityReport(ctx context.Context) ([]fsvc.FileIntegrity, error) {
	var report []fsvc.FileIntegrity
	err := c.call(ctx, ps.MsgIntegrity, ps.EmptyRequest{}, &report)
	return report, err
}

func (c *InodeClient) LostBlocks(ctx context.Context) (fsvc.LostSpace, error) {
	var lost fsvc.LostSpace
	err := c.call(ctx, ps.MsgLostBlocks, ps.EmptyRequest{}, &lost)
	return lost, err
}

func (c *InodeClient) Stats(ctx context.Context) (fsvc.Stats, error) {
	var stats fsvc.Stats
	err := c.call(ctx, ps.MsgStats, ps.EmptyRequest{}, &stats)
	return stats, err
}

// call sends one request and decodes an OK body into out when out is non-nil.
// Error responses come back as the matching service sentinel.
func (c *InodeClient) call(ctx context.Context, msgType string, payload any, out any) error {
	if c == nil || c.Comm == nil || c.ServerAddr == "" {
		return ErrClientNotConfigured
	}

	resp, err := c.Comm.Send(ctx, c.ServerAddr, communication.Message{
		From:      c.ClientID,
		Type:      msgType,
		RequestID: uuid.NewString(),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", msgType, err)
	}
	if err := ps.ResponseError(resp); err != nil {
		return err
	}

	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecodeResponse, msgType, err)
	}
	return nil
}
