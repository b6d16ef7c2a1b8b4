package simple

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/AnishMulay/inodestore/internal/communication"
	fsvc "github.com/AnishMulay/inodestore/internal/file_service"
	"github.com/AnishMulay/inodestore/internal/log_service"
	ps "github.com/AnishMulay/inodestore/internal/server"
)

type SimpleServer struct {
	comm communication.Communicator
	fs   fsvc.FileService
	ls   log_service.LogService
}

func NewSimpleServer(comm communication.Communicator, fs fsvc.FileService, ls log_service.LogService) *SimpleServer {
	return &SimpleServer{
		comm: comm,
		fs:   fs,
		ls:   ls,
	}
}

func (s *SimpleServer) Start() error {
	s.ls.Info(log_service.LogEvent{Message: "Starting inode store server", Metadata: map[string]any{"address": s.comm.Address()}})

	s.registerPayloads()
	return s.comm.Start(s.handleMessage)
}

func (s *SimpleServer) Stop() error {
	s.ls.Info(log_service.LogEvent{Message: "Stopping inode store server"})
	return s.comm.Stop()
}

func (s *SimpleServer) registerPayloads() {
	// Disk administration
	s.comm.RegisterPayloadType(ps.MsgInit, reflect.TypeOf(ps.InitRequest{}))
	s.comm.RegisterPayloadType(ps.MsgAllocBlock, reflect.TypeOf(ps.EmptyRequest{}))
	s.comm.RegisterPayloadType(ps.MsgReleaseBlock, reflect.TypeOf(ps.BlockRequest{}))
	s.comm.RegisterPayloadType(ps.MsgMarkDefective, reflect.TypeOf(ps.BlockRequest{}))

	// Files
	s.comm.RegisterPayloadType(ps.MsgCreate, reflect.TypeOf(ps.CreateRequest{}))
	s.comm.RegisterPayloadType(ps.MsgDelete, reflect.TypeOf(ps.InodeRequest{}))
	s.comm.RegisterPayloadType(ps.MsgBlocksOf, reflect.TypeOf(ps.InodeRequest{}))
	s.comm.RegisterPayloadType(ps.MsgInode, reflect.TypeOf(ps.InodeRequest{}))

	// Reports
	for _, t := range []string{ps.MsgListBlocks, ps.MsgListFiles, ps.MsgIntegrity, ps.MsgLostBlocks, ps.MsgLargestFile, ps.MsgStats} {
		s.comm.RegisterPayloadType(t, reflect.TypeOf(ps.EmptyRequest{}))
	}
}

// handleMessage routes every incoming message to the file service.
func (s *SimpleServer) handleMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	s.ls.Debug(log_service.LogEvent{
		Message:  "Handling message",
		Metadata: map[string]any{"type": msg.Type, "from": msg.From, "requestId": msg.RequestID},
	})

	switch msg.Type {
	case ps.MsgInit:
		req, ok := msg.Payload.(ps.InitRequest)
		if !ok {
			return s.badPayload(msg)
		}
		return s.respond(nil, s.fs.Initialize(req.Capacity))

	case ps.MsgAllocBlock:
		block, err := s.fs.AllocateBlock()
		return s.respond(ps.BlockResponse{Block: block}, err)

	case ps.MsgReleaseBlock:
		req, ok := msg.Payload.(ps.BlockRequest)
		if !ok {
			return s.badPayload(msg)
		}
		return s.respond(nil, s.fs.ReleaseBlock(req.Block))

	case ps.MsgMarkDefective:
		req, ok := msg.Payload.(ps.BlockRequest)
		if !ok {
			return s.badPayload(msg)
		}
		return s.respond(nil, s.fs.MarkDefective(req.Block))

	case ps.MsgCreate:
		req, ok := msg.Payload.(ps.CreateRequest)
		if !ok {
			return s.badPayload(msg)
		}
		slot, err := s.fs.CreateFile(req.Name, req.Size)
		return s.respond(ps.CreateResponse{Slot: slot}, err)

	case ps.MsgDelete:
		req, ok := msg.Payload.(ps.InodeRequest)
		if !ok {
			return s.badPayload(msg)
		}
		return s.respond(nil, s.fs.DeleteFile(req.Slot))

	case ps.MsgBlocksOf:
		req, ok := msg.Payload.(ps.InodeRequest)
		if !ok {
			return s.badPayload(msg)
		}
		blocks, err := s.fs.BlocksOccupiedBy(req.Slot)
		return s.respond(blocks, err)

	case ps.MsgInode:
		req, ok := msg.Payload.(ps.InodeRequest)
		if !ok {
			return s.badPayload(msg)
		}
		inode, err := s.fs.Inode(req.Slot)
		return s.respond(inode, err)

	case ps.MsgListBlocks:
		return s.respond(s.fs.ListBlockStates(), nil)

	case ps.MsgListFiles:
		return s.respond(s.fs.ListFiles(), nil)

	case ps.MsgIntegrity:
		return s.respond(s.fs.IntegrityReport(), nil)

	case ps.MsgLostBlocks:
		return s.respond(s.fs.LostBlocks(), nil)

	case ps.MsgLargestFile:
		return s.respond(ps.LargestFileResponse{
			LegacyBlocks:         s.fs.LargestCreatableFileBlocks(),
			MaxAddressableBlocks: s.fs.MaxAddressableBlocks(),
			LongestFreeRun:       s.fs.LongestFreeRun(),
		}, nil)

	case ps.MsgStats:
		return s.respond(s.fs.Stats(), nil)

	default:
		return s.respond(nil, fmt.Errorf("%w: %s", ps.ErrUnknownMessageType, msg.Type))
	}
}

func (s *SimpleServer) badPayload(msg communication.Message) (*communication.Response, error) {
	return s.respond(nil, fmt.Errorf("%w: %s got %T", ps.ErrInvalidPayloadType, msg.Type, msg.Payload))
}

// respond encodes data as JSON, or err as an error body with a matching code.
func (s *SimpleServer) respond(data any, err error) (*communication.Response, error) {
	if err != nil {
		resp := ps.ErrorResponse(err)
		if resp.Code == communication.CodeInternal {
			s.ls.Error(log_service.LogEvent{Message: "Request failed", Metadata: map[string]any{"error": err.Error()}})
		}
		return resp, nil
	}

	if data == nil {
		return &communication.Response{Code: communication.CodeOK}, nil
	}

	bytes, marshalErr := json.Marshal(data)
	if marshalErr != nil {
		return &communication.Response{
			Code: communication.CodeInternal,
			Body: []byte("failed to marshal response: " + marshalErr.Error()),
		}, nil
	}

	return &communication.Response{
		Code: communication.CodeOK,
		Body: bytes,
	}, nil
}
