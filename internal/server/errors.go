package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	bs "github.com/AnishMulay/inodestore/internal/block_service"
	"github.com/AnishMulay/inodestore/internal/communication"
	fsvc "github.com/AnishMulay/inodestore/internal/file_service"
	is "github.com/AnishMulay/inodestore/internal/inode_service"
)

var (
	ErrInvalidPayloadType = errors.New("invalid payload type for message")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrRemote             = errors.New("remote error")
)

type errorKind struct {
	kind string
	err  error
	code communication.Code
}

var errorKinds = []errorKind{
	{"no_free_blocks", bs.ErrNoFreeBlocks, communication.CodeInsufficientStorage},
	{"invalid_block_index", bs.ErrInvalidBlockIndex, communication.CodeBadRequest},
	{"block_in_use", bs.ErrBlockInUse, communication.CodeConflict},
	{"invalid_capacity", bs.ErrInvalidCapacity, communication.CodeBadRequest},
	{"no_free_inodes", is.ErrNoFreeInodes, communication.CodeInsufficientStorage},
	{"invalid_inode", is.ErrInvalidInode, communication.CodeNotFound},
	{"invalid_position", is.ErrInvalidPosition, communication.CodeBadRequest},
	{"size_exceeds_disk", fsvc.ErrSizeExceedsDisk, communication.CodeInsufficientStorage},
	{"invalid_size", fsvc.ErrInvalidSize, communication.CodeBadRequest},
	{"file_too_large", fsvc.ErrFileTooLarge, communication.CodeInsufficientStorage},
	{"invalid_payload", ErrInvalidPayloadType, communication.CodeBadRequest},
	{"unknown_message", ErrUnknownMessageType, communication.CodeBadRequest},
}

// ErrorResponse encodes err as a response whose code and kind identify the
// sentinel it wraps.
func ErrorResponse(err error) *communication.Response {
	body := ErrorBody{Kind: "internal", Message: err.Error()}
	code := communication.CodeInternal
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			body.Kind = k.kind
			code = k.code
			break
		}
	}

	data, marshalErr := json.Marshal(body)
	if marshalErr != nil {
		data = []byte(err.Error())
	}
	return &communication.Response{Code: code, Body: data}
}

// ResponseError rebuilds the error carried by a non-OK response so callers can
// match it with errors.Is against the service sentinels.
func ResponseError(resp *communication.Response) error {
	if resp.Code == communication.CodeOK {
		return nil
	}

	var body ErrorBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return fmt.Errorf("%w: %s: %s", ErrRemote, resp.Code, string(resp.Body))
	}

	for _, k := range errorKinds {
		if k.kind != body.Kind {
			continue
		}
		if body.Message == k.err.Error() {
			return k.err
		}
		return fmt.Errorf("%w: %s", k.err, strings.TrimPrefix(body.Message, k.err.Error()+": "))
	}
	return fmt.Errorf("%w: %s: %s", ErrRemote, resp.Code, body.Message)
}
