package communication

import (
	"context"
	"reflect"
)

type Code string

const (
	CodeOK                  Code = "OK"
	CodeBadRequest          Code = "BAD_REQUEST"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeInsufficientStorage Code = "INSUFFICIENT_STORAGE"
	CodeInternal            Code = "INTERNAL"
	CodeUnavailable         Code = "UNAVAILABLE"
)

type Message struct {
	From      string
	Type      string
	RequestID string
	Payload   any
}

type Response struct {
	Code Code
	Body []byte
}

type MessageHandler func(ctx context.Context, msg Message) (*Response, error)

type Communicator interface {
	Start(handler MessageHandler) error
	Stop() error
	Send(ctx context.Context, to string, msg Message) (*Response, error)
	// RegisterPayloadType tells the receiving side which struct to decode the
	// payload of msgType into.
	RegisterPayloadType(msgType string, payloadType reflect.Type)
	Address() string
}
