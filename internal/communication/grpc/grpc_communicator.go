package grpccomm

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"reflect"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/AnishMulay/inodestore/internal/communication"
	"github.com/AnishMulay/inodestore/internal/log_service"
)

type GRPCCommunicator struct {
	listenAddress string
	handler       communication.MessageHandler
	grpcServer    *grpc.Server
	ls            log_service.LogService

	clientLock sync.RWMutex
	clients    map[string]*grpc.ClientConn

	typesLock    sync.RWMutex
	payloadTypes map[string]reflect.Type

	stopMutex sync.Mutex
	stopped   bool
}

func NewGRPCCommunicator(addr string, ls log_service.LogService) *GRPCCommunicator {
	return &GRPCCommunicator{
		listenAddress: addr,
		ls:            ls,
		clients:       make(map[string]*grpc.ClientConn),
		payloadTypes:  make(map[string]reflect.Type),
	}
}

// Address is the configured listen address, or the bound one once started.
func (c *GRPCCommunicator) Address() string {
	return c.listenAddress
}

func (c *GRPCCommunicator) RegisterPayloadType(msgType string, payloadType reflect.Type) {
	c.typesLock.Lock()
	defer c.typesLock.Unlock()
	c.payloadTypes[msgType] = payloadType
}

func (c *GRPCCommunicator) Start(handler communication.MessageHandler) error {
	c.ls.Info(log_service.LogEvent{
		Message:  "Starting GRPC communicator",
		Metadata: map[string]any{"address": c.listenAddress},
	})

	lis, err := net.Listen("tcp", c.listenAddress)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to listen on address",
			Metadata: map[string]any{"address": c.listenAddress, "error": err.Error()},
		})
		return fmt.Errorf("%w: %v", communication.ErrServerStartFailed, err)
	}

	c.handler = handler
	c.listenAddress = lis.Addr().String()
	c.grpcServer = grpc.NewServer()
	c.grpcServer.RegisterService(&messageServiceDesc, &grpcServer{comm: c})

	go func() {
		if err := c.grpcServer.Serve(lis); err != nil {
			c.ls.Error(log_service.LogEvent{
				Message:  "GRPC server error",
				Metadata: map[string]any{"address": c.listenAddress, "error": err.Error()},
			})
		}
	}()

	c.ls.Info(log_service.LogEvent{
		Message:  "GRPC communicator started successfully",
		Metadata: map[string]any{"address": c.listenAddress},
	})
	return nil
}

func (c *GRPCCommunicator) Stop() error {
	c.stopMutex.Lock()
	defer c.stopMutex.Unlock()

	if c.stopped {
		return nil
	}

	if c.grpcServer != nil {
		c.grpcServer.GracefulStop()
	}

	c.clientLock.Lock()
	for addr, conn := range c.clients {
		if err := conn.Close(); err != nil {
			c.ls.Warn(log_service.LogEvent{
				Message:  "Failed to close GRPC client",
				Metadata: map[string]any{"to": addr, "error": err.Error()},
			})
		}
		delete(c.clients, addr)
	}
	c.clientLock.Unlock()

	c.stopped = true
	c.ls.Info(log_service.LogEvent{
		Message:  "GRPC communicator stopped",
		Metadata: map[string]any{"address": c.listenAddress},
	})
	return nil
}

func (c *GRPCCommunicator) client(to string) (*grpc.ClientConn, error) {
	c.clientLock.RLock()
	conn, ok := c.clients[to]
	c.clientLock.RUnlock()
	if ok {
		return conn, nil
	}

	c.clientLock.Lock()
	defer c.clientLock.Unlock()
	if conn, ok := c.clients[to]; ok {
		return conn, nil
	}

	conn, err := grpc.NewClient(to, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to create GRPC client",
			Metadata: map[string]any{"to": to, "error": err.Error()},
		})
		return nil, communication.ErrClientCreateFailed
	}
	c.clients[to] = conn
	return conn, nil
}

func (c *GRPCCommunicator) Send(ctx context.Context, to string, msg communication.Message) (*communication.Response, error) {
	c.ls.Debug(log_service.LogEvent{
		Message:  "Sending GRPC message",
		Metadata: map[string]any{"to": to, "type": msg.Type, "requestId": msg.RequestID},
	})

	conn, err := c.client(to)
	if err != nil {
		return nil, err
	}

	env := envelope{From: msg.From, Type: msg.Type, RequestID: msg.RequestID}
	if msg.Payload != nil {
		env.Payload, err = json.Marshal(msg.Payload)
		if err != nil {
			return nil, communication.ErrPayloadMarshalFailed
		}
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, communication.ErrPayloadMarshalFailed
	}

	out := new(wrapperspb.BytesValue)
	if err := conn.Invoke(ctx, sendMessageMethod, wrapperspb.Bytes(data), out); err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to send GRPC message",
			Metadata: map[string]any{"to": to, "type": msg.Type, "error": err.Error()},
		})
		return nil, fmt.Errorf("%w: %v", communication.ErrMessageSendFailed, err)
	}

	var r reply
	if err := json.Unmarshal(out.GetValue(), &r); err != nil {
		return nil, communication.ErrResponseDecodeFailed
	}
	return &communication.Response{Code: communication.Code(r.Code), Body: r.Body}, nil
}

// decode turns a wire envelope into a Message with a typed payload.
func (c *GRPCCommunicator) decode(env envelope) (communication.Message, error) {
	msg := communication.Message{From: env.From, Type: env.Type, RequestID: env.RequestID}

	c.typesLock.RLock()
	payloadType, ok := c.payloadTypes[env.Type]
	c.typesLock.RUnlock()
	if !ok {
		if len(env.Payload) > 0 {
			return msg, communication.ErrPayloadUnmarshalFailed
		}
		return msg, nil
	}

	payload := reflect.New(payloadType)
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, payload.Interface()); err != nil {
			return msg, communication.ErrPayloadUnmarshalFailed
		}
	}
	msg.Payload = payload.Elem().Interface()
	return msg, nil
}

type grpcServer struct {
	comm *GRPCCommunicator
}

func (s *grpcServer) SendMessage(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s.comm.handler == nil {
		return nil, communication.ErrHandlerNotSet
	}

	resp := s.handle(ctx, req.GetValue())
	data, err := json.Marshal(reply{Code: string(resp.Code), Body: resp.Body})
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(data), nil
}

func (s *grpcServer) handle(ctx context.Context, raw []byte) *communication.Response {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &communication.Response{Code: communication.CodeBadRequest, Body: []byte("malformed envelope")}
	}

	msg, err := s.comm.decode(env)
	if err != nil {
		return &communication.Response{
			Code: communication.CodeBadRequest,
			Body: []byte(fmt.Sprintf("invalid payload for message type %s", env.Type)),
		}
	}

	resp, err := s.comm.handler(ctx, msg)
	if err != nil {
		s.comm.ls.Error(log_service.LogEvent{
			Message:  "Message handler failed",
			Metadata: map[string]any{"type": msg.Type, "requestId": msg.RequestID, "error": err.Error()},
		})
		return &communication.Response{Code: communication.CodeInternal, Body: []byte(err.Error())}
	}
	if resp == nil {
		return &communication.Response{Code: communication.CodeInternal, Body: []byte("handler returned nil response")}
	}
	return resp
}

var _ communication.Communicator = (*GRPCCommunicator)(nil)
