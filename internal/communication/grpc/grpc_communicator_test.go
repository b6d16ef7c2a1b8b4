package grpccomm

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/AnishMulay/inodestore/internal/communication"
	"github.com/AnishMulay/inodestore/internal/log_service/zaplog"
)

type createPayload struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

func startServer(t *testing.T, handler communication.MessageHandler) *GRPCCommunicator {
	t.Helper()
	srv := NewGRPCCommunicator("127.0.0.1:0", zaplog.NewNop())
	srv.RegisterPayloadType("create", reflect.TypeOf(createPayload{}))
	if err := srv.Start(handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Stop() })
	return srv
}

func newClient(t *testing.T) *GRPCCommunicator {
	t.Helper()
	client := NewGRPCCommunicator("", zaplog.NewNop())
	t.Cleanup(func() { _ = client.Stop() })
	return client
}

func TestGRPCCommunicator_RoundTrip(t *testing.T) {
	received := make(chan communication.Message, 1)
	srv := startServer(t, func(ctx context.Context, msg communication.Message) (*communication.Response, error) {
		received <- msg
		body, _ := json.Marshal(map[string]int{"slot": 4})
		return &communication.Response{Code: communication.CodeOK, Body: body}, nil
	})
	client := newClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Send(ctx, srv.Address(), communication.Message{
		From:      "test",
		Type:      "create",
		RequestID: "req-1",
		Payload:   createPayload{Name: "a", Size: 55},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if resp.Code != communication.CodeOK {
		t.Errorf("Send() code = %v, want %v", resp.Code, communication.CodeOK)
	}
	if string(resp.Body) != `{"slot":4}` {
		t.Errorf("Send() body = %s, want {\"slot\":4}", resp.Body)
	}

	got := <-received
	payload, ok := got.Payload.(createPayload)
	if !ok {
		t.Fatalf("handler payload type = %T, want createPayload", got.Payload)
	}
	if payload != (createPayload{Name: "a", Size: 55}) {
		t.Errorf("handler payload = %+v", payload)
	}
	if got.From != "test" || got.RequestID != "req-1" {
		t.Errorf("handler message = %+v, want from test and request id req-1", got)
	}
}

func TestGRPCCommunicator_HandlerErrorsBecomeInternal(t *testing.T) {
	srv := startServer(t, func(ctx context.Context, msg communication.Message) (*communication.Response, error) {
		return nil, errors.New("exploded")
	})
	client := newClient(t)

	resp, err := client.Send(context.Background(), srv.Address(), communication.Message{Type: "create"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Code != communication.CodeInternal || string(resp.Body) != "exploded" {
		t.Errorf("Send() = %v %s, want INTERNAL exploded", resp.Code, resp.Body)
	}
}

func TestGRPCCommunicator_UnregisteredPayload(t *testing.T) {
	srv := startServer(t, func(ctx context.Context, msg communication.Message) (*communication.Response, error) {
		return &communication.Response{Code: communication.CodeOK}, nil
	})
	client := newClient(t)

	resp, err := client.Send(context.Background(), srv.Address(), communication.Message{
		Type:    "mystery",
		Payload: map[string]int{"x": 1},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Code != communication.CodeBadRequest {
		t.Errorf("Send() code = %v, want %v", resp.Code, communication.CodeBadRequest)
	}
}

func TestGRPCCommunicator_StartFailsOnBadAddress(t *testing.T) {
	c := NewGRPCCommunicator("256.0.0.1:bad", zaplog.NewNop())
	err := c.Start(func(ctx context.Context, msg communication.Message) (*communication.Response, error) {
		return nil, nil
	})
	if !errors.Is(err, communication.ErrServerStartFailed) {
		t.Errorf("Start() error = %v, want %v", err, communication.ErrServerStartFailed)
	}
}
