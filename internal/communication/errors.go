package communication

import "errors"

var (
	ErrServerStartFailed  = errors.New("failed to start server")
	ErrClientCreateFailed = errors.New("failed to create client")
	ErrHandlerNotSet      = errors.New("message handler not set")
	ErrMessageSendFailed  = errors.New("failed to send message")

	ErrPayloadMarshalFailed   = errors.New("failed to marshal payload")
	ErrPayloadUnmarshalFailed = errors.New("failed to unmarshal payload")
	ErrResponseDecodeFailed   = errors.New("failed to decode response")
)
