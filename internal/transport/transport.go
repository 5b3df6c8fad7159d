// Package transport defines the interface for the network surfaces of
// serve mode.
//
// Each transport (HTTP, gRPC) accepts requests in its own protocol and
// hands them to a Service. Transports don't know about sessions.
package transport

import (
	"context"

	"github.com/nadzzz/ransom/internal/message"
)

// Service processes requests. *dispatch.Dispatcher implements it.
type Service interface {
	Handle(ctx context.Context, req *message.RenderRequest) (*message.RenderResult, error)
	Voices(ctx context.Context) (*message.VoiceList, error)
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts accepting requests and passes them to svc.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, svc Service) error

	// SetReady reports whether the service can take requests.
	SetReady(ready bool)

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
