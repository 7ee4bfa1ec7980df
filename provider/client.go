// Package provider defines the boundary to external text-generation
// services used for translation.
//
// A request carries a system instruction plus a JSON array of {id, text}
// items; the service replies with {id, translation} items. The service is
// non-deterministic: replies may drop, duplicate, or invent ids, so nothing
// in this package assumes id or count fidelity — that is the reconcile
// package's job.
//
// # Usage
//
// Create a client through the registry:
//
//	client, err := provider.New("openai", provider.Config{
//	    Model: "gpt-4.1-mini",
//	})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	resp, err := client.Translate(ctx, provider.Request{
//	    System: provider.SystemInstruction("es"),
//	    Items:  []provider.Item{{ID: 1, Text: "hello"}},
//	})
//
// Concrete providers register themselves by name in their init function;
// importing a provider package for side effects makes it available.
package provider

import "context"

// Client is the interface to one translation backend.
// Implementations must be safe for concurrent use.
type Client interface {
	// Translate sends one batch and returns the raw reply.
	// The context controls cancellation and the per-request timeout.
	Translate(ctx context.Context, req Request) (*Response, error)

	// Provider returns the backend name (e.g. "openai").
	Provider() string

	// Close releases any resources held by the client.
	Close() error
}
