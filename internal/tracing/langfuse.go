// Package tracing wires optional Langfuse tracing into every chat model call
// the generation client makes.
package tracing

import (
	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"

	"github.com/54b3r/quoteseek/internal/config"
)

// defaultHost is the Langfuse server used when LANGFUSE_HOST is unset.
const defaultHost = "http://localhost:3000"

// Setup initialises the Langfuse callback handler if LANGFUSE_PUBLIC_KEY and
// LANGFUSE_SECRET_KEY are set. Returns a flush function that must be called
// before process exit to ensure all traces are sent. If Langfuse is not
// configured, ok is false and tracing is silently disabled.
func Setup() (handler callbacks.Handler, flush func(), ok bool) {
	publicKey := config.String("LANGFUSE_PUBLIC_KEY", "")
	secretKey := config.String("LANGFUSE_SECRET_KEY", "")
	if publicKey == "" || secretKey == "" {
		return nil, nil, false
	}

	handler, flush = langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      config.String("LANGFUSE_HOST", defaultHost),
		PublicKey: publicKey,
		SecretKey: secretKey,
	})
	return handler, flush, true
}

// Enable registers the Langfuse handler globally when configured and returns
// its flush function. The returned function is a no-op when tracing is off.
func Enable() (flush func(), ok bool) {
	handler, flush, ok := Setup()
	if !ok {
		return func() {}, false
	}
	callbacks.AppendGlobalHandlers(handler)
	return flush, true
}
