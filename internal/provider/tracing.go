package provider

import (
	"context"
	"time"

	"go.uber.org/zap"

	"aegis/internal/schema"
)

// TracingClient decorates a Client with request/latency logging. Wrap any
// Client with it; components downstream never know the difference.
type TracingClient struct {
	inner  Client
	logger *zap.Logger
}

// NewTracingClient wraps inner with structured call logging.
func NewTracingClient(inner Client, logger *zap.Logger) *TracingClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TracingClient{inner: inner, logger: logger}
}

func (t *TracingClient) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := t.inner.Complete(ctx, req)
	t.log("complete", "", len(req.Prompt), len(out), start, err)
	return out, err
}

func (t *TracingClient) CompleteStructured(ctx context.Context, req Request, contract schema.Contract, out any) error {
	start := time.Now()
	err := t.inner.CompleteStructured(ctx, req, contract, out)
	t.log("complete_structured", contract.Name, len(req.Prompt), -1, start, err)
	return err
}

func (t *TracingClient) log(op, contract string, promptLen, responseLen int, start time.Time, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int("prompt_chars", promptLen),
		zap.Duration("elapsed", time.Since(start)),
	}
	if contract != "" {
		fields = append(fields, zap.String("contract", contract))
	}
	if responseLen >= 0 {
		fields = append(fields, zap.Int("response_chars", responseLen))
	}
	if err != nil {
		t.logger.Warn("completion failed", append(fields, zap.Error(err))...)
		return
	}
	t.logger.Debug("completion ok", fields...)
}
