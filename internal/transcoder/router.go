package transcoder

import (
	"context"
	"fmt"

	"media-converter/internal/encoding"
)

// Router sends each attempt to the collaborator for its engine.
type Router struct {
	FFmpeg encoding.Encoder
	Still  encoding.Encoder
}

// Encode implements encoding.Encoder.
func (r *Router) Encode(ctx context.Context, req encoding.Request) error {
	var enc encoding.Encoder
	switch req.Attempt.Engine {
	case encoding.EngineFFmpeg, "":
		enc = r.FFmpeg
	case encoding.EngineStill:
		enc = r.Still
	}
	if enc == nil {
		err := fmt.Errorf("no encoder registered for engine %q", req.Attempt.Engine)
		return &encoding.EncodeFailedError{Tier: req.Attempt.Tier, Detail: err.Error(), Err: err}
	}
	return enc.Encode(ctx, req)
}
