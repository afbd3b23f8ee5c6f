// Package encoding decides what a conversion targets and runs the encoder
// fallback cascade.
//
// PolicyForHint turns the client's capability hint into a Policy (AV1 for
// modern clients, HEVC otherwise). A Table lists, per policy and media type,
// the ordered attempts: a hardware encoder, a software encoder and a
// universally playable fallback. Cascade.Run executes them against an
// Encoder until one succeeds.
//
// Failures surface as *EncodeFailedError or *EncodeTimeoutError carrying the
// tier; only the last tier's error is returned when the cascade is exhausted.
package encoding
