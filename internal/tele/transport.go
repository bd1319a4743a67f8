package tele

import (
	"context"

	"github.com/temoto/battwatch/log2"
)

// Transporter contract:
// - Init fails only with invalid config, ignores network errors
// - Send* deliver within timeout or fail, success includes ack from broker
// - application may start without network available
type Transporter interface {
	Init(ctx context.Context, log *log2.Log, teleConfig Config, willPayload []byte) error
	SendState(payload []byte) bool
	SendEvent(payload []byte) bool
	Close()
}
