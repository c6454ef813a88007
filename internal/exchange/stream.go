package exchange

import (
	"context"
	"time"

	"go.uber.org/zap"

	"crypto-market-pipeline/internal/domain"
)

// SendPolicy is a connector's explicit choice of what happens when its
// bounded output channel is full. Live websocket feeds must not stall the
// socket and drop; pollers and generators tolerate blocking.
type SendPolicy int

const (
	SendBlock SendPolicy = iota
	SendDrop
)

// Emit delivers one tick onto out according to the policy. With SendBlock it
// waits for the consumer or context cancellation; with SendDrop a full
// channel loses the tick and Emit reports sent=false.
func Emit(ctx context.Context, out chan<- domain.MarketTick, tick domain.MarketTick, policy SendPolicy) (sent bool, err error) {
	if policy == SendDrop {
		select {
		case out <- tick:
			return true, nil
		default:
			return false, nil
		}
	}
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case out <- tick:
		return true, nil
	}
}

// RunLoop drives one venue session through the Connecting -> Streaming ->
// Backoff cycle forever. session must call connected() once its handshake and
// subscriptions succeed; that resets the backoff to its minimum. RunLoop
// returns only when ctx is cancelled — transient failures never terminate a
// connector.
func RunLoop(ctx context.Context, log *zap.Logger, name string, session func(ctx context.Context, connected func()) error) error {
	backoff := DefaultBackoff()
	attempt := 1
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Info(name + ": connecting")
		connectedOnce := false
		err := session(ctx, func() {
			connectedOnce = true
			log.Info(name + ": streaming")
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Warn(name + ": session error: " + err.Error())
		}
		if connectedOnce {
			attempt = 1
		}

		wait := backoff.Next(attempt)
		attempt++
		log.Info(name + ": backoff " + wait.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// NowMillis is the tick timestamp source: milliseconds since epoch.
func NowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}
