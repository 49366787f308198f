// Package dispatcher drains the Telegram long-poll transport into a bounded
// queue consumed by a fixed pool of command workers.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	batchLimit          = 100
	pacingDelay         = 100 * time.Millisecond
	transportRetryDelay = 10 * time.Second
)

// Transport is the long-poll message transport consumed by the dispatcher.
type Transport interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Handler processes one inbound update. A returned error is fatal for the
// worker that called it.
type Handler interface {
	Handle(ctx context.Context, update tgbotapi.Update) error
}

// Options sizes the dispatcher at construction time.
type Options struct {
	NumWorkers         int
	QueueSize          int
	PollTimeoutSeconds int
}

// Dispatcher owns the receive loop and the worker pool. All tasks run for
// the process lifetime; the termination of any one of them is treated as
// fatal and surfaces through Wait.
type Dispatcher struct {
	api     Transport
	handler Handler
	log     *slog.Logger

	queue       chan tgbotapi.Update
	numWorkers  int
	pollTimeout int

	pacing     time.Duration
	retryDelay time.Duration

	fatal chan error
}

// New creates a Dispatcher. Start must be called before Wait.
func New(api Transport, handler Handler, opts Options, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		api:         api,
		handler:     handler,
		log:         log,
		queue:       make(chan tgbotapi.Update, opts.QueueSize),
		numWorkers:  opts.NumWorkers,
		pollTimeout: opts.PollTimeoutSeconds,
		pacing:      pacingDelay,
		retryDelay:  transportRetryDelay,
		fatal:       make(chan error, opts.NumWorkers+1),
	}
}

// Start launches the receive loop and the worker pool.
func (d *Dispatcher) Start(ctx context.Context) {
	go func() { d.fatal <- d.receiveLoop(ctx) }()
	for i := 0; i < d.numWorkers; i++ {
		go func(id int) { d.fatal <- d.worker(ctx, id) }(i)
	}
}

// Wait blocks until the first task terminates and returns its error.
// Task termination is fatal for the whole process; nothing is restarted.
func (d *Dispatcher) Wait() error {
	return <-d.fatal
}

// QueueLen reports the number of updates waiting for a worker.
func (d *Dispatcher) QueueLen() int {
	return len(d.queue)
}

func (d *Dispatcher) receiveLoop(ctx context.Context) error {
	offset := 0
	bo := backoff.NewConstantBackOff(d.retryDelay)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cfg := tgbotapi.NewUpdate(offset)
		cfg.Timeout = d.pollTimeout
		cfg.Limit = batchLimit

		updates, err := d.api.GetUpdates(cfg)
		if err != nil {
			// Transient transport failures (timeouts, cancellations)
			// are retried after a fixed delay, never fatal.
			d.log.Warn("get updates", "error", err)
			if !sleepCtx(ctx, bo.NextBackOff()) {
				return ctx.Err()
			}
			continue
		}
		bo.Reset()

		for _, u := range updates {
			// Advance the cursor before the update is processed so a
			// crash mid-batch cannot replay already-seen ids.
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message == nil {
				continue
			}

			select {
			case d.queue <- u:
			default:
				// Explicit backpressure: tell the sender instead of
				// dropping silently.
				d.log.Warn("queue overflow, dropping update",
					"update_id", u.UpdateID, "chat_id", u.Message.Chat.ID)
				reply := tgbotapi.NewMessage(u.Message.Chat.ID, "Bot internal queue overflow")
				if _, err := d.api.Send(reply); err != nil {
					d.log.Error("send overflow reply", "chat_id", u.Message.Chat.ID, "error", err)
				}
			}
		}

		if !sleepCtx(ctx, d.pacing) {
			return ctx.Err()
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u := <-d.queue:
			if err := d.handler.Handle(ctx, u); err != nil {
				// Fail fast: a handler error may mean corrupted user
				// state, so the worker dies and takes the process with it.
				d.log.Error("command handler failed", "worker", id, "update_id", u.UpdateID, "error", err)
				return fmt.Errorf("worker %d: %w", id, err)
			}
		}
	}
}

// sleepCtx sleeps for d or until ctx is cancelled; it reports whether the
// full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
