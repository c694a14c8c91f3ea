package telegram

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/bot"
)

// Handler processes one chat event; *bot.Controller implements it.
type Handler interface {
	Handle(ctx context.Context, ev bot.Event) []bot.Reply
}

// Transport outbound side used by the runner; *Client implements it.
type Transport interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
	SendReply(ctx context.Context, chatID int64, text string, keyboard [][]string) error
	SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string, keyboard [][]string) error
}

// Runner long-polls updates and feeds them to the handler.
// Events of one caller are handled in arrival order; different callers run concurrently.
type Runner struct {
	transport   Transport
	handler     Handler
	logger      *zap.Logger
	pollTimeout time.Duration
	retryDelay  time.Duration

	mu     sync.Mutex
	queues map[int64][]bot.Event // present while a worker drains the caller
	wg     sync.WaitGroup
}

func NewRunner(transport Transport, handler Handler, pollTimeout time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		transport:   transport,
		handler:     handler,
		logger:      logger,
		pollTimeout: pollTimeout,
		retryDelay:  3 * time.Second,
		queues:      map[int64][]bot.Event{},
	}
}

// Run polls until ctx is cancelled, then waits for in-flight events.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("Starting update polling", zap.Duration("poll_timeout", r.pollTimeout))
	// in-flight events finish even after shutdown starts
	work := context.WithoutCancel(ctx)

	var offset int64
	for {
		if ctx.Err() != nil {
			break
		}
		updates, err := r.transport.GetUpdates(ctx, offset, r.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			r.logger.Warn("Failed to poll updates", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(r.retryDelay):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			ev, ok := toEvent(u)
			if !ok {
				continue
			}
			r.enqueue(work, ev)
		}
	}

	r.logger.Info("Update polling stopped, waiting for in-flight events")
	r.wg.Wait()
	return nil
}

func toEvent(u Update) (bot.Event, bool) {
	m := u.Message
	if m == nil || m.From == nil || m.From.IsBot || m.Text == "" {
		return bot.Event{}, false
	}
	return bot.Event{
		CallerID:  m.From.ID,
		ChatID:    m.Chat.ID,
		Username:  m.From.Username,
		FirstName: m.From.FirstName,
		LastName:  m.From.LastName,
		Text:      m.Text,
	}, true
}

func (r *Runner) enqueue(ctx context.Context, ev bot.Event) {
	r.mu.Lock()
	q, busy := r.queues[ev.CallerID]
	r.queues[ev.CallerID] = append(q, ev)
	r.mu.Unlock()
	if busy {
		return
	}
	r.wg.Add(1)
	go r.drain(ctx, ev.CallerID)
}

func (r *Runner) drain(ctx context.Context, caller int64) {
	defer r.wg.Done()
	for {
		r.mu.Lock()
		q := r.queues[caller]
		if len(q) == 0 {
			delete(r.queues, caller)
			r.mu.Unlock()
			return
		}
		ev := q[0]
		r.queues[caller] = q[1:]
		r.mu.Unlock()

		r.process(ctx, ev)
	}
}

func (r *Runner) process(ctx context.Context, ev bot.Event) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Panic while handling event", zap.Int64("caller_id", ev.CallerID), zap.Any("panic", p))
		}
	}()
	for _, reply := range r.handler.Handle(ctx, ev) {
		if err := r.deliver(ctx, reply); err != nil {
			r.logger.Warn("Reply not delivered", zap.Int64("chat_id", reply.ChatID), zap.Error(err))
		}
	}
}

func (r *Runner) deliver(ctx context.Context, reply bot.Reply) error {
	if reply.Document != nil {
		return r.transport.SendDocument(ctx, reply.ChatID, reply.Document.Name, reply.Document.Data, reply.Text, reply.Keyboard)
	}
	return r.transport.SendReply(ctx, reply.ChatID, reply.Text, reply.Keyboard)
}
