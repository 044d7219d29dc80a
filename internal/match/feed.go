package match

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/mroshb/battle_forge/pkg/logger"
)

// Sink delivers chat messages. Replace removes the message with handle prev
// and posts text in its place. Both return the new message handle.
type Sink interface {
	Send(ctx context.Context, chatID int64, text string) (int, error)
	Replace(ctx context.Context, prev int, chatID int64, text string) (int, error)
}

// feed delivers one match's live commentary in order on its own goroutine.
// Texts pushed while a delivery is in flight coalesce to the newest, so a
// slow sink never holds up the match.
type feed struct {
	sink    Sink
	chatID  int64
	matchID uint

	mu      sync.Mutex
	pending *string
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	handle  atomic.Int64
}

func newFeed(ctx context.Context, sink Sink, matchID uint, chatID int64, handle int) *feed {
	f := &feed{
		sink:    sink,
		chatID:  chatID,
		matchID: matchID,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	f.handle.Store(int64(handle))
	go f.loop(ctx)
	return f
}

// Push queues text, replacing anything not yet delivered
func (f *feed) Push(text string) {
	f.mu.Lock()
	f.pending = &text
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Handle returns the id of the last delivered message
func (f *feed) Handle() int {
	return int(f.handle.Load())
}

// Close delivers whatever is still pending and stops the goroutine
func (f *feed) Close() {
	close(f.stop)
	<-f.done
}

func (f *feed) loop(ctx context.Context) {
	defer close(f.done)
	for {
		select {
		case <-f.wake:
			f.deliver(ctx)
		case <-f.stop:
			f.deliver(ctx)
			return
		}
	}
}

func (f *feed) take() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return "", false
	}
	text := *f.pending
	f.pending = nil
	return text, true
}

func (f *feed) deliver(ctx context.Context) {
	text, ok := f.take()
	if !ok || f.sink == nil {
		return
	}

	var (
		handle int
		err    error
	)
	if prev := f.Handle(); prev != 0 {
		handle, err = f.sink.Replace(ctx, prev, f.chatID, text)
	} else {
		handle, err = f.sink.Send(ctx, f.chatID, text)
	}
	if err != nil {
		logger.Warn("Live update failed", "match_id", f.matchID, "chat_id", f.chatID, "error", err)
		return
	}
	f.handle.Store(int64(handle))
}
