package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/andrebq/puente/directory"
	"github.com/andrebq/puente/internal/logutil"
)

const (
	DefaultTouchQueue   = 256
	DefaultTouchTimeout = 10 * time.Second
)

type (
	// TouchNotifier records successful logins in the background. Logins
	// never wait for it and never see its failures.
	TouchNotifier struct {
		dir     Directory
		timeout time.Duration
		queue   chan directory.UserTouchLogin
		errs    chan error
	}
)

func NewTouchNotifier(dir Directory, queueSize int, timeout time.Duration) *TouchNotifier {
	if queueSize <= 0 {
		queueSize = DefaultTouchQueue
	}
	if timeout <= 0 {
		timeout = DefaultTouchTimeout
	}
	return &TouchNotifier{
		dir:     dir,
		timeout: timeout,
		queue:   make(chan directory.UserTouchLogin, queueSize),
		errs:    make(chan error, queueSize),
	}
}

// Start runs the worker and the error logger until ctx is done.
// Calls made by the worker derive from ctx, not from the request that
// queued them.
func (n *TouchNotifier) Start(ctx context.Context) {
	go n.work(ctx)
	go n.drain(ctx)
}

// Notify queues a touch and returns immediately. It reports false when the
// notification was dropped because the queue is full.
func (n *TouchNotifier) Notify(ctx context.Context, usuario, pcOrigen string) bool {
	if n == nil {
		return false
	}
	select {
	case n.queue <- directory.UserTouchLogin{Usuario: usuario, PCOrigen: pcOrigen}:
		return true
	default:
		log := logutil.GetOrDefault(ctx)
		log.Warn().Str("usuario", usuario).Msg("Touch queue is full, login will not be recorded")
		return false
	}
}

func (n *TouchNotifier) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case touch := <-n.queue:
			if err := n.send(ctx, touch); err != nil {
				select {
				case n.errs <- TouchError{Usuario: touch.Usuario, cause: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (n *TouchNotifier) send(ctx context.Context, touch directory.UserTouchLogin) error {
	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	res, err := n.dir.Call(callCtx, touch)
	if err != nil {
		return err
	}
	if !res.Success() {
		msg := res.Message()
		if msg == "" {
			msg = "directory refused the touch"
		}
		return errors.New(msg)
	}
	return nil
}

func (n *TouchNotifier) drain(ctx context.Context) {
	log := logutil.GetOrDefault(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-n.errs:
			var te TouchError
			if errors.As(err, &te) {
				log.Warn().Err(err).Str("usuario", te.Usuario).Msg("Unable to record login")
				continue
			}
			log.Warn().Err(err).Msg("Unable to record login")
		}
	}
}
