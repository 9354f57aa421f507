package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/classbook/internal/logx"
)

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrNoTarget  = errors.New("no destination chat configured")
)

// Sender delivers one text message to a chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

type Config struct {
	// DefaultChatID receives messages sent without an explicit destination.
	DefaultChatID int64
	QueueSize     int
	RatePerSec    int
	SendTimeout   time.Duration
}

type job struct {
	chatID int64
	text   string
}

// Service is an asynchronous, best-effort message pipeline: a bounded queue
// drained by one worker under a token-bucket rate limit. Enqueueing never
// blocks; when the queue is full the message is dropped and logged.
type Service struct {
	cfg     Config
	sender  Sender
	log     logx.Logger
	limiter *rate.Limiter

	queue chan job

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cfg Config, sender Sender, log logx.Logger) *Service {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 6 * time.Second
	}
	return &Service{
		cfg:     cfg,
		sender:  sender,
		log:     log.With(logx.String("comp", "notify")),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		queue:   make(chan job, cfg.QueueSize),
	}
}

// Start launches the worker. It keeps running after ctx is cancelled so late
// messages from a finishing cycle still go out; only Stop ends it.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.worker(runCtx, s.done)
}

// Stop drains what is already queued, waiting at most until ctx ends.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("notifier stop timed out", logx.Int("pending", len(s.queue)))
	}
}

// Notify sends text to the default chat.
func (s *Service) Notify(text string) {
	s.NotifyTo(s.cfg.DefaultChatID, text)
}

// NotifyTo sends text to chatID, falling back to the default chat when chatID is 0.
func (s *Service) NotifyTo(chatID int64, text string) {
	if err := s.enqueue(chatID, text); err != nil {
		s.log.Warn("notification dropped", logx.Int64("chat", chatID), logx.Err(err))
	}
}

func (s *Service) enqueue(chatID int64, text string) error {
	if chatID == 0 {
		chatID = s.cfg.DefaultChatID
	}
	if chatID == 0 {
		return ErrNoTarget
	}
	select {
	case s.queue <- job{chatID: chatID, text: text}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Service) worker(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case j := <-s.queue:
			if err := s.limiter.Wait(ctx); err != nil {
				s.send(j)
				s.drain()
				return
			}
			s.send(j)
		}
	}
}

func (s *Service) drain() {
	for {
		select {
		case j := <-s.queue:
			s.send(j)
		default:
			return
		}
	}
}

func (s *Service) send(j job) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("notification sender panicked", logx.Any("panic", r))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SendTimeout)
	defer cancel()
	if err := s.sender.SendText(ctx, j.chatID, j.text); err != nil {
		s.log.Warn("notification failed", logx.Int64("chat", j.chatID), logx.Err(err))
		return
	}
	s.log.Debug("notification sent", logx.Int64("chat", j.chatID))
}
