// Package studio holds the state of one QR generation session: the current
// logo, the pending input text, the user-facing notice and the guard that
// keeps generations from overlapping.
package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/qrcraft/qrcraft/render"
)

// ErrBusy is returned when Generate is called while a generation is running.
var ErrBusy = errors.New("generation already in progress")

// User-facing notice texts.
const (
	msgEmptyInput = "Please enter a URL or text"
	msgFailed     = "Failed to generate QR code"
	msgInvalid    = "Please choose one of the offered sizes"
	msgBadLogo    = "Could not read the selected image"
	msgDownloaded = "QR code downloaded"
	msgBusy       = "A QR code is already being generated"
)

// State is the generation state of a studio.
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
)

// NoticeKind distinguishes success and error notices.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a short message shown next to the input controls. A zero
// ExpiresAt means the notice stays until it is replaced.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Message   string     `json:"message"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Options configures a Studio.
type Options struct {
	NoticeTTL     time.Duration
	MaxLogoBytes  int64
	// MaxLogoPixels caps width×height of a decoded logo.
	MaxLogoPixels int64
	Clock         func() time.Time
}

// Studio is one generation session.
type Studio struct {
	pipeline *render.Pipeline
	opts     Options
	log      *slog.Logger

	logo       LogoState
	sem        *semaphore.Weighted
	generating atomic.Bool

	mu     sync.Mutex
	input  string
	notice *Notice
}

// New creates a Studio around p.
func New(p *render.Pipeline, opts Options, log *slog.Logger) *Studio {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = 3 * time.Second
	}
	if opts.MaxLogoBytes <= 0 {
		opts.MaxLogoBytes = 10 << 20
	}
	if opts.MaxLogoPixels <= 0 {
		opts.MaxLogoPixels = DefaultMaxLogoPixels
	}
	if log == nil {
		log = slog.Default()
	}
	return &Studio{
		pipeline: p,
		opts:     opts,
		log:      log,
		sem:      semaphore.NewWeighted(1),
	}
}

// AllowedSizes returns the sizes the studio's pipeline accepts.
func (s *Studio) AllowedSizes() []int {
	return s.pipeline.AllowedSizes()
}

// SelectLogo decodes r and makes it the active logo. When decoding fails the
// previous logo stays active and an error notice is raised.
func (s *Studio) SelectLogo(name string, r io.Reader) (Logo, error) {
	img, err := DecodeLogo(r, s.opts.MaxLogoBytes, s.opts.MaxLogoPixels)
	if err != nil {
		s.log.Warn("logo rejected", "name", name, "error", err)
		s.setNotice(NoticeError, ErrorMessage(err), time.Time{})
		return Logo{}, err
	}

	l := s.logo.Set(name, img)
	s.log.Info("logo selected", "name", name, "width", l.Width, "height", l.Height)
	return l, nil
}

// ClearLogo drops the active logo.
func (s *Studio) ClearLogo() {
	s.logo.Clear()
	s.log.Debug("logo cleared")
}

// Logo returns the active logo, if any.
func (s *Studio) Logo() (Logo, bool) {
	return s.logo.Get()
}

// SetInput replaces the pending input text.
func (s *Studio) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
}

// Input returns the pending input text.
func (s *Studio) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// State reports whether a generation is running.
func (s *Studio) State() State {
	if s.generating.Load() {
		return StateGenerating
	}
	return StateIdle
}

// Notice returns the current notice. Success notices disappear once their
// display window has passed.
func (s *Studio) Notice() (Notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice == nil {
		return Notice{}, false
	}
	if !s.notice.ExpiresAt.IsZero() && !s.opts.Clock().Before(s.notice.ExpiresAt) {
		s.notice = nil
		return Notice{}, false
	}
	return *s.notice, true
}

// Generate encodes the pending input at size with the active logo. Only one
// generation runs at a time; a call made while another is running returns
// ErrBusy without touching any state. On success the input is consumed.
func (s *Studio) Generate(ctx context.Context, size int) (*render.Result, error) {
	if !s.sem.TryAcquire(1) {
		s.log.Debug("generate ignored, already running")
		return nil, ErrBusy
	}
	defer s.sem.Release(1)
	return s.run(ctx, size)
}

// Submit sets the input to text and generates, as one step. Like Generate it
// returns ErrBusy, and leaves the input alone, while another generation runs.
func (s *Studio) Submit(ctx context.Context, text string, size int) (*render.Result, error) {
	if !s.sem.TryAcquire(1) {
		s.log.Debug("submit ignored, already running")
		return nil, ErrBusy
	}
	defer s.sem.Release(1)
	s.SetInput(text)
	return s.run(ctx, size)
}

// run does the work of Generate. The caller holds the semaphore.
func (s *Studio) run(ctx context.Context, size int) (*render.Result, error) {
	s.generating.Store(true)
	defer s.generating.Store(false)

	s.clearNotice()

	text := s.Input()
	req := render.Request{Text: text, Size: size}
	if l, ok := s.logo.Get(); ok {
		req.Logo = l.Image
	}

	res, err := s.pipeline.Generate(ctx, req)
	if err != nil {
		s.setNotice(NoticeError, ErrorMessage(err), time.Time{})
		if errors.Is(err, render.ErrEmptyInput) || errors.Is(err, render.ErrInvalidSize) {
			return nil, err
		}
		return nil, fmt.Errorf("generate: %w", err)
	}

	s.mu.Lock()
	if s.input == text {
		s.input = ""
	}
	s.mu.Unlock()

	s.setNotice(NoticeSuccess, msgDownloaded, s.opts.Clock().Add(s.opts.NoticeTTL))
	s.log.Info("qr code generated", "file", res.Filename, "size", res.Size, "level", res.Level.String())
	return res, nil
}

// ErrorMessage returns the user-facing text for an error returned by
// SelectLogo, Generate or Submit.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, render.ErrEmptyInput):
		return msgEmptyInput
	case errors.Is(err, render.ErrInvalidSize):
		return msgInvalid
	case errors.Is(err, ErrLogoDecode):
		return msgBadLogo
	case errors.Is(err, ErrBusy):
		return msgBusy
	}
	return msgFailed
}

func (s *Studio) setNotice(kind NoticeKind, msg string, expires time.Time) {
	s.mu.Lock()
	s.notice = &Notice{Kind: kind, Message: msg, ExpiresAt: expires}
	s.mu.Unlock()
}

func (s *Studio) clearNotice() {
	s.mu.Lock()
	s.notice = nil
	s.mu.Unlock()
}
