package globtail

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Line is one complete line read from a watched file.
type Line struct {
	Path string
	Text string
}

// Config drives a Watcher.
type Config struct {
	// Patterns are the glob expressions to watch. At least one is required.
	Patterns []string
	// Interval between rescans of each pattern.
	Interval time.Duration
	// Excludes drops matching discovered paths before a tail is started.
	Excludes []*ExcludeRule
	// Offset is the starting read position for newly discovered files:
	// 0 reads from the beginning, -1 delivers only bytes appended after
	// discovery, a positive value is an absolute byte position.
	Offset int64
	// PollInterval between growth checks on each tailed file. Defaults to
	// 250ms.
	PollInterval time.Duration
	// MaxLineBytes bounds the length of a single line; a longer line is
	// dropped and reported as a session error. 0 disables the bound.
	MaxLineBytes int
	// Logger receives discovery and error events. Defaults to NopLogger.
	Logger Logger
}

// Watcher tails every file matching its patterns, rescanning on a fixed
// interval to pick up files that appear and drop files that disappear.
type Watcher struct {
	fs  afero.Fs
	cfg Config

	scanners []*scanner
	sessions map[string]*session
	events   chan event
	lines    chan Line
	pumps    sync.WaitGroup
}

// event is the run loop's single mailbox: either a scanner is due for a
// tick, or a session reports an error.
type event struct {
	scanner *scanner
	path    string
	err     error
}

// session is the live association between one discovered path and the
// goroutines tailing it.
type session struct {
	path   string
	cancel context.CancelFunc
}

// NewWatcher validates cfg and prepares a watcher over fs. Configuration
// errors (no patterns, non-positive interval, malformed glob) are reported
// here, before anything runs.
func NewWatcher(fs afero.Fs, cfg Config) (*Watcher, error) {
	if len(cfg.Patterns) == 0 {
		return nil, errors.New("globtail: no patterns to watch")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("globtail: invalid check interval %v", cfg.Interval)
	}
	for _, p := range cfg.Patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return nil, fmt.Errorf("globtail: bad pattern %q: %w", p, err)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLogger{}
	}
	w := &Watcher{
		fs:       fs,
		cfg:      cfg,
		sessions: make(map[string]*session),
		events:   make(chan event),
		lines:    make(chan Line, 64),
	}
	for _, p := range cfg.Patterns {
		w.scanners = append(w.scanners, newScanner(fs, p))
	}
	return w, nil
}

// Lines returns the channel carrying every line read from every watched
// file. It is closed when Run returns.
func (w *Watcher) Lines() <-chan Line { return w.lines }

// Run scans each pattern once immediately and then on every interval tick,
// blocking until ctx is cancelled. All discovery state (known sets, session
// map) is owned by this goroutine; sessions talk back only through channels,
// so no locking is involved. Run may be called once.
func (w *Watcher) Run(ctx context.Context) {
	var tickers sync.WaitGroup
	for _, s := range w.scanners {
		s := s
		tickers.Add(1)
		go func() {
			defer tickers.Done()
			ticker := time.NewTicker(w.cfg.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
				select {
				case <-ctx.Done():
					return
				case w.events <- event{scanner: s}:
				}
			}
		}()
	}

	hooks := watchHooks{w: w, ctx: ctx}
	for _, s := range w.scanners {
		w.scanOne(s, hooks)
	}
	for {
		select {
		case <-ctx.Done():
			for _, s := range w.sessions {
				s.cancel()
			}
			tickers.Wait()
			w.pumps.Wait()
			close(w.lines)
			return
		case ev := <-w.events:
			if ev.scanner != nil {
				w.scanOne(ev.scanner, hooks)
				continue
			}
			w.cfg.Logger.Errorf("%s: %v", ev.path, ev.err)
		}
	}
}

func (w *Watcher) scanOne(s *scanner, hooks watchHooks) {
	if err := s.tick(hooks); err != nil {
		w.cfg.Logger.Errorf("could not expand %s: %v", s.pattern, err)
	}
}

// watchHooks is the orchestrator's ScanHooks implementation. Both methods
// run inside the watcher's run loop.
type watchHooks struct {
	w   *Watcher
	ctx context.Context
}

// FileFound filters a discovered path through the exclude rules and, unless
// a session for it is already live, starts tailing it. An acquisition
// failure is reported and the path abandoned; siblings and future scans are
// unaffected.
func (h watchHooks) FileFound(path string) {
	w := h.w
	if rule := excluded(path, w.cfg.Excludes); rule != nil {
		w.cfg.Logger.Debugf("skipping %s: excluded by %s", path, rule)
		return
	}
	if _, ok := w.sessions[path]; ok {
		w.cfg.Logger.Debugf("already tailing %s", path)
		return
	}
	fw, err := openFollower(w.fs, path, w.cfg.Offset, w.cfg.PollInterval)
	if err != nil {
		w.cfg.Logger.Errorf("could not tail %s: %v", path, err)
		return
	}
	w.cfg.Logger.Debugf("tailing %s", path)
	ctx, cancel := context.WithCancel(h.ctx)
	w.sessions[path] = &session{path: path, cancel: cancel}
	w.pumps.Add(1)
	go fw.run(ctx)
	go w.pump(ctx, fw)
}

// FileDeleted ends the session for a path that stopped matching, releasing
// its handle so a later file at the same path gets a fresh tail instead of
// a stale descriptor.
func (h watchHooks) FileDeleted(path string) {
	w := h.w
	w.cfg.Logger.Debugf("%s disappeared", path)
	if s, ok := w.sessions[path]; ok {
		s.cancel()
		delete(w.sessions, path)
	}
}

// pump drains one follower, assembling its chunks into lines for the shared
// output channel. Chunks arrive in read order and lines keep the byte order
// within them.
func (w *Watcher) pump(ctx context.Context, fw *follower) {
	defer w.pumps.Done()
	asm := &assembler{maxLine: w.cfg.MaxLineBytes}
	for chunk := range fw.chunks {
		lines, err := asm.feed(chunk)
		for _, line := range lines {
			select {
			case <-ctx.Done():
				return
			case w.lines <- Line{Path: fw.path, Text: string(line)}:
			}
		}
		if err != nil {
			w.report(ctx, fw.path, err)
		}
	}
	select {
	case err := <-fw.errs:
		w.report(ctx, fw.path, err)
	default:
	}
}

// report forwards a session error to the run loop, which owns the logger.
func (w *Watcher) report(ctx context.Context, path string, err error) {
	select {
	case <-ctx.Done():
	case w.events <- event{path: path, err: err}:
	}
}
