package globtail

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
)

// recordingLogger captures events for assertion. The watcher logs from its
// run loop while the test goroutine reads, hence the mutex.
type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) Debugf(format string, args ...interface{}) {
	l.record(fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Errorf(format string, args ...interface{}) {
	l.record(fmt.Sprintf(format, args...))
}

func (l *recordingLogger) record(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, s)
}

func (l *recordingLogger) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func startWatcher(g *WithT, fs afero.Fs, cfg Config) (*Watcher, context.CancelFunc) {
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Millisecond
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Millisecond
	}
	w, err := NewWatcher(fs, cfg)
	g.Expect(err).ToNot(HaveOccurred())
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	return w, cancel
}

func TestWatcherDeliversLinesFromFilesThatAppearLater(t *testing.T) {
	g := NewGomegaWithT(t)
	fs := afero.NewMemMapFs()
	w, cancel := startWatcher(g, fs, Config{Patterns: []string{"/tmp/x*.log"}})
	defer cancel()

	g.Expect(afero.WriteFile(fs, "/tmp/x1.log", []byte("hello\nworld\n"), 0644)).To(Succeed())

	g.Eventually(w.Lines()).Should(Receive(Equal(Line{Path: "/tmp/x1.log", Text: "hello"})))
	g.Eventually(w.Lines()).Should(Receive(Equal(Line{Path: "/tmp/x1.log", Text: "world"})))
}

func TestWatcherNeverTailsExcludedPaths(t *testing.T) {
	g := NewGomegaWithT(t)
	fs := afero.NewMemMapFs()
	g.Expect(afero.WriteFile(fs, "/logs/app.log", []byte("keep\n"), 0644)).To(Succeed())
	g.Expect(afero.WriteFile(fs, "/logs/app.1.log", []byte("drop\n"), 0644)).To(Succeed())
	logger := &recordingLogger{}
	w, cancel := startWatcher(g, fs, Config{
		Patterns: []string{"/logs/*.log"},
		Excludes: []*ExcludeRule{CompileExclude("*.1.log")},
		Logger:   logger,
	})
	defer cancel()

	g.Eventually(w.Lines()).Should(Receive(Equal(Line{Path: "/logs/app.log", Text: "keep"})))
	g.Eventually(logger.all).Should(ContainElement(ContainSubstring("excluded")))
	g.Consistently(w.Lines(), 50*time.Millisecond).ShouldNot(Receive())
}

func TestWatcherIsolatesAcquisitionFailures(t *testing.T) {
	g := NewGomegaWithT(t)
	fs := afero.NewMemMapFs()
	g.Expect(fs.MkdirAll("/logs/bad.log", 0755)).To(Succeed())
	g.Expect(afero.WriteFile(fs, "/logs/good.log", []byte("ok\n"), 0644)).To(Succeed())
	logger := &recordingLogger{}
	w, cancel := startWatcher(g, fs, Config{
		Patterns: []string{"/logs/*.log"},
		Logger:   logger,
	})
	defer cancel()

	g.Eventually(w.Lines()).Should(Receive(Equal(Line{Path: "/logs/good.log", Text: "ok"})))
	g.Eventually(logger.all).Should(ContainElement(ContainSubstring("/logs/bad.log")))

	// The scan timer survived the failure: a file created afterwards is
	// still picked up.
	g.Expect(afero.WriteFile(fs, "/logs/late.log", []byte("late\n"), 0644)).To(Succeed())
	g.Eventually(w.Lines()).Should(Receive(Equal(Line{Path: "/logs/late.log", Text: "late"})))
}

func TestWatcherRestartsSessionWhenPathReappears(t *testing.T) {
	g := NewGomegaWithT(t)
	fs := afero.NewMemMapFs()
	g.Expect(afero.WriteFile(fs, "/logs/a.log", []byte("one\n"), 0644)).To(Succeed())
	logger := &recordingLogger{}
	w, cancel := startWatcher(g, fs, Config{
		Patterns: []string{"/logs/*.log"},
		Logger:   logger,
	})
	defer cancel()

	g.Eventually(w.Lines()).Should(Receive(Equal(Line{Path: "/logs/a.log", Text: "one"})))

	g.Expect(fs.Remove("/logs/a.log")).To(Succeed())
	g.Eventually(logger.all).Should(ContainElement(ContainSubstring("disappeared")))

	g.Expect(afero.WriteFile(fs, "/logs/a.log", []byte("two\n"), 0644)).To(Succeed())
	g.Eventually(w.Lines()).Should(Receive(Equal(Line{Path: "/logs/a.log", Text: "two"})))
}

func TestWatcherTailsEachPathOnce(t *testing.T) {
	g := NewGomegaWithT(t)
	fs := afero.NewMemMapFs()
	g.Expect(afero.WriteFile(fs, "/logs/a.log", []byte("x\n"), 0644)).To(Succeed())
	w, cancel := startWatcher(g, fs, Config{
		Patterns: []string{"/logs/*.log", "/logs/a*"},
	})
	defer cancel()

	g.Eventually(w.Lines()).Should(Receive(Equal(Line{Path: "/logs/a.log", Text: "x"})))
	g.Consistently(w.Lines(), 50*time.Millisecond).ShouldNot(Receive())
}

func TestWatcherNegativeOffsetOnlyDeliversNewLines(t *testing.T) {
	g := NewGomegaWithT(t)
	fs := afero.NewMemMapFs()
	g.Expect(afero.WriteFile(fs, "/logs/a.log", []byte("old\n"), 0644)).To(Succeed())
	w, cancel := startWatcher(g, fs, Config{
		Patterns: []string{"/logs/*.log"},
		Offset:   -1,
	})
	defer cancel()

	// Wait for the file to be picked up, then append.
	g.Consistently(w.Lines(), 30*time.Millisecond).ShouldNot(Receive())
	appendTo(g, fs, "/logs/a.log", "new\n")
	g.Eventually(w.Lines()).Should(Receive(Equal(Line{Path: "/logs/a.log", Text: "new"})))
}

func TestWatcherClosesLinesOnStop(t *testing.T) {
	g := NewGomegaWithT(t)
	fs := afero.NewMemMapFs()
	g.Expect(afero.WriteFile(fs, "/logs/a.log", []byte("x\n"), 0644)).To(Succeed())
	w, cancel := startWatcher(g, fs, Config{Patterns: []string{"/logs/*.log"}})

	g.Eventually(w.Lines()).Should(Receive())
	cancel()
	g.Eventually(w.Lines()).Should(BeClosed())
}

func TestNewWatcherValidatesConfiguration(t *testing.T) {
	g := NewGomegaWithT(t)
	fs := afero.NewMemMapFs()

	_, err := NewWatcher(fs, Config{Interval: time.Second})
	g.Expect(err).To(MatchError(ContainSubstring("no patterns")))

	_, err = NewWatcher(fs, Config{Patterns: []string{"/x/*"}})
	g.Expect(err).To(MatchError(ContainSubstring("interval")))

	_, err = NewWatcher(fs, Config{Patterns: []string{"/x/["}, Interval: time.Second})
	g.Expect(err).To(MatchError(ContainSubstring("bad pattern")))
}
