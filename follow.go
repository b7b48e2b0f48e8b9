package globtail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"
)

// ErrIsDirectory reports that a discovered path names a directory and cannot
// be tailed.
var ErrIsDirectory = errors.New("globtail: path is a directory")

const (
	defaultPollInterval = 250 * time.Millisecond
	maxChunk            = 32 * 1024
)

// follower delivers the bytes appended to one file as non-empty chunks. It
// owns the open handle and the read cursor, polling for growth; the size
// dropping below the cursor is taken as truncation or in-place rotation and
// reading resumes at byte 0.
type follower struct {
	path   string
	file   afero.File
	offset int64
	poll   time.Duration

	chunks chan []byte
	errs   chan error
}

// openFollower validates path and positions the read cursor. An offset of -1
// means "only bytes appended after open time"; a non-negative offset is an
// absolute byte position. Acquisition failures (not found, permission
// denied, is a directory) are returned synchronously, before any goroutine
// is started.
func openFollower(fs afero.Fs, path string, offset int64, poll time.Duration) (*follower, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("could not stat %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%q: %w", path, ErrIsDirectory)
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", path, err)
	}
	if offset < 0 {
		offset = info.Size()
	}
	if poll <= 0 {
		poll = defaultPollInterval
	}
	return &follower{
		path:   path,
		file:   f,
		offset: offset,
		poll:   poll,
		chunks: make(chan []byte),
		errs:   make(chan error, 1),
	}, nil
}

// run polls for growth until ctx is cancelled, sending each batch of new
// bytes on the chunks channel. Empty chunks are never sent. The channel is
// closed and the handle released on exit; a read failure goes to errs and
// ends the loop.
func (f *follower) run(ctx context.Context) {
	defer f.file.Close()
	defer close(f.chunks)
	ticker := time.NewTicker(f.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for {
			chunk, err := f.readNew()
			if err != nil {
				f.errs <- err
				return
			}
			if len(chunk) == 0 {
				break
			}
			select {
			case <-ctx.Done():
				return
			case f.chunks <- chunk:
			}
		}
	}
}

// readNew returns the next unread bytes, or an empty slice when the file has
// not grown since the last read.
func (f *follower) readNew() ([]byte, error) {
	info, err := f.file.Stat()
	if err != nil {
		return nil, fmt.Errorf("could not stat %q: %w", f.path, err)
	}
	size := info.Size()
	if size < f.offset {
		// Truncated: start over from the top.
		f.offset = 0
	}
	if size == f.offset {
		return nil, nil
	}
	n := size - f.offset
	if n > maxChunk {
		n = maxChunk
	}
	buf := make([]byte, n)
	read, err := f.file.ReadAt(buf, f.offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("could not read %q: %w", f.path, err)
	}
	f.offset += int64(read)
	return buf[:read], nil
}
