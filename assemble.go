package globtail

import (
	"bytes"
	"errors"
)

// ErrLineTooLong reports that a line exceeded the assembler's bound before a
// delimiter was seen. The buffered fragment is discarded.
var ErrLineTooLong = errors.New("globtail: line exceeds maximum length")

const delimiter = '\n'

// assembler turns arbitrary byte chunks into complete LF-terminated lines.
// The trailing fragment of each chunk is carried over to the next feed call,
// so lines are never split across chunk boundaries and chunking is invisible
// to the consumer.
type assembler struct {
	buf []byte
	// maxLine bounds the carried fragment; 0 means unbounded.
	maxLine int
}

// feed appends chunk and returns the complete lines it unlocked, in order,
// with the delimiter stripped. Two consecutive delimiters yield an empty
// line. When the leftover fragment exceeds maxLine, it is dropped and
// ErrLineTooLong is returned alongside the lines extracted so far.
func (a *assembler) feed(chunk []byte) ([][]byte, error) {
	a.buf = append(a.buf, chunk...)
	var lines [][]byte
	for {
		i := bytes.IndexByte(a.buf, delimiter)
		if i < 0 {
			break
		}
		line := make([]byte, i)
		copy(line, a.buf[:i])
		lines = append(lines, line)
		a.buf = a.buf[i+1:]
	}
	if a.maxLine > 0 && len(a.buf) > a.maxLine {
		a.buf = nil
		return lines, ErrLineTooLong
	}
	return lines, nil
}

// pending returns the number of buffered bytes still awaiting a delimiter.
func (a *assembler) pending() int { return len(a.buf) }
