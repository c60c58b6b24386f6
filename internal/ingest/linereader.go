package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
)

const maxLineLen = 4096

var errLineTooLong = errors.New("line exceeds 4096 bytes")

// lineReader splits a serial stream into lines. A read returning (0, nil)
// is a port timeout and yields no line, which bufio.Scanner would treat as
// a stalled reader after a few hundred repeats.
type lineReader struct {
	r   io.Reader
	buf []byte
	tmp []byte
	// discarding is set after an oversized line until its newline arrives.
	discarding bool
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: r, tmp: make([]byte, 256)}
}

// next returns the next line without its terminator. ok is false when the
// read timed out before a full line arrived.
func (lr *lineReader) next(ctx context.Context) (line []byte, ok bool, err error) {
	for {
		if i := bytes.IndexByte(lr.buf, '\n'); i >= 0 {
			if lr.discarding {
				lr.buf = lr.buf[i+1:]
				lr.discarding = false
				continue
			}
			line = append([]byte(nil), lr.buf[:i]...)
			lr.buf = lr.buf[i+1:]
			return line, true, nil
		}
		if lr.discarding {
			lr.buf = lr.buf[:0]
		} else if len(lr.buf) > maxLineLen {
			lr.buf = lr.buf[:0]
			lr.discarding = true
			return nil, false, errLineTooLong
		}
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		n, err := lr.r.Read(lr.tmp)
		if n > 0 {
			lr.buf = append(lr.buf, lr.tmp[:n]...)
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
}
