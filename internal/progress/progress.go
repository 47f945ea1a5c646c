// Package progress renders incremental download progress for a single
// streamed transfer.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const barWidth = 50

// Bar writes a fixed-width progress bar for one transfer. Total may be zero
// when the server did not supply a Content-Length; only the byte count is
// shown then. Not safe for concurrent use; downloads here are sequential.
type Bar struct {
	out      io.Writer
	total    int64
	done     int64
	interval time.Duration
	last     time.Time
	rendered bool
}

// NewBar creates a progress bar writing to out (os.Stdout when nil).
func NewBar(out io.Writer, total int64) *Bar {
	if out == nil {
		out = os.Stdout
	}
	return &Bar{
		out:      out,
		total:    total,
		interval: 200 * time.Millisecond,
	}
}

// Add records n more transferred bytes and re-renders at most once per
// interval.
func (b *Bar) Add(n int64) {
	b.done += n
	if time.Since(b.last) < b.interval {
		return
	}
	b.render()
}

// Finish renders the final state and terminates the progress line.
func (b *Bar) Finish() {
	b.render()
	if b.rendered {
		fmt.Fprintln(b.out)
	}
}

// Done returns the number of bytes recorded so far.
func (b *Bar) Done() int64 {
	return b.done
}

func (b *Bar) render() {
	b.last = time.Now()
	b.rendered = true

	if b.total <= 0 {
		fmt.Fprintf(b.out, "\r%d bytes", b.done)
		return
	}

	filled := int(barWidth * b.done / b.total)
	if filled > barWidth {
		filled = barWidth
	}
	fmt.Fprintf(b.out, "\r[%s%s] %d/%d bytes",
		strings.Repeat("#", filled),
		strings.Repeat(".", barWidth-filled),
		b.done, b.total,
	)
}

// Writer wraps w so that every write advances the bar.
func (b *Bar) Writer(w io.Writer) io.Writer {
	return &countingWriter{w: w, bar: b}
}

type countingWriter struct {
	w   io.Writer
	bar *Bar
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		cw.bar.Add(int64(n))
	}
	return n, err
}
