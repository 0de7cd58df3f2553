package redaction

import (
	"io"
	"sync"
)

// Writer wraps an io.Writer and scrubs every write. It is safe for
// concurrent use; the CLI routes log output through it.
type Writer struct {
	underlying io.Writer
	redactor   *Redactor
	mu         sync.Mutex
}

// NewWriter creates a scrubbing writer. A nil redactor passes data through.
func NewWriter(w io.Writer, r *Redactor) *Writer {
	return &Writer{underlying: w, redactor: r}
}

// Write scrubs p and writes the result. On success it reports len(p) so
// callers never see a short write when the scrubbed text differs in length.
func (w *Writer) Write(p []byte) (int, error) {
	out := p
	if w.redactor != nil {
		out = []byte(w.redactor.Scrub(string(p)))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.underlying.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
