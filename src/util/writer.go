// writer.go provides a channel-based writer for serialising concurrent
// output onto a single strings.Builder. vslc uses this to let several
// goroutines (one per function, during backend.GenerateAssembler) emit
// assembly lines without stepping on each other; BabyDuck keeps the same
// idiom for the .ovejota dump writer, its only caller, which writes from a
// single goroutine.

package util

import (
	"strconv"
	"strings"
	"sync"
)

// Writer serialises writes from multiple goroutines into one string.
type Writer struct {
	sb strings.Builder
	c  chan string
	wg sync.WaitGroup
}

// NewWriter returns a Writer with its listener goroutine already running.
func NewWriter() *Writer {
	w := &Writer{
		c: make(chan string, 64),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// run drains the write channel into the builder until Close is called.
func (w *Writer) run() {
	defer w.wg.Done()
	for s := range w.c {
		w.sb.WriteString(s)
	}
}

// WriteString queues s for writing. Safe for concurrent use.
func (w *Writer) WriteString(s string) {
	w.c <- s
}

// Line queues s followed by a newline.
func (w *Writer) Line(s string) {
	w.c <- s + "\n"
}

// Quad formats one disassembled quadruple line: "idx op arg1 arg2 result".
// Empty slots print as "-"; this is the .ovejota line shape.
func (w *Writer) Quad(idx int, op, arg1, arg2, result string) {
	if arg1 == "" {
		arg1 = "-"
	}
	if arg2 == "" {
		arg2 = "-"
	}
	if result == "" {
		result = "-"
	}
	w.Line(strFmt(idx, op, arg1, arg2, result))
}

func strFmt(idx int, op, arg1, arg2, result string) string {
	return strconv.Itoa(idx) + "\t" + op + "\t" + arg1 + "\t" + arg2 + "\t" + result
}

// Close stops accepting writes, waits for the listener to drain, and returns
// the accumulated string. Must be called exactly once.
func (w *Writer) Close() string {
	close(w.c)
	w.wg.Wait()
	return w.sb.String()
}
