package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"platewatch/internal/model"
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// DefaultMaxBufferSize bounds the assembly buffer when a start marker is never closed.
const DefaultMaxBufferSize = 8 << 20

// Publisher receives every complete frame. framestore.Store satisfies it.
type Publisher interface {
	Put(frame model.Frame) model.Frame
}

// FrameFilter decides whether an extracted frame is worth publishing.
type FrameFilter func(data []byte) bool

// AssemblerStats counts what the assembler did with the bytes it was fed.
type AssemblerStats struct {
	BytesRead      uint64 `json:"bytes_read"`
	Frames         uint64 `json:"frames"`
	Resyncs        uint64 `json:"resyncs"`
	OverflowResets uint64 `json:"overflow_resets"`
	Filtered       uint64 `json:"filtered"`
}

type Option func(*Assembler)

// WithFilter drops frames that f rejects.
func WithFilter(f FrameFilter) Option {
	return func(a *Assembler) { a.filter = f }
}

// WithMaxBufferSize overrides DefaultMaxBufferSize. n <= 0 disables the bound.
func WithMaxBufferSize(n int) Option {
	return func(a *Assembler) { a.maxBuffer = n }
}

// WithObserver calls fn with every published frame, after the publisher has stamped it.
func WithObserver(fn func(model.Frame)) Option {
	return func(a *Assembler) { a.observers = append(a.observers, fn) }
}

// Assembler cuts JPEG frames out of an unframed byte stream using the SOI and
// EOI markers. It is driven by a single goroutine; only Stats is safe to call
// concurrently.
type Assembler struct {
	publisher Publisher
	filter    FrameFilter
	observers []func(model.Frame)
	maxBuffer int

	buf     []byte
	scanned int // buf[:scanned] holds no end marker

	bytesRead      atomic.Uint64
	frames         atomic.Uint64
	resyncs        atomic.Uint64
	overflowResets atomic.Uint64
	filtered       atomic.Uint64
}

func NewAssembler(publisher Publisher, opts ...Option) *Assembler {
	a := &Assembler{
		publisher: publisher,
		maxBuffer: DefaultMaxBufferSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Feed appends chunk to the assembly buffer and publishes every complete
// frame it now contains. It returns the number of frames extracted.
func (a *Assembler) Feed(chunk []byte) int {
	a.bytesRead.Add(uint64(len(chunk)))
	a.buf = append(a.buf, chunk...)

	extracted := 0
	for {
		end := bytes.Index(a.buf[a.scanned:], jpegFooter)
		if end < 0 {
			if a.maxBuffer > 0 && len(a.buf) > a.maxBuffer {
				a.overflowResets.Add(1)
				a.reset()
				return extracted
			}
			// the last byte may be the first half of a marker
			if len(a.buf) > 0 {
				a.scanned = len(a.buf) - 1
			}
			return extracted
		}
		end += a.scanned

		start := bytes.Index(a.buf[:end], jpegHeader)
		if start < 0 {
			// an end marker with no start before it: we joined mid-frame or the stream is garbled
			a.resyncs.Add(1)
			a.reset()
			return extracted
		}

		frame := bytes.Clone(a.buf[start : end+len(jpegFooter)])
		a.buf = append(a.buf[:0], a.buf[end+len(jpegFooter):]...)
		a.scanned = 0

		if a.publish(frame) {
			extracted++
		}
	}
}

func (a *Assembler) publish(data []byte) bool {
	if a.filter != nil && !a.filter(data) {
		a.filtered.Add(1)
		return false
	}

	frame := a.publisher.Put(model.Frame{Data: data, Timestamp: time.Now()})
	a.frames.Add(1)
	for _, fn := range a.observers {
		fn(frame)
	}
	return true
}

func (a *Assembler) reset() {
	a.buf = a.buf[:0]
	a.scanned = 0
}

// Buffered returns the number of bytes waiting for an end marker.
func (a *Assembler) Buffered() int {
	return len(a.buf)
}

func (a *Assembler) Stats() AssemblerStats {
	return AssemblerStats{
		BytesRead:      a.bytesRead.Load(),
		Frames:         a.frames.Load(),
		Resyncs:        a.resyncs.Load(),
		OverflowResets: a.overflowResets.Load(),
		Filtered:       a.filtered.Load(),
	}
}

// Run reads src until it fails or ctx is cancelled. A stream that ends or
// errors is terminal: Run never reconnects.
func (a *Assembler) Run(ctx context.Context, src Source) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := src.ReadChunk()
		if len(chunk) > 0 {
			a.Feed(chunk)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return ErrStreamClosed
			}
			return fmt.Errorf("read stream: %w", err)
		}
	}
}
