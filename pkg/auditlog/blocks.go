package auditlog

import (
	"bufio"
	"errors"
	"io"
)

// ErrCanceled is returned once the cancellation handle reports cancellation.
var ErrCanceled = errors.New("import canceled")

// Canceler reports whether the surrounding operation has been canceled.
type Canceler interface {
	Canceled() bool
}

// BlockSource turns a byte stream into a sequence of raw record blocks.
// A block is one entry header line plus any continuation lines before the
// next header. The sequence is finite and not restartable.
type BlockSource struct {
	r        *bufio.Reader
	cancel   Canceler
	progress func(bytesRead int64)

	bytesRead int64
	pending   string // next block's header line, already consumed
	eof       bool
}

// NewBlockSource wraps r. progress, if non-nil, is invoked with cumulative
// bytes read after each block is assembled.
func NewBlockSource(r io.Reader, cancel Canceler, progress func(bytesRead int64)) *BlockSource {
	return &BlockSource{
		r:        bufio.NewReaderSize(r, 256*1024),
		cancel:   cancel,
		progress: progress,
	}
}

// Next returns the next raw block. It returns io.EOF after the last block
// and ErrCanceled as soon as the cancellation handle fires.
func (b *BlockSource) Next() (string, error) {
	if b.cancel != nil && b.cancel.Canceled() {
		return "", ErrCanceled
	}
	if b.eof && b.pending == "" {
		return "", io.EOF
	}

	var block []byte
	if b.pending != "" {
		block = append(block, b.pending...)
		b.pending = ""
	}

	for {
		line, err := b.r.ReadString('\n')
		b.bytesRead += int64(len(line))

		if len(line) > 0 {
			if headerRegex.MatchString(line) && len(block) > 0 {
				// Start of the next entry; hold it for the next call
				b.pending = line
				break
			}
			block = append(block, line...)
		}

		if err != nil {
			b.eof = true
			break
		}
	}

	if len(block) == 0 {
		return "", io.EOF
	}
	if b.progress != nil {
		b.progress(b.bytesRead)
	}
	return string(block), nil
}

// BytesRead returns the cumulative bytes consumed from the reader.
func (b *BlockSource) BytesRead() int64 {
	return b.bytesRead
}
