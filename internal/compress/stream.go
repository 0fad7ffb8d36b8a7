package compress

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz/lzma"
)

// Codec names accepted by New. The workshop expects CodecLZMA for packages.
const (
	CodecLZMA = "lzma"
	CodecZstd = "zstd"
	CodecLZ4  = "lz4"
)

// chunkSize is how much source data is pulled per encoding step.
const chunkSize = 64 << 10

var (
	errUnknownCodec   = errors.New("unknown codec")
	errInvalidWhence  = errors.New("invalid whence")
	errNegativeOffset = errors.New("negative position")
)

// Stream is a lazily compressed, seekable view of a source stream.
type Stream struct {
	src io.Reader
	enc io.WriteCloser
	// out holds every encoded byte produced so far.
	out *sink
	pos int64
	// done is set once the source is exhausted and the encoder closed.
	done bool
	err  error
}

// sink collects encoder output.
type sink struct {
	buf []byte
}

func (s *sink) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)

	return len(p), nil
}

// New rewinds src and returns a stream producing its compressed encoding.
func New(src io.ReadSeeker, codec string) (*Stream, error) {
	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("measure source: %w", err)
	}

	if _, err = src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind source: %w", err)
	}

	out := new(sink)

	enc, err := newEncoder(out, codec, size)
	if err != nil {
		return nil, err
	}

	return &Stream{
		src: src,
		enc: enc,
		out: out,
	}, nil
}

// NewReader returns a decoder for data produced with codec.
func NewReader(r io.Reader, codec string) (io.ReadCloser, error) {
	switch codec {
	case CodecLZMA:
		dec, err := lzma.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create lzma decoder: %w", err)
		}

		return io.NopCloser(dec), nil
	case CodecZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}

		return dec.IOReadCloser(), nil
	case CodecLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownCodec, codec)
	}
}

// newEncoder returns an encoder for codec. size is the source length, which the
// LZMA header records.
func newEncoder(w io.Writer, codec string, size int64) (io.WriteCloser, error) {
	switch codec {
	case CodecLZMA:
		cfg := lzma.WriterConfig{SizeInHeader: true, Size: size}

		enc, err := cfg.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("create lzma encoder: %w", err)
		}

		return enc, nil
	case CodecZstd:
		enc, err := zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}

		return enc, nil
	case CodecLZ4:
		enc := lz4.NewWriter(w)
		if err := enc.Apply(lz4.CompressionLevelOption(lz4.Level5)); err != nil {
			return nil, fmt.Errorf("configure lz4 encoder: %w", err)
		}

		return enc, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownCodec, codec)
	}
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for s.pos >= int64(len(s.out.buf)) && !s.done {
		if err := s.pull(); err != nil {
			return 0, err
		}
	}

	if s.pos >= int64(len(s.out.buf)) {
		return 0, io.EOF
	}

	n := copy(p, s.out.buf[s.pos:])
	s.pos += int64(n)

	return n, nil
}

// Seek implements io.Seeker. Seeking from the end encodes the remaining source.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	var base int64

	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = s.pos
	case io.SeekEnd:
		if err := s.drain(); err != nil {
			return 0, err
		}

		base = int64(len(s.out.buf))
	default:
		return 0, errInvalidWhence
	}

	target := base + offset
	if target < 0 {
		return 0, errNegativeOffset
	}

	s.pos = target

	return target, nil
}

// Len returns the full compressed size, encoding the remaining source if needed.
func (s *Stream) Len() (int64, error) {
	if err := s.drain(); err != nil {
		return 0, err
	}

	return int64(len(s.out.buf)), nil
}

// encoded returns how many compressed bytes have been produced so far.
func (s *Stream) encoded() int64 {
	return int64(len(s.out.buf))
}

func (s *Stream) drain() error {
	for !s.done {
		if err := s.pull(); err != nil {
			return err
		}
	}

	return nil
}

// pull encodes one chunk of the source, closing the encoder at end of input.
func (s *Stream) pull() error {
	if s.err != nil {
		return s.err
	}

	chunk := make([]byte, chunkSize)

	n, err := io.ReadFull(s.src, chunk)
	if n > 0 {
		if _, werr := s.enc.Write(chunk[:n]); werr != nil {
			s.err = fmt.Errorf("compress: %w", werr)

			return s.err
		}
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if cerr := s.enc.Close(); cerr != nil {
			s.err = fmt.Errorf("finish compression: %w", cerr)

			return s.err
		}

		s.done = true

		return nil
	default:
		s.err = fmt.Errorf("read source: %w", err)

		return s.err
	}
}
