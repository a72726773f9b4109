package corpus

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"
	"github.com/viant/bintly"
	"github.com/zeebo/blake3"
)

// Compression selects how Write encodes a chunk file.
type Compression string

const (
	CompressionXZ   Compression = "xz"
	CompressionNone Compression = "none"
)

const (
	magic = "NERCHUNK"
	// maxFrameSize bounds a single record so a corrupt length prefix cannot
	// trigger an unbounded allocation.
	maxFrameSize = 256 << 20
)

var xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

var (
	// ErrBadMagic reports a file that is not a chunk.
	ErrBadMagic = errors.New("corpus: not a chunk file")
	// ErrTruncated reports a frame cut short by end of file.
	ErrTruncated = errors.New("corpus: truncated frame")
)

var (
	writers = bintly.NewWriters()
	readers = bintly.NewReaders()
)

// Chunk is an ordered, materialized sequence of records. Iteration order is
// the file order and does not change between passes.
type Chunk struct {
	Records []*Record
}

// NewChunk returns an empty chunk with room for n records.
func NewChunk(n int) *Chunk {
	return &Chunk{Records: make([]*Record, 0, n)}
}

// Add appends a record.
func (c *Chunk) Add(r *Record) {
	c.Records = append(c.Records, r)
}

// Len returns the number of records.
func (c *Chunk) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Records)
}

// StreamIDs returns the record identifiers in order.
func (c *Chunk) StreamIDs() []string {
	ids := make([]string, 0, c.Len())
	for _, r := range c.Records {
		ids = append(ids, r.StreamID)
	}
	return ids
}

// Digest returns the hex BLAKE3 digest of the uncompressed chunk payload.
func (c *Chunk) Digest() (string, error) {
	var buf bytes.Buffer
	if err := encodePayload(&buf, c); err != nil {
		return "", err
	}
	sum := blake3.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// ReadFile opens and decodes a chunk file.
func ReadFile(path string) (*Chunk, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	chunk, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("read chunk %s: %w", path, err)
	}
	return chunk, nil
}

// Read decodes a chunk, transparently decompressing xz input.
func Read(r io.Reader) (*Chunk, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(xzMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	var src io.Reader = br
	if bytes.Equal(head, xzMagic) {
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open xz stream: %w", err)
		}
		src = bufio.NewReader(xr)
	}
	return decodePayload(src)
}

// Write encodes the chunk and returns the digest of its uncompressed payload.
func Write(w io.Writer, c *Chunk, compression Compression) (string, error) {
	hasher := blake3.New()
	switch compression {
	case CompressionNone, "":
		if err := encodePayload(io.MultiWriter(w, hasher), c); err != nil {
			return "", err
		}
	case CompressionXZ:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return "", fmt.Errorf("create xz writer: %w", err)
		}
		if err := encodePayload(io.MultiWriter(xw, hasher), c); err != nil {
			_ = xw.Close()
			return "", err
		}
		if err := xw.Close(); err != nil {
			return "", fmt.Errorf("close xz writer: %w", err)
		}
	default:
		return "", fmt.Errorf("corpus: unsupported compression %q", compression)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func encodePayload(w io.Writer, c *Chunk) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	var prefix [4]byte
	for i, record := range c.Records {
		stream := writers.Get()
		if err := record.EncodeBinary(stream); err != nil {
			writers.Put(stream)
			return fmt.Errorf("encode record %d: %w", i, err)
		}
		frame := stream.Bytes()
		if len(frame) > maxFrameSize {
			writers.Put(stream)
			return fmt.Errorf("record %s: frame of %d bytes exceeds limit", record.StreamID, len(frame))
		}
		binary.BigEndian.PutUint32(prefix[:], uint32(len(frame)))
		_, err := w.Write(prefix[:])
		if err == nil {
			_, err = w.Write(frame)
		}
		writers.Put(stream)
		if err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	return nil
}

func decodePayload(r io.Reader) (*Chunk, error) {
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrBadMagic
		}
		return nil, err
	}
	if string(head) != magic {
		return nil, ErrBadMagic
	}

	chunk := NewChunk(0)
	var prefix [4]byte
	for {
		if _, err := io.ReadFull(r, prefix[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return chunk, nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: record %d length", ErrTruncated, chunk.Len())
			}
			return nil, err
		}
		size := binary.BigEndian.Uint32(prefix[:])
		if size > maxFrameSize {
			return nil, fmt.Errorf("record %d: frame of %d bytes exceeds limit", chunk.Len(), size)
		}
		frame := make([]byte, size)
		if _, err := io.ReadFull(r, frame); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: record %d body", ErrTruncated, chunk.Len())
			}
			return nil, err
		}
		record, err := decodeRecord(frame)
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", chunk.Len(), err)
		}
		chunk.Add(record)
	}
}

func decodeRecord(frame []byte) (*Record, error) {
	stream := readers.Get()
	defer readers.Put(stream)
	if err := stream.FromBytes(frame); err != nil {
		return nil, err
	}
	record := &Record{}
	if err := record.DecodeBinary(stream); err != nil {
		return nil, err
	}
	return record, nil
}
