// SPDX-License-Identifier: MIT

package trace

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects the compression applied by Export.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecZstd
	CodecS2
	CodecLZ4
)

var (
	// ErrUnknownCodec is returned for a codec id or name that is not supported.
	ErrUnknownCodec = errors.New("trace: unknown codec")

	// ErrBadHeader is returned by Import when the stream does not start with the trace magic.
	ErrBadHeader = errors.New("trace: bad header")
)

var magic = [4]byte{'T', 'F', 'T', 'R'}

const headerLen = len(magic) + 1

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecS2:
		return "s2"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Codec(%d)", uint8(c))
	}
}

// ParseCodec maps a name ("none", "zstd", "s2", "lz4") to a Codec. The empty
// string selects CodecNone.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return CodecNone, nil
	case "zstd":
		return CodecZstd, nil
	case "s2":
		return CodecS2, nil
	case "lz4":
		return CodecLZ4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// Export writes t to w as header || codec(JSON(t)).
func Export(w io.Writer, t *Trace, c Codec) error {
	if t == nil {
		t = New()
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("trace: encode: %w", err)
	}
	payload, err := compress(c, raw)
	if err != nil {
		return err
	}

	hdr := append(magic[:], byte(c))
	if _, err = w.Write(hdr); err != nil {
		return fmt.Errorf("trace: write header: %w", err)
	}
	if _, err = w.Write(payload); err != nil {
		return fmt.Errorf("trace: write payload: %w", err)
	}

	return nil
}

// Import reads a trace previously written by Export.
func Import(r io.Reader) (*Trace, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("trace: read: %w", err)
	}
	if len(data) < headerLen || !bytes.Equal(data[:len(magic)], magic[:]) {
		return nil, ErrBadHeader
	}
	raw, err := decompress(Codec(data[len(magic)]), data[headerLen:])
	if err != nil {
		return nil, err
	}

	t := New()
	if err = json.Unmarshal(raw, t); err != nil {
		return nil, fmt.Errorf("trace: decode: %w", err)
	}

	return t, nil
}

func compress(c Codec, data []byte) ([]byte, error) {
	switch c {
	case CodecNone:
		return data, nil
	case CodecZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("trace: zstd: %w", err)
		}
		defer enc.Close()

		return enc.EncodeAll(data, nil), nil
	case CodecS2:
		return s2.Encode(nil, data), nil
	case CodecLZ4:
		// block format carries no length; prefix the raw size
		dst := make([]byte, 4+lz4.CompressBlockBound(len(data)))
		binary.LittleEndian.PutUint32(dst, uint32(len(data)))
		var lc lz4.Compressor
		n, err := lc.CompressBlock(data, dst[4:])
		if err != nil {
			return nil, fmt.Errorf("trace: lz4: %w", err)
		}
		if n == 0 {
			// incompressible input: store verbatim behind a zero marker
			binary.LittleEndian.PutUint32(dst, 0)
			return append(dst[:4], data...), nil
		}

		return dst[:4+n], nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, uint8(c))
	}
}

func decompress(c Codec, data []byte) ([]byte, error) {
	switch c {
	case CodecNone:
		return data, nil
	case CodecZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("trace: zstd: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("trace: zstd: %w", err)
		}

		return out, nil
	case CodecS2:
		out, err := s2.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("trace: s2: %w", err)
		}

		return out, nil
	case CodecLZ4:
		if len(data) < 4 {
			return nil, fmt.Errorf("trace: lz4: %w", ErrBadHeader)
		}
		size := binary.LittleEndian.Uint32(data)
		if size == 0 {
			return data[4:], nil
		}
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(data[4:], out)
		if err != nil {
			return nil, fmt.Errorf("trace: lz4: %w", err)
		}

		return out[:n], nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, uint8(c))
	}
}
