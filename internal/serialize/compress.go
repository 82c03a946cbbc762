package serialize

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/hugr-lab/airport-openapi/internal/msgpack"
)

// maxDecompressed caps what UnwrapCompressed will inflate.
const maxDecompressed = 256 << 20

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

// codecs returns the shared zstd encoder and decoder. EncodeAll and
// DecodeAll are safe for concurrent use, so one pair serves every request.
func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if codecErr != nil {
			codecErr = fmt.Errorf("create zstd encoder: %w", codecErr)
			return
		}
		decoder, codecErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecompressed))
		if codecErr != nil {
			codecErr = fmt.Errorf("create zstd decoder: %w", codecErr)
		}
	})
	return encoder, decoder, codecErr
}

// CompressCatalog zstd-compresses a serialized catalog payload.
func CompressCatalog(data []byte) ([]byte, error) {
	enc, _, err := codecs()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// WrapCompressed compresses data and encodes it as Airport's compressed
// content, the msgpack array [uncompressed length, compressed bytes].
func WrapCompressed(data []byte) ([]byte, error) {
	compressed, err := CompressCatalog(data)
	if err != nil {
		return nil, err
	}
	return msgpack.Encode([]any{
		uint32(len(data)),
		string(compressed),
	})
}

// UnwrapCompressed reverses WrapCompressed and checks the recorded length.
func UnwrapCompressed(data []byte) ([]byte, error) {
	var wrapped struct {
		_msgpack struct{} `msgpack:",as_array"`
		Length   uint32
		Data     string
	}
	if err := msgpack.Decode(data, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Length > maxDecompressed {
		return nil, fmt.Errorf("compressed content declares %d bytes, limit is %d", wrapped.Length, maxDecompressed)
	}

	_, dec, err := codecs()
	if err != nil {
		return nil, err
	}
	out, err := dec.DecodeAll([]byte(wrapped.Data), make([]byte, 0, wrapped.Length))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	if uint32(len(out)) != wrapped.Length {
		return nil, fmt.Errorf("decompressed %d bytes, header says %d", len(out), wrapped.Length)
	}
	return out, nil
}
