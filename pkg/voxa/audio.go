package voxa

import (
	"context"
	"encoding/base64"
	"io"
	"os"
)

// DefaultAudioChunkBytes is the chunk size used when a caller does not pick
// one. Roughly 128ms of 16kHz mono PCM16.
const DefaultAudioChunkBytes = 4096

// EncodeAudioChunk encodes one chunk of raw audio bytes for the wire.
func EncodeAudioChunk(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeAudioChunk reverses EncodeAudioChunk.
func DecodeAudioChunk(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, NewError("failed to decode audio chunk", ErrCodeAudioDecodeFailed)
	}
	return data, nil
}

// AudioSourceFromReader lazily reads fixed-size chunks from r, encodes them
// and emits them on the returned channel. The channel closes when r is
// drained, errors, or ctx is cancelled. The sequence is single-use.
func AudioSourceFromReader(ctx context.Context, r io.Reader, chunkBytes int) <-chan string {
	if chunkBytes <= 0 {
		chunkBytes = DefaultAudioChunkBytes
	}

	out := make(chan string)
	go func() {
		defer close(out)
		buf := make([]byte, chunkBytes)
		for {
			n, err := io.ReadFull(r, buf)
			if n > 0 {
				select {
				case out <- EncodeAudioChunk(buf[:n]):
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

// AudioSourceFromFile streams a file's contents as encoded chunks.
func AudioSourceFromFile(ctx context.Context, path string, chunkBytes int) (<-chan string, error) {
	if chunkBytes <= 0 {
		chunkBytes = DefaultAudioChunkBytes
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, WrapError(err, ErrCodeConfigInvalid).AddDetail("path", path)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer f.Close()
		buf := make([]byte, chunkBytes)
		for {
			n, err := io.ReadFull(f, buf)
			if n > 0 {
				select {
				case out <- EncodeAudioChunk(buf[:n]):
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return out, nil
}

// AudioSourceFromChunks wraps in-memory raw chunks as a source, preserving
// their order.
func AudioSourceFromChunks(chunks ...[]byte) <-chan string {
	out := make(chan string, len(chunks))
	for _, chunk := range chunks {
		out <- EncodeAudioChunk(chunk)
	}
	close(out)
	return out
}
