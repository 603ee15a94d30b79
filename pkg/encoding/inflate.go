package encoding

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/gatewire/gateway/pkg/core"
)

// maxInflatedSize bounds a single inflated payload. Ready payloads of large
// bots are the biggest frames the gateway sends and stay well below this.
const maxInflatedSize = 64 << 20

// Inflate decompresses a binary frame. When payload compression is enabled
// in Identify the gateway sends each payload as its own zlib stream.
func Inflate(frame []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(frame))
	if err != nil {
		return nil, &core.ProtocolError{
			Operation: "inflate",
			Code:      int(CloseDecodeError),
			Err:       err,
		}
	}
	defer r.Close()

	var buf bytes.Buffer
	buf.Grow(len(frame) * 4)
	n, err := io.Copy(&buf, io.LimitReader(r, maxInflatedSize+1))
	if err != nil {
		return nil, &core.ProtocolError{
			Operation: "inflate",
			Code:      int(CloseDecodeError),
			Err:       err,
		}
	}
	if n > maxInflatedSize {
		return nil, &core.ProtocolError{
			Operation: "inflate",
			Code:      int(CloseDecodeError),
			Err:       fmt.Errorf("payload exceeds %d bytes", maxInflatedSize),
		}
	}
	return buf.Bytes(), nil
}

// Deflate compresses a payload the way the gateway does. It is the inverse of
// Inflate and is mostly useful to fake gateways in tests.
func Deflate(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
