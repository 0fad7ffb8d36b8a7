package workshop

import (
	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

// CodecName is the gRPC content subtype used by the gateway API.
const CodecName = "cbor"

//nolint:gochecknoinits // Codecs must be registered before any connection is created.
func init() {
	encoding.RegisterCodec(codec{})
}

// codec encodes protobuf messages with proto and everything else with CBOR.
type codec struct{}

// Marshal encodes v.
func (codec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}

	return cbor.Marshal(v)
}

// Unmarshal decodes data into v.
func (codec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}

	return cbor.Unmarshal(data, v)
}

// Name returns the content subtype.
func (codec) Name() string {
	return CodecName
}
