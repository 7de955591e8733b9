package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

var errNilCtor = errors.New("codec: protobuf codec built without a constructor")

// Protobuf serializes proto messages. ctor builds an empty message for Decode,
// e.g. func() *pb.User { return &pb.User{} }.
//
// Encoding is deterministic so equal messages produce equal payloads, and a
// refresh that changes nothing rewrites identical bytes.
type Protobuf[T proto.Message] struct {
	ctor func() T
}

var marshalOpts = proto.MarshalOptions{Deterministic: true}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{ctor: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return marshalOpts.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	if c.ctor == nil {
		var zero T
		return zero, errNilCtor
	}
	m := c.ctor()
	err := proto.Unmarshal(b, m)
	return m, err
}
