// Package codec holds the serialization strategies swrcache applies before
// compression. JSON is the default; String and Bytes store the value's raw
// bytes with no serialization step.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
