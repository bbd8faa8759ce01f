// Package api is the wire contract between the CivicReport client and
// server: a gRPC service carried with a JSON codec, its method table and
// message types.
package api

import "encoding/json"

// CodecName is the gRPC content-subtype used on the wire.
const CodecName = "json"

// Codec marshals messages as JSON. It satisfies grpc's encoding.Codec.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string {
	return CodecName
}
