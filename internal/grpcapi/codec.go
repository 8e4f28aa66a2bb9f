// Package grpcapi exposes the same read-only query surface as
// internal/restapi over gRPC, so the protobuf/grpc stack named in
// SPEC_FULL.md's peripheral-adapters section has a genuine caller.
// No protoc toolchain is available to generate real .pb.go stubs here,
// so methods are registered by hand through a grpc.ServiceDesc and
// messages are plain JSON-tagged structs marshaled through a codec
// registered with google.golang.org/grpc/encoding, rather than through
// proto.Message/codegen.
package grpcapi

import "encoding/json"

const codecName = "json"

// jsonCodec implements encoding.Codec by delegating to encoding/json.
// Registered under the "json" name so a client that negotiates
// content-subtype=json talks to this server without any generated code.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}
