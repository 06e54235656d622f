// Package rpc содержит общие части gRPC-контрактов: JSON-кодек, единый формат ошибок
// и обобщённые обработчики для описаний сервисов.
package rpc

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// CodecName - content-subtype, под которым регистрируется JSON-кодек.
const CodecName = "json"

// jsonCodec сериализует сообщения контрактов в JSON.
// proto-сообщения (structpb.Struct и т.п.) проходят через protojson.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	if msg, ok := v.(proto.Message); ok {
		return protojson.Marshal(msg)
	}
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if msg, ok := v.(proto.Message); ok {
		return protojson.UnmarshalOptions{DiscardUnknown: true}.Unmarshal(data, msg)
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	// Денежные суммы передаются числами, а не строками.
	decimal.MarshalJSONWithoutQuotes = true
	encoding.RegisterCodec(jsonCodec{})
}
