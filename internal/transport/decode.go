package transport

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"
)

// codec decodes device payloads keeping numbers as json.Number so values such as
// azimuth angles are not rounded through float64 before the caller sees them.
var codec = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// DecodeBody parses a device body. Anything that is not a JSON object is returned
// under RawKey rather than failing.
func DecodeBody(body []byte) Response {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Response{RawKey: string(body)}
	}
	var payload map[string]any
	if err := codec.Unmarshal(trimmed, &payload); err != nil || payload == nil {
		return Response{RawKey: string(body)}
	}
	return Response(payload)
}

// EncodeIndent renders a response as indented JSON
func EncodeIndent(resp Response) ([]byte, error) {
	return codec.MarshalIndent(resp, "", "  ")
}
