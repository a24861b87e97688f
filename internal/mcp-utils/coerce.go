// Package mcputils binds loosely typed MCP tool arguments into request structs.
package mcputils

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ErrInvalidArguments is returned when a request's arguments are not a JSON object.
var ErrInvalidArguments = errors.New("invalid arguments format")

// ArgumentGetter is satisfied by mcp.CallToolRequest.
type ArgumentGetter interface {
	GetArguments() map[string]any
}

// BindArguments decodes request arguments into target using json tags.
//
// Some clients send every value as a string. Numeric and boolean strings are
// converted by weak typing; strings that look like JSON arrays or objects are
// decoded into slice, map and struct fields; other strings bound for a slice
// are split on commas.
func BindArguments[T any](request ArgumentGetter, target *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			decodeJSONString,
			mapstructure.StringToSliceHookFunc(","),
		),
		Result:  target,
		TagName: "json",
	})
	if err != nil {
		return err
	}

	return decoder.Decode(request.GetArguments())
}

// decodeJSONString turns "[...]" and "{...}" strings into values of the target type.
// Anything else passes through unchanged.
func decodeJSONString(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Slice, reflect.Map, reflect.Struct:
	default:
		return data, nil
	}

	raw := strings.TrimSpace(data.(string))
	if !looksLikeJSON(raw) {
		return data, nil
	}

	ptr := reflect.New(to)
	if err := json.Unmarshal([]byte(raw), ptr.Interface()); err != nil {
		return data, nil
	}
	return ptr.Elem().Interface(), nil
}

func looksLikeJSON(s string) bool {
	return (strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")) ||
		(strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"))
}
