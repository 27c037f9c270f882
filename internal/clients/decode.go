package clients

import (
	"bytes"
	"fmt"
	"net/url"
	"reflect"
	"sort"

	"github.com/goccy/go-json"

	"aki/bff/internal/apperr"
	"aki/bff/internal/model"
)

// Filters are list query parameters. Nil values, including typed nil
// pointers, are dropped instead of being sent as "<nil>".
type Filters map[string]any

func (f Filters) Values() url.Values {
	values := url.Values{}
	keys := make([]string, 0, len(f))
	for key := range f {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value, ok := deref(f[key])
		if !ok {
			continue
		}
		values.Set(key, fmt.Sprint(value))
	}
	return values
}

func deref(value any) (any, bool) {
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	return rv.Interface(), true
}

type pageEnvelope struct {
	Items json.RawMessage `json:"items"`
	Data  json.RawMessage `json:"data"`
	Meta  *model.PageMeta `json:"meta"`
}

// decodePage normalizes the list shapes the upstreams use into model.Page:
// a bare array, {items, meta}, {data: [...], meta} and {data: {items, meta}}.
// meta is passed through untouched when present.
func decodePage[T any](raw json.RawMessage) (model.Page[T], error) {
	raw = bytes.TrimSpace(raw)
	page := model.EmptyPage[T]()
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return page, nil
	}

	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &page.Items); err != nil {
			return page, invalidResponse(err)
		}
		page.Meta = model.PageMeta{Page: 1, Size: len(page.Items), Total: len(page.Items)}
		if len(page.Items) > 0 {
			page.Meta.TotalPages = 1
		}
		return page, nil
	}

	var env pageEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return page, invalidResponse(err)
	}

	list := bytes.TrimSpace(env.Items)
	if len(list) == 0 {
		data := bytes.TrimSpace(env.Data)
		switch {
		case len(data) > 0 && data[0] == '[':
			list = data
		case len(data) > 0 && data[0] == '{':
			nested, err := decodePage[T](data)
			if err != nil {
				return page, err
			}
			if env.Meta != nil {
				nested.Meta = *env.Meta
			}
			return nested, nil
		}
	}

	if len(list) > 0 && !bytes.Equal(list, []byte("null")) {
		if err := json.Unmarshal(list, &page.Items); err != nil {
			return page, invalidResponse(err)
		}
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	if env.Meta != nil {
		page.Meta = *env.Meta
	}
	return page, nil
}

// decodeEntity unwraps {data: {...}} when present.
func decodeEntity[T any](raw json.RawMessage) (T, error) {
	var out T
	raw = unwrapData(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, invalidResponse(err)
	}
	return out, nil
}

// decodeFirst resolves a lookup by unique field. List shaped responses yield
// their first element; the first match wins when the upstream returns several.
func decodeFirst[T any](raw json.RawMessage, notFound string) (T, error) {
	var zero T
	trimmed := bytes.TrimSpace(raw)
	if isEmptyJSON(trimmed) || emptyData(trimmed) {
		return zero, apperr.NotFound(notFound)
	}
	if !looksLikeList(trimmed) {
		return decodeEntity[T](trimmed)
	}
	page, err := decodePage[T](trimmed)
	if err != nil {
		return zero, err
	}
	if len(page.Items) == 0 {
		return zero, apperr.NotFound(notFound)
	}
	return page.Items[0], nil
}

func isEmptyJSON(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("{}"))
}

// emptyData reports a {"data": null} or {"data": {}} envelope.
func emptyData(raw json.RawMessage) bool {
	if raw[0] != '{' {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	data, ok := fields["data"]
	return ok && isEmptyJSON(data)
}

func looksLikeList(raw json.RawMessage) bool {
	if raw[0] == '[' {
		return true
	}
	var env pageEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false
	}
	if len(env.Items) > 0 {
		return true
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 {
		return false
	}
	if data[0] == '[' {
		return true
	}
	return looksLikeList(data)
}

func unwrapData(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return raw
	}
	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return raw
	}
	data := bytes.TrimSpace(probe.Data)
	if len(data) > 0 && data[0] == '{' {
		return data
	}
	return raw
}

func invalidResponse(err error) error {
	return apperr.Internal("Invalid upstream response").Wrap(err)
}

func idPath(prefix string, id any, suffix ...string) string {
	path := prefix + "/" + url.PathEscape(fmt.Sprint(id))
	for _, part := range suffix {
		path += "/" + part
	}
	return path
}
