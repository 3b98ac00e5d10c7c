package sepm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

const contentTypeJSON = "application/json"

// Request is a single call against the SEPM REST API.
type Request struct {
	Method  string
	Path    string
	Params  map[string]any
	Body    Body
	Headers map[string]string
}

// Response is the decoded reply of a call.
type Response struct {
	StatusCode int
	// Body is the decoded JSON document, or an empty map for an empty reply.
	Body any
	Raw  []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

var supportedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodHead:   {},
	http.MethodPut:    {},
	http.MethodPost:   {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

func normalizeMethod(method string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	if _, ok := supportedMethods[m]; !ok {
		return "", fmt.Errorf("%w %q", ErrUnsupportedMethod, method)
	}
	return m, nil
}

// Send performs req and decodes the reply. Non-2xx statuses are not errors at
// this layer: the decoded error body is returned with its status code.
func (s *Session) Send(ctx context.Context, req Request) (*Response, error) {
	method, err := normalizeMethod(req.Method)
	if err != nil {
		return nil, err
	}
	payload, err := req.Body.encode()
	if err != nil {
		return nil, err
	}

	target := s.URL(req.Path, req.Params)
	s.log.DebugObj("sepm request", "sepm_request", map[string]any{
		"method": method,
		"url":    target,
	})

	resp, err := s.client.Do(ctx, method, target, s.requestHeaders(req.Headers), payload)
	if err != nil {
		return nil, fmt.Errorf("sepm %s %s: %w", method, target, err)
	}

	out := &Response{StatusCode: resp.StatusCode(), Raw: resp.Body()}
	body, err := decodeBody(out.Raw)
	if err != nil {
		return out, err
	}
	out.Body = body
	return out, nil
}

// URL joins path and the encoded params onto the session base URL.
func (s *Session) URL(path string, params map[string]any) string {
	target := s.baseURL + "/" + strings.TrimLeft(path, "/")
	if query := EncodeQuery(params); query != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + query
	}
	return target
}

func (s *Session) requestHeaders(overrides map[string]string) map[string]string {
	var base map[string]string
	if len(overrides) > 0 {
		base = overrides
	} else {
		base = s.headers
	}
	headers := make(map[string]string, len(base)+1)
	for k, v := range base {
		headers[k] = v
	}
	for k, v := range s.authHeader() {
		headers[k] = v
	}
	return headers
}

// EncodeQuery URL-encodes params, dropping nil values (including nil pointers).
// String slices are comma-joined.
func EncodeQuery(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		if v, ok := paramValue(params[k]); ok {
			values.Set(k, v)
		}
	}
	return values.Encode()
}

func paramValue(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	rv := reflect.ValueOf(v)
	if isNil(rv) {
		return "", false
	}
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
		if isNil(rv) {
			return "", false
		}
		v = rv.Interface()
	}
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case []string:
		return strings.Join(x, ","), true
	case fmt.Stringer:
		return x.String(), true
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String, reflect.Bool:
		return fmt.Sprint(v), true
	default:
		// Maps, structs and other composites have no query form.
		return "", false
	}
}

func isNil(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

func decodeBody(raw []byte) (any, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return map[string]any{}, nil
	}
	var out any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, &ConnectionError{Raw: string(raw), Err: err}
	}
	return out, nil
}
