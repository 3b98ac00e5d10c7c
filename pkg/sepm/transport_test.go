package sepm

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeQueryDropsNilValues(t *testing.T) {
	var missing *string
	group := "G1"
	query := EncodeQuery(map[string]any{
		"computer_ids": []string{"A", "B"},
		"group_ids":    &group,
		"undo":         nil,
		"mac":          missing,
		"pageSize":     25,
		"force":        true,
	})
	assert.Equal(t, "computer_ids=A%2CB&force=true&group_ids=G1&pageSize=25", query)
	assert.NotContains(t, query, "undo")
	assert.NotContains(t, query, "mac")
	assert.Empty(t, EncodeQuery(map[string]any{"a": nil}))
}

func TestEncodeQueryDropsTypedNilsAndComposites(t *testing.T) {
	var nilPtr *[]string
	var nilSlice []string
	query := EncodeQuery(map[string]any{
		"slicePtr": &nilSlice,
		"os":       []string(nil),
		"m":        map[string]string(nil),
		"filled":   map[string]string{"a": "b"},
		"obj":      struct{ A int }{A: 1},
		"fn":       (func())(nil),
		"ptr":      nilPtr,
		"domain":   "D1",
	})
	assert.Equal(t, "domain=D1", query)
	assert.Empty(t, EncodeQuery(map[string]any{"os": []string(nil), "m": map[string]string(nil)}))
}

func TestSendDecodesEmptyBodyAsEmptyMap(t *testing.T) {
	session, _ := newTestSession(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	resp, err := session.Send(context.Background(), Request{Method: "get", Path: "/sepm/api/v1/version"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, map[string]any{}, resp.Body)
}

func TestSendRejectsNonJSONWithRawText(t *testing.T) {
	session, _ := newTestSession(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("not json"))
	})

	_, err := session.Send(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "not json", connErr.Raw)
	assert.Contains(t, err.Error(), "invalid JSON response: not json")
}

func TestSendRejectsUnsupportedMethodWithoutSending(t *testing.T) {
	session, seen := newTestSession(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})

	_, err := session.Send(context.Background(), Request{Method: "TRACE", Path: "/x"})
	assert.True(t, errors.Is(err, ErrUnsupportedMethod))
	assert.Empty(t, *seen)
}

func TestSendReturnsErrorBodyForNon2xx(t *testing.T) {
	session, _ := newTestSession(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"errorCode":"400","errorMessage":"bad"}`)
	})

	resp, err := session.Send(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad", resp.Body.(map[string]any)["errorMessage"])
}

func TestSendHeadersAndQuery(t *testing.T) {
	session, seen := newTestSession(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})
	ctx := context.Background()

	_, err := session.Send(ctx, Request{
		Method: http.MethodPost,
		Path:   "sepm/api/v1/command-queue/baseline?computer_ids=C1",
		Params: map[string]any{"group_ids": "G1", "undo": nil},
	})
	require.NoError(t, err)

	_, err = session.Send(ctx, Request{
		Method:  http.MethodPost,
		Path:    "/eoc",
		Headers: map[string]string{"Content-Type": "application/xml"},
		Body:    Raw([]byte("<EOC/>")),
	})
	require.NoError(t, err)

	require.Len(t, *seen, 2)
	first := (*seen)[0]
	assert.Equal(t, "/sepm/api/v1/command-queue/baseline", first.Path)
	assert.Equal(t, "computer_ids=C1&group_ids=G1", first.Query)
	assert.Equal(t, "application/json", first.Header.Get("Content-Type"))
	assert.Empty(t, first.Body)

	second := (*seen)[1]
	assert.Equal(t, "application/xml", second.Header.Get("Content-Type"))
	assert.Equal(t, "<EOC/>", second.Body)
}

func TestSendRejectsUnresolvedDerivedBody(t *testing.T) {
	session, seen := newTestSession(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})

	_, err := session.Send(context.Background(), Request{Method: http.MethodPost, Path: "/x", Body: DeriveFromFields()})
	assert.ErrorIs(t, err, ErrBodyNotResolved)
	assert.Empty(t, *seen)
}

func TestNewSessionValidatesBaseURL(t *testing.T) {
	_, err := NewSession("sepm.local", nil, nil)
	assert.Error(t, err)
}
