package sepm

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Adda-Baaj/sepm-epm/pkg/httpclient"
	"github.com/stretchr/testify/require"
)

// recordedRequest captures what the fake SEPM server received.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

// newTestSession starts a TLS server running handler and returns a session pointed at it.
func newTestSession(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Session, *[]recordedRequest) {
	t.Helper()
	var seen []recordedRequest
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		seen = append(seen, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   string(raw),
		})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := httpclient.NewRestyClient(httpclient.Options{Timeout: 2 * time.Second, InsecureSkipVerify: true})
	session, err := NewSession(srv.URL, client, nil)
	require.NoError(t, err)
	return session, &seen
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
