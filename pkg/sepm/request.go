package sepm

import (
	"context"
	"net/http"
	"strings"
)

// RequesterOptions configures a Requester.
type RequesterOptions struct {
	// Headers replace the session's default headers on every call when set.
	Headers map[string]string
	// Fields feed DeriveFromFields bodies.
	Fields map[string]any
	// NotRESTDataKeys are excluded from derived bodies. validate_certs is always excluded.
	NotRESTDataKeys []string
}

// Requester is the verb-level façade over a Session. Verb methods return only
// the decoded body; non-2xx replies also return a classified *APIError.
type Requester struct {
	session    *Session
	classifier *Classifier
	headers    map[string]string
	fields     map[string]any
	skip       map[string]struct{}
}

// NewRequester wraps session with the given options.
func NewRequester(session *Session, opts RequesterOptions) *Requester {
	skip := map[string]struct{}{"validate_certs": {}}
	for _, k := range opts.NotRESTDataKeys {
		if k = strings.TrimSpace(k); k != "" {
			skip[k] = struct{}{}
		}
	}
	return &Requester{
		session:    session,
		classifier: NewClassifier(BasePath),
		headers:    opts.Headers,
		fields:     opts.Fields,
		skip:       skip,
	}
}

// Session returns the underlying session.
func (r *Requester) Session() *Session { return r.session }

// Execute sends req, resolving derived bodies and classifying non-2xx replies.
// On a classified failure both the response and the *APIError are returned.
func (r *Requester) Execute(ctx context.Context, req Request) (*Response, error) {
	if req.Body.Kind() == BodyDerived {
		req.Body = Explicit(r.Fields())
	}
	if len(req.Headers) == 0 {
		req.Headers = r.headers
	}

	resp, err := r.session.Send(ctx, req)
	if err != nil {
		return resp, err
	}
	if resp.IsSuccess() {
		return resp, nil
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	target := r.session.URL(req.Path, req.Params)
	class := r.classifier.Classify(resp.StatusCode, method, target)
	r.session.log.WarnObj("sepm request failed", "sepm_error", map[string]any{
		"method": method,
		"url":    target,
		"status": resp.StatusCode,
		"reason": class.Reason,
	})
	return resp, &APIError{
		Method:         method,
		URL:            target,
		Body:           resp.Body,
		Classification: class,
	}
}

func (r *Requester) call(ctx context.Context, method, path string, body Body) (any, error) {
	resp, err := r.Execute(ctx, Request{Method: method, Path: path, Body: body})
	if resp == nil {
		return nil, err
	}
	return resp.Body, err
}

// Get issues a GET.
func (r *Requester) Get(ctx context.Context, path string) (any, error) {
	return r.call(ctx, http.MethodGet, path, NoBody())
}

// Put issues a PUT.
func (r *Requester) Put(ctx context.Context, path string, body Body) (any, error) {
	return r.call(ctx, http.MethodPut, path, body)
}

// Post issues a POST.
func (r *Requester) Post(ctx context.Context, path string, body Body) (any, error) {
	return r.call(ctx, http.MethodPost, path, body)
}

// Patch issues a PATCH.
func (r *Requester) Patch(ctx context.Context, path string, body Body) (any, error) {
	return r.call(ctx, http.MethodPatch, path, body)
}

// Delete issues a DELETE.
func (r *Requester) Delete(ctx context.Context, path string, body Body) (any, error) {
	return r.call(ctx, http.MethodDelete, path, body)
}

// GetByPath GETs a resource path relative to the server root.
func (r *Requester) GetByPath(ctx context.Context, restPath string) (any, error) {
	return r.Get(ctx, rootPath(restPath))
}

// DeleteByPath DELETEs a resource path relative to the server root.
func (r *Requester) DeleteByPath(ctx context.Context, restPath string) (any, error) {
	return r.Delete(ctx, rootPath(restPath), NoBody())
}

// PostByPath POSTs body to a resource path relative to the server root.
func (r *Requester) PostByPath(ctx context.Context, restPath string, body Body) (any, error) {
	return r.Post(ctx, rootPath(restPath), body)
}

// CreateUpdate PATCHes body to a resource path; SEPM updates are PATCH based.
func (r *Requester) CreateUpdate(ctx context.Context, restPath string, body Body) (any, error) {
	return r.Patch(ctx, rootPath(restPath), body)
}

// Fields returns the configured fields without nil values and excluded keys.
func (r *Requester) Fields() map[string]any {
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		if _, skip := r.skip[k]; skip || v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// URLEncodedFields returns Fields as a URL-encoded form.
func (r *Requester) URLEncodedFields() string {
	return EncodeQuery(r.Fields())
}

func rootPath(restPath string) string {
	return "/" + strings.TrimLeft(restPath, "/")
}
