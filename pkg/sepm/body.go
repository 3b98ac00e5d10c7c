package sepm

import (
	"encoding/json"
	"fmt"
)

// BodyKind tags how a request body is produced.
type BodyKind int

const (
	// BodyNone sends no payload.
	BodyNone BodyKind = iota
	// BodyDerived builds the payload from the requester's configured fields.
	BodyDerived
	// BodyExplicit JSON-encodes a caller supplied value.
	BodyExplicit
	// BodyRaw sends pre-encoded bytes untouched.
	BodyRaw
)

func (k BodyKind) String() string {
	switch k {
	case BodyNone:
		return "none"
	case BodyDerived:
		return "derived"
	case BodyExplicit:
		return "explicit"
	case BodyRaw:
		return "raw"
	default:
		return fmt.Sprintf("BodyKind(%d)", int(k))
	}
}

// Body is a tagged request payload. The zero value is NoBody.
type Body struct {
	kind    BodyKind
	payload any
	raw     []byte
}

// NoBody returns a body that sends nothing.
func NoBody() Body { return Body{} }

// DeriveFromFields returns a body resolved from the requester's fields at send time.
func DeriveFromFields() Body { return Body{kind: BodyDerived} }

// Explicit returns a body that JSON-encodes payload.
func Explicit(payload any) Body { return Body{kind: BodyExplicit, payload: payload} }

// Raw returns a body that sends data as-is.
func Raw(data []byte) Body { return Body{kind: BodyRaw, raw: data} }

// Kind reports the body variant.
func (b Body) Kind() BodyKind { return b.kind }

func (b Body) encode() ([]byte, error) {
	switch b.kind {
	case BodyNone:
		return nil, nil
	case BodyRaw:
		return b.raw, nil
	case BodyExplicit:
		payload, err := json.Marshal(b.payload)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return payload, nil
	case BodyDerived:
		return nil, ErrBodyNotResolved
	default:
		return nil, fmt.Errorf("unknown body kind %s", b.kind)
	}
}
