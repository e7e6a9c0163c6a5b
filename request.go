package gorestx

import (
	"net/url"

	"github.com/google/go-querystring/query"

	"github.com/restxlabs/gorestx/chunkx"
)

// RestRequest contains the description of a request to perform.
type RestRequest struct {
	Method string

	// Path is relative to the endpoint's base path.
	Path string

	// Params is encoded into the query string. It may be a url.Values
	// or a struct carrying `url` tags.
	Params any

	// Headers override any default header of the same name.
	Headers map[string]string

	// Body is optional. When it has no determinable size the request
	// is sent with chunked transfer encoding.
	Body chunkx.Source

	// BodySize, when positive, declares the body size explicitly and
	// the body is sent verbatim under that Content-Length. When zero
	// the size is taken from the body itself if it exposes one.
	BodySize int64

	// ChunkSize bounds individual body writes. Defaults to 65535.
	ChunkSize int

	// UniqueID tags log entries for this request. Generated when
	// empty.
	UniqueID string
}

func resolveBodySize(req *RestRequest) int64 {
	if req.Body == nil {
		return 0
	}
	if req.BodySize > 0 {
		return req.BodySize
	}
	if sizer, ok := req.Body.(chunkx.Sizer); ok {
		return sizer.Len()
	}
	return -1
}

func encodeParams(params any) (string, error) {
	switch p := params.(type) {
	case nil:
		return "", nil
	case url.Values:
		return p.Encode(), nil
	default:
		vals, err := query.Values(params)
		if err != nil {
			return "", contextualError{
				Message: "failed to encode query params",
				Cause:   err,
			}
		}
		return vals.Encode(), nil
	}
}
