// Package intercept defines what the scanner needs from the host interception
// layer: a response event paired with the URL of the request that caused it.
package intercept

import (
	"net/http"
	"sort"
	"strings"
)

// Header is a single name/value pair as it appeared on the wire.
type Header struct {
	Name  string
	Value string
}

// Response is the read-only view of an intercepted response.
type Response interface {
	// HasHeader reports whether a header with the given name is present.
	// Names are compared case-insensitively.
	HasHeader(name string) bool
	// HeaderValue returns the first value of the named header.
	HeaderValue(name string) (string, bool)
	// Headers enumerates every header, keeping repeated names such as Set-Cookie.
	Headers() []Header
	// Body returns the full response body as text.
	Body() string
}

// Exchange is one response event delivered by the interception layer.
type Exchange struct {
	URL      string // absolute URL of the initiating request, including scheme
	Response Response
}

// Action tells the interception layer what to do with the response.
type Action int

const (
	// Continue forwards the response unmodified.
	Continue Action = iota
)

// Message is an in-memory Response built from literal header pairs.
type Message struct {
	headers []Header
	body    string
}

// NewMessage builds a Response from header pairs and a body.
func NewMessage(headers []Header, body string) *Message {
	h := make([]Header, len(headers))
	copy(h, headers)
	return &Message{headers: h, body: body}
}

func (m *Message) HasHeader(name string) bool {
	_, ok := m.HeaderValue(name)
	return ok
}

func (m *Message) HeaderValue(name string) (string, bool) {
	for _, h := range m.headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

func (m *Message) Headers() []Header {
	out := make([]Header, len(m.headers))
	copy(out, m.headers)
	return out
}

func (m *Message) Body() string { return m.body }

// HTTPResponse adapts a net/http header map and a captured body.
type HTTPResponse struct {
	header http.Header
	body   string
}

// FromHTTP wraps the headers of resp together with a body the caller has
// already read.
func FromHTTP(resp *http.Response, body []byte) *HTTPResponse {
	h := http.Header{}
	if resp != nil && resp.Header != nil {
		h = resp.Header.Clone()
	}
	return &HTTPResponse{header: h, body: string(body)}
}

func (r *HTTPResponse) HasHeader(name string) bool {
	return len(r.header.Values(name)) > 0
}

func (r *HTTPResponse) HeaderValue(name string) (string, bool) {
	vals := r.header.Values(name)
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// Headers returns the pairs sorted by canonical name; values of a repeated
// header keep their original order.
func (r *HTTPResponse) Headers() []Header {
	names := make([]string, 0, len(r.header))
	for name := range r.header {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Header
	for _, name := range names {
		for _, v := range r.header[name] {
			out = append(out, Header{Name: name, Value: v})
		}
	}
	return out
}

func (r *HTTPResponse) Body() string { return r.body }
