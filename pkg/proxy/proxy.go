// Package proxy is the interception layer: an HTTP proxy that forwards
// traffic untouched and hands every in-scope response to a handler.
package proxy

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nxneeraj/hx-warden/pkg/httpclient"
	"github.com/nxneeraj/hx-warden/pkg/intercept"
	"github.com/nxneeraj/hx-warden/pkg/utils"
)

// Handler receives each intercepted response.
type Handler interface {
	HandleResponseReceived(ex intercept.Exchange) intercept.Action
}

// Options configures a Proxy.
type Options struct {
	// Target is the upstream base URL in reverse mode. Empty runs a forward
	// proxy that expects absolute request URIs and tunnels CONNECT.
	Target string
	// Scope lists host patterns whose responses are handed on. Empty means all.
	Scope []string
	// MaxBodyBytes is the largest body buffered for inspection.
	MaxBodyBytes int64
	// Timeout bounds upstream dials and response headers.
	Timeout time.Duration
	// Inspect, when set, limits inspection to responses whose Content-Type
	// it accepts.
	Inspect func(contentType string) bool
	// Transport overrides the upstream round tripper.
	Transport http.RoundTripper
}

// Proxy forwards requests upstream and passes responses to a Handler.
type Proxy struct {
	opts    Options
	target  *url.URL
	handler Handler
	log     *zap.Logger
	rp      *httputil.ReverseProxy
}

// New builds a Proxy. A nil logger discards output.
func New(opts Options, h Handler, log *zap.Logger) (*Proxy, error) {
	if h == nil {
		return nil, errors.New("proxy: nil response handler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 << 20
	}
	if opts.Transport == nil {
		opts.Transport = httpclient.NewTransport(opts.Timeout)
	}

	p := &Proxy{opts: opts, handler: h, log: log}
	if opts.Target != "" {
		u, err := url.Parse(opts.Target)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("proxy: invalid target %q", opts.Target)
		}
		p.target = u
	}

	p.rp = &httputil.ReverseProxy{
		Rewrite:        p.rewrite,
		Transport:      opts.Transport,
		ModifyResponse: p.inspect,
		ErrorHandler:   p.upstreamError,
		ErrorLog:       zap.NewStdLog(log.Named("reverseproxy")),
	}
	return p, nil
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		if p.target != nil {
			http.Error(w, "CONNECT not supported in reverse mode", http.StatusMethodNotAllowed)
			return
		}
		p.tunnel(w, r)
		return
	}
	if p.target == nil && !r.URL.IsAbs() {
		http.Error(w, "forward proxy requires an absolute request URI", http.StatusBadRequest)
		return
	}
	p.rp.ServeHTTP(w, r)
}

func (p *Proxy) rewrite(pr *httputil.ProxyRequest) {
	if p.target != nil {
		pr.SetURL(p.target)
		pr.SetXForwarded()
		return
	}
	// forward mode: the inbound URI is already absolute
	pr.Out.Host = pr.In.Host
}

func (p *Proxy) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	p.log.Warn("Upstream request failed", zap.String("url", r.URL.String()), zap.Error(err))
	w.WriteHeader(http.StatusBadGateway)
}

// inspect hands every in-scope response to the handler. The body is
// buffered and restored for the client; when it is missing, too large or
// undecodable the handler still sees the headers with an empty body.
func (p *Proxy) inspect(resp *http.Response) error {
	if resp.Request == nil {
		return nil
	}
	u := resp.Request.URL
	if !utils.InScope(u.Hostname(), p.opts.Scope) {
		return nil
	}
	if p.opts.Inspect != nil && !p.opts.Inspect(resp.Header.Get("Content-Type")) {
		return nil
	}

	p.handler.HandleResponseReceived(intercept.Exchange{
		URL:      u.String(),
		Response: intercept.FromHTTP(resp, p.scanBody(resp)),
	})
	return nil
}

// scanBody returns the decoded body for scanning, or nil when it cannot be
// scanned. resp.Body is always left readable from the start.
func (p *Proxy) scanBody(resp *http.Response) []byte {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil
	}
	u := resp.Request.URL
	limit := p.opts.MaxBodyBytes
	orig := resp.Body
	data, err := io.ReadAll(io.LimitReader(orig, limit+1))
	resp.Body = &replayBody{Reader: io.MultiReader(bytes.NewReader(data), orig), Closer: orig}
	if err != nil {
		p.log.Debug("Could not buffer response body", zap.String("url", u.String()), zap.Error(err))
		return nil
	}
	if int64(len(data)) > limit {
		p.log.Debug("Response body too large to scan", zap.String("url", u.String()), zap.Int64("limit", limit))
		return nil
	}

	body, err := decode(resp.Header.Get("Content-Encoding"), data, limit)
	if err != nil {
		p.log.Debug("Could not decode response body", zap.String("url", u.String()), zap.Error(err))
		return nil
	}
	return body
}

// decode undoes gzip content encoding. Other encodings are passed through.
func decode(encoding string, data []byte, limit int64) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		out, err := io.ReadAll(io.LimitReader(zr, limit+1))
		if err != nil {
			return nil, err
		}
		if int64(len(out)) > limit {
			return nil, fmt.Errorf("decoded body exceeds %d bytes", limit)
		}
		return out, nil
	default:
		return data, nil
	}
}

type replayBody struct {
	io.Reader
	io.Closer
}

// tunnel relays a CONNECT session byte for byte. Tunnelled traffic is not
// inspected.
func (p *Proxy) tunnel(w http.ResponseWriter, r *http.Request) {
	dest, err := httpclient.Dial(r.Host, p.opts.Timeout)
	if err != nil {
		p.log.Warn("Tunnel dial failed", zap.String("host", r.Host), zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	hj, ok := w.(http.Hijacker)
	if !ok {
		dest.Close()
		http.Error(w, "hijacking not supported", http.StatusInternalServerError)
		return
	}
	client, brw, err := hj.Hijack()
	if err != nil {
		dest.Close()
		p.log.Warn("Tunnel hijack failed", zap.String("host", r.Host), zap.Error(err))
		return
	}
	if _, err := client.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		client.Close()
		dest.Close()
		return
	}
	p.log.Debug("Tunnel opened", zap.String("host", r.Host))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		relay(dest, brw.Reader)
	}()
	go func() {
		defer wg.Done()
		relay(client, dest)
	}()
	go func() {
		wg.Wait()
		client.Close()
		dest.Close()
	}()
}

func relay(dst net.Conn, src io.Reader) {
	_, _ = io.Copy(dst, src)
	if tc, ok := dst.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
		return
	}
	_ = dst.Close()
}
