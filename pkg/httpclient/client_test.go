package httpclient

import (
	"net"
	"testing"
	"time"
)

func TestNewTransport(t *testing.T) {
	tr := NewTransport(7 * time.Second)
	if tr.ResponseHeaderTimeout != 7*time.Second {
		t.Errorf("ResponseHeaderTimeout = %s, want 7s", tr.ResponseHeaderTimeout)
	}
	if tr.TLSClientConfig == nil || !tr.TLSClientConfig.InsecureSkipVerify {
		t.Error("upstream TLS verification should be disabled")
	}
	if tr.Proxy == nil {
		t.Error("environment proxy settings not honoured")
	}
}

func TestDial(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		if c, err := ln.Accept(); err == nil {
			c.Close()
		}
	}()

	conn, err := Dial(ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	conn.Close()
}
