package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobert/halfremembered-launcher/internal/logger"
)

func freeAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestHTTPServer_ServesUntilContextEnds(t *testing.T) {
	addr := freeAddress(t)
	h := NewHTTPServer(addr, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "up")
	}), time.Second, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Run(ctx)
	}()

	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ = io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "up", string(body))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second * 6):
		t.Fatal("Run did not return after cancel")
	}

	_, err := http.Get("http://" + addr + "/")
	assert.Error(t, err)
}

func TestHTTPServer_RequestTimeout(t *testing.T) {
	addr := freeAddress(t)
	release := make(chan struct{})
	defer close(release)

	h := NewHTTPServer(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), 50*time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusServiceUnavailable
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHTTPServer_BadAddressReturns(t *testing.T) {
	h := NewHTTPServer("not-an-address", http.NotFoundHandler(), 0, logger.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run should return when the listener cannot be opened")
	}
}
