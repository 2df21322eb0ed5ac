package main

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServeUntilSignalReturnsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	srv := &http.Server{Addr: ln.Addr().String(), Handler: http.NotFoundHandler()}
	done := make(chan error, 1)
	go func() { done <- serveUntilSignal(srv, make(chan os.Signal), quietLogger()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("serveUntilSignal = nil on an address already in use")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serveUntilSignal did not return after listen failure")
	}
}

func TestServeUntilSignalStopsOnSignal(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	sigCh := make(chan os.Signal, 1)
	sigCh <- syscall.SIGTERM

	done := make(chan error, 1)
	go func() { done <- serveUntilSignal(srv, sigCh, quietLogger()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serveUntilSignal = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serveUntilSignal did not return after signal")
	}
}
