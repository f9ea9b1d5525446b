package main

import (
	"context"
	"errors"
	"testing"
)

type fakeService struct {
	runErr   error
	closeErr error
	closed   int
}

func (f *fakeService) Run(context.Context) error { return f.runErr }

func (f *fakeService) Close() error {
	f.closed++
	return f.closeErr
}

func TestServeClosesAfterRunError(t *testing.T) {
	listenErr := errors.New("address in use")
	srv := &fakeService{runErr: listenErr}
	err := serve(context.Background(), srv)
	if !errors.Is(err, listenErr) {
		t.Fatalf("expected run error, got %v", err)
	}
	if srv.closed != 1 {
		t.Fatalf("expected one close, got %d", srv.closed)
	}
}

func TestServeReportsCloseError(t *testing.T) {
	closeErr := errors.New("flush failed")
	srv := &fakeService{closeErr: closeErr}
	if err := serve(context.Background(), srv); !errors.Is(err, closeErr) {
		t.Fatalf("expected close error, got %v", err)
	}
	if srv.closed != 1 {
		t.Fatalf("expected one close, got %d", srv.closed)
	}
}

func TestServeCleanShutdown(t *testing.T) {
	srv := &fakeService{}
	if err := serve(context.Background(), srv); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if srv.closed != 1 {
		t.Fatalf("expected one close, got %d", srv.closed)
	}
}
