package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"beacon/agent/internal/fault"
)

func TestSendSuccess(t *testing.T) {
	var gotUA, gotBody, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotUA = r.Header.Get("User-Agent")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte("sealed-response"))
	}))
	defer srv.Close()

	tr := NewHTTP(Options{URL: srv.URL, Headers: map[string]string{"user-agent": "beacon-test/1"}})
	out, err := tr.Send(context.Background(), []byte("sealed-request"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "sealed-response" {
		t.Fatalf("body = %q", out)
	}
	if gotMethod != http.MethodPost || gotBody != "sealed-request" || gotUA != "beacon-test/1" {
		t.Fatalf("request: method=%s body=%q ua=%q", gotMethod, gotBody, gotUA)
	}
}

func TestSendNonOK(t *testing.T) {
	for _, code := range []int{http.StatusNoContent, http.StatusNotFound, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		_, err := NewHTTP(Options{URL: srv.URL}).Send(context.Background(), nil)
		srv.Close()

		if !fault.Is(err, fault.KindTransport) {
			t.Fatalf("%d: want transport fault, got %v", code, err)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.Code != code {
			t.Fatalf("%d: want StatusError, got %v", code, err)
		}
	}
}

func TestSendNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTP(Options{URL: url, Timeout: time.Second}).Send(context.Background(), []byte("x"))
	if !fault.Is(err, fault.KindTransport) {
		t.Fatalf("want transport fault, got %v", err)
	}
}

func TestSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewHTTP(Options{URL: srv.URL, Timeout: 50 * time.Millisecond}).Send(context.Background(), nil)
	if !fault.Is(err, fault.KindTransport) {
		t.Fatalf("want transport fault, got %v", err)
	}
}

func TestTLSVerification(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	if _, err := NewHTTP(Options{URL: srv.URL}).Send(context.Background(), nil); err == nil {
		t.Fatal("self-signed certificate accepted with verification on")
	}
	out, err := NewHTTP(Options{URL: srv.URL, InsecureSkipVerify: true}).Send(context.Background(), nil)
	if err != nil || string(out) != "ok" {
		t.Fatalf("opt-in skip verify: %q %v", out, err)
	}
}
