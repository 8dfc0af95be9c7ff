package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthz_AlwaysReturns200(t *testing.T) {
	h := New()

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
}

func TestReadyz_AllCheckersPass(t *testing.T) {
	h := New(
		Checker{Name: "kubernetes", Check: func(_ context.Context) error { return nil }},
		Checker{Name: "gitlab", Check: func(_ context.Context) error { return nil }},
	)

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Checks["kubernetes"].Status != "ok" || body.Checks["gitlab"].Status != "ok" {
		t.Errorf("unexpected checks: %v", body.Checks)
	}
	if body.Checks["kubernetes"].Duration == "" {
		t.Error("expected a probe duration for the kubernetes check")
	}
}

func TestReadyz_CheckerFails(t *testing.T) {
	h := New(
		Checker{Name: "kubernetes", Check: func(_ context.Context) error {
			return errors.New("connection refused")
		}},
		Checker{Name: "gitlab", Check: func(_ context.Context) error { return nil }},
	)

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "fail" {
		t.Errorf("status = %q, want %q", body.Status, "fail")
	}
	if body.Checks["kubernetes"].Status != "fail: connection refused" {
		t.Errorf("kubernetes check = %q", body.Checks["kubernetes"].Status)
	}
	if body.Checks["gitlab"].Status != "ok" {
		t.Errorf("gitlab check = %q, want %q", body.Checks["gitlab"].Status, "ok")
	}
}

func TestReadyz_CheckersRunConcurrently(t *testing.T) {
	const delay = 100 * time.Millisecond
	slow := func(_ context.Context) error {
		time.Sleep(delay)
		return nil
	}
	h := New(
		Checker{Name: "kubernetes", Check: slow},
		Checker{Name: "gitlab", Check: slow},
		Checker{Name: "grafana", Check: slow},
	)

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	start := time.Now()
	h.Readyz(rec, req)
	elapsed := time.Since(start)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if elapsed >= 3*delay {
		t.Errorf("readiness took %v, slow probes should not queue behind each other", elapsed)
	}
}

func TestReadyz_NoCheckers(t *testing.T) {
	h := New()

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
