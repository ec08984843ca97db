package health

import (
	"context"
	"errors"
	"testing"
)

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct{ err error }

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, map[string]ProviderChecker{"openai": &mockChecker{}})

	report := svc.Check(context.Background())
	if report.Status != Healthy {
		t.Errorf("expected ok, got %s", report.Status)
	}
	if report.Checks["cache"] != CheckOK {
		t.Errorf("expected cache ok, got %s", report.Checks["cache"])
	}
	if report.Checks["provider:openai"] != CheckOK {
		t.Errorf("expected provider ok, got %s", report.Checks["provider:openai"])
	}
}

func TestCheck_ProviderDown(t *testing.T) {
	svc := New(&mockPinger{}, map[string]ProviderChecker{
		"openai": &mockChecker{err: errors.New("unreachable")},
	})

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Errorf("expected degraded, got %s", report.Status)
	}
	if report.Checks["provider:openai"] != CheckError {
		t.Errorf("expected provider error, got %s", report.Checks["provider:openai"])
	}
}

func TestCheck_CacheDown(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("refused")}, nil)

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Errorf("expected degraded, got %s", report.Status)
	}
}

func TestCheck_NilCacheSkipped(t *testing.T) {
	svc := New(nil, map[string]ProviderChecker{"openai": &mockChecker{}})

	report := svc.Check(context.Background())
	if _, present := report.Checks["cache"]; present {
		t.Error("disabled cache must not be checked")
	}
	if report.Status != Healthy {
		t.Errorf("expected ok, got %s", report.Status)
	}
}
