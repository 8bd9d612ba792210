package health

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestCheckBasic(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		cacheOK    func() bool
		wantStatus string
		wantDB     string
		wantCache  string
	}{
		{"nothing configured", nil, nil, StatusHealthy, StatusNotConfigured, StatusNotConfigured},
		{"db up", fakePinger{}, func() bool { return true }, StatusHealthy, StatusHealthy, StatusHealthy},
		{"db down", fakePinger{err: errors.New("refused")}, nil, StatusUnhealthy, StatusUnhealthy, StatusNotConfigured},
		{"cache down only", fakePinger{}, func() bool { return false }, StatusHealthy, StatusHealthy, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &HealthChecker{db: tt.db, cacheOK: tt.cacheOK}
			got := h.CheckBasic()
			if got.Status != tt.wantStatus || got.Database.Status != tt.wantDB || got.Cache != tt.wantCache {
				t.Errorf("CheckBasic() = %+v", got)
			}
		})
	}
}

func TestNewHealthCheckerNilPool(t *testing.T) {
	h := NewHealthChecker(nil, nil)
	if h.db != nil {
		t.Fatal("nil pool stored as non-nil Pinger")
	}
	if got := h.CheckBasic().Database.Status; got != StatusNotConfigured {
		t.Errorf("database = %q", got)
	}
}

func TestFormatting(t *testing.T) {
	if got := formatBytes(512 * 1024 * 1024); got != "512.0 MB" {
		t.Errorf("formatBytes() = %q", got)
	}
	if got := formatBytes(3 * 1024 * 1024 * 1024); got != "3.0 GB" {
		t.Errorf("formatBytes() = %q", got)
	}
	if got := formatUptime(90061); got != "1d 1h" {
		t.Errorf("formatUptime() = %q", got)
	}
	if got := formatUptime(3900); got != "1h 5m" {
		t.Errorf("formatUptime() = %q", got)
	}
}
