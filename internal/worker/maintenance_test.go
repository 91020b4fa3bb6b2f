package worker

import (
	"path/filepath"
	"testing"

	"github.com/yejune/do-worker/internal/store"
)

func TestStartMaintenance(t *testing.T) {
	st, err := store.New(store.Config{Path: filepath.Join(t.TempDir(), "memory.db")})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer st.Close()

	c, err := StartMaintenance(st, DefaultMaintenanceSchedule)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	c.Stop()
}

func TestStartMaintenanceRejectsBadSchedule(t *testing.T) {
	st, err := store.New(store.Config{Path: filepath.Join(t.TempDir(), "memory.db")})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer st.Close()

	if _, err := StartMaintenance(st, "not a cron expression"); err == nil {
		t.Error("expected error for invalid schedule")
	}
}
