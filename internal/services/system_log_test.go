package services

import (
	"testing"
	"time"

	"github.com/creatorclub/backend/internal/models"
)

func TestSystemLogService(t *testing.T) {
	db := setupTestDB(t)
	s := NewSystemLogService(db)

	s.Info(LogEntry{Module: "checkout", Action: "fulfill", Message: "membership granted", UserID: "u1", Extra: map[string]string{"community_id": "c2"}})
	s.Warning(LogEntry{Module: "auth", Action: "login", Message: "bad password"})
	s.Error(LogEntry{Module: "checkout", Action: "webhook", Message: "signature mismatch"})

	res, err := s.List(&SystemLogListRequest{Module: "checkout"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 2 {
		t.Errorf("Total = %d, expected 2", res.Total)
	}

	res, _ = s.List(&SystemLogListRequest{Level: LogLevelInfo})
	if res.Total != 1 || res.Items[0].Extra != `{"community_id":"c2"}` {
		t.Errorf("info logs = %+v", res.Items)
	}
	if res.Items[0].UserID == nil || *res.Items[0].UserID != "u1" {
		t.Errorf("UserID = %v, expected u1", res.Items[0].UserID)
	}

	modules, err := s.GetModules()
	if err != nil || len(modules) != 2 {
		t.Errorf("GetModules() = (%v, %v)", modules, err)
	}
}

func TestSystemLogService_Cleanup(t *testing.T) {
	db := setupTestDB(t)
	s := NewSystemLogService(db)
	db.Create(&models.SystemLog{Level: "info", Module: "a", CreatedAt: time.Now().AddDate(0, 0, -40)})
	db.Create(&models.SystemLog{Level: "info", Module: "a", CreatedAt: time.Now()})

	if n, _ := s.CleanupOldLogs(0); n != 0 {
		t.Errorf("CleanupOldLogs(0) = %d, expected no-op", n)
	}
	n, err := s.CleanupOldLogs(30)
	if err != nil || n != 1 {
		t.Errorf("CleanupOldLogs(30) = (%d, %v), expected 1", n, err)
	}
}

func TestSystemLogService_NilSafe(t *testing.T) {
	var s *SystemLogService
	s.Info(LogEntry{Module: "x"})
}
