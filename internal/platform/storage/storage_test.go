package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"voiceprint-server-go/internal/domain/attendance"
	"voiceprint-server-go/internal/domain/audit"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:storage-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)

	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	manager := NewMigrationManager(db)
	history, err := manager.History()
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 || history[0].Version != "002_audit_log" {
		t.Fatalf("unexpected history: %+v", history)
	}

	for _, table := range []string{"biometrics", "attendance_records", "voice_audit_logs"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestMigrationRollback(t *testing.T) {
	db := newTestDB(t)
	manager := NewMigrationManager(db)
	manager.AddMigration(&auditMigrationForTest{})

	if err := manager.RollbackMigration("002_audit_log"); err != nil {
		t.Fatalf("RollbackMigration() error = %v", err)
	}
	if db.Migrator().HasTable("voice_audit_logs") {
		t.Fatal("audit table should be dropped")
	}
	if err := manager.RollbackMigration("002_audit_log"); err == nil {
		t.Fatal("rolling back twice should fail")
	}
	if err := manager.RollbackMigration("999_unknown"); err == nil {
		t.Fatal("unknown migration should fail")
	}
}

type auditMigrationForTest struct{}

func (auditMigrationForTest) Version() string     { return "002_audit_log" }
func (auditMigrationForTest) Description() string { return "audit" }
func (auditMigrationForTest) Up(*gorm.DB) error   { return nil }
func (auditMigrationForTest) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS voice_audit_logs`).Error
}

func TestAttendanceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository(newTestDB(t))

	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	first := &attendance.Record{ID: "a", UserID: "u-1", CheckInTime: day.Add(8 * time.Hour), CheckInMethod: attendance.MethodVoiceCommand}
	second := &attendance.Record{ID: "b", UserID: "u-1", CheckInTime: day.Add(13 * time.Hour), CheckInMethod: attendance.MethodVoiceCommand}
	other := &attendance.Record{ID: "c", UserID: "u-2", CheckInTime: day.Add(9 * time.Hour)}
	for _, rec := range []*attendance.Record{first, second, other} {
		if err := repo.Append(ctx, rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	open, err := repo.LatestOpen(ctx, "u-1", day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("LatestOpen() error = %v", err)
	}
	if open == nil || open.ID != "b" {
		t.Fatalf("LatestOpen() = %+v, want record b", open)
	}

	out := day.Add(17 * time.Hour)
	open.CheckOutTime = &out
	open.CheckOutMethod = attendance.MethodVoiceCommand
	if err := repo.Update(ctx, open); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	open, err = repo.LatestOpen(ctx, "u-1", day, day.AddDate(0, 0, 1))
	if err != nil || open == nil || open.ID != "a" {
		t.Fatalf("LatestOpen() after checkout = %+v, %v", open, err)
	}

	none, err := repo.LatestOpen(ctx, "u-1", day.AddDate(0, 0, 1), day.AddDate(0, 0, 2))
	if err != nil || none != nil {
		t.Fatalf("LatestOpen() next day = %+v, %v", none, err)
	}

	list, err := repo.ListByUser(ctx, "u-1", day)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "b" || list[0].CheckOutTime == nil {
		t.Fatalf("ListByUser() = %+v", list)
	}
}

func TestAuditRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditRepository(newTestDB(t))

	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	entries := []*audit.Entry{
		{ID: "1", UserID: "u-1", Action: audit.ActionVerify, Success: true, Confidence: 0.9, Timestamp: base, Details: map[string]interface{}{"source": "verify"}},
		{ID: "2", UserID: "u-1", Action: audit.ActionCommand, Success: true, Timestamp: base.Add(time.Minute)},
		{ID: "3", UserID: "u-1", Action: audit.ActionAuthenticate, Success: false, Confidence: 0.5, Timestamp: base.Add(2 * time.Minute)},
		{ID: "4", UserID: "u-2", Action: audit.ActionVerify, Success: true, Timestamp: base},
	}
	for _, e := range entries {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := repo.ListByUser(ctx, "u-1", audit.VerificationActions)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "3" || got[1].Details["source"] != "verify" {
		t.Fatalf("ListByUser() = %+v", got)
	}

	metrics, err := audit.Metrics(ctx, repo, "u-1")
	if err != nil {
		t.Fatalf("Metrics() error = %v", err)
	}
	if metrics.TotalVerifications != 2 || metrics.SuccessfulVerifications != 1 {
		t.Fatalf("Metrics() = %+v", metrics)
	}
}
