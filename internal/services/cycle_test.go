package services

import (
	"errors"
	"testing"
	"time"
)

func TestCycleStartAndEnd(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewCycleService(gdb, time.UTC)

	row, err := svc.Start(1, "2026-01-01", "첫 기록")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if row.EndDate != nil || row.CycleLength != nil {
		t.Errorf("first cycle = %+v, want open with no derived length", row)
	}

	closed, err := svc.End(1, "2026-01-05")
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if closed.EndDate == nil || *closed.EndDate != "2026-01-05" {
		t.Errorf("end date = %v", closed.EndDate)
	}

	// next cycle derives its length from the start-to-start gap
	second, err := svc.Start(1, "2026-01-29", "")
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if second.CycleLength == nil || *second.CycleLength != 28 {
		t.Errorf("cycle length = %v, want 28", second.CycleLength)
	}
}

func TestCycleSingleOngoingInvariant(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewCycleService(gdb, time.UTC)

	if _, err := svc.Start(1, "2026-01-01", ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Start(1, "2026-01-02", ""); !errors.Is(err, ErrOngoingCycleExists) {
		t.Fatalf("err = %v, want ErrOngoingCycleExists", err)
	}
	// a different user is unaffected
	if _, err := svc.Start(2, "2026-01-02", ""); err != nil {
		t.Fatalf("other user Start: %v", err)
	}
}

func TestCycleEndWithoutOngoing(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewCycleService(gdb, time.UTC)

	if _, err := svc.End(1, "2026-01-05"); !errors.Is(err, ErrNoOngoingCycle) {
		t.Fatalf("err = %v, want ErrNoOngoingCycle", err)
	}

	if _, err := svc.Start(1, "2026-01-10", ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.End(1, "2026-01-05"); err == nil {
		t.Fatal("expected error for end before start")
	}
}

func TestCycleUpdate(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewCycleService(gdb, time.UTC)

	row, err := svc.Start(1, "2026-01-01", "old note")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.End(1, "2026-01-05"); err != nil {
		t.Fatalf("End: %v", err)
	}

	note := "늦게 시작"
	end := "2026-01-06"
	got, err := svc.Update(1, row.ID, nil, &end, &note)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Note != note || got.EndDate == nil || *got.EndDate != end {
		t.Errorf("updated row = %+v", got)
	}

	// moving end before start is rejected
	bad := "2025-12-30"
	if _, err := svc.Update(1, row.ID, nil, &bad, nil); err == nil {
		t.Fatal("expected error for end before start")
	}

	// another user cannot touch the row
	if _, err := svc.Update(2, row.ID, nil, nil, &note); err == nil {
		t.Fatal("expected not-found for foreign cycle")
	}

	// clearing the end date reopens the cycle
	empty := ""
	got, err = svc.Update(1, row.ID, nil, &empty, nil)
	if err != nil {
		t.Fatalf("reopen Update: %v", err)
	}
	if got.EndDate != nil {
		t.Errorf("end date = %v, want nil after reopen", got.EndDate)
	}

	// but not while another cycle is already open
	if _, err := svc.End(1, "2026-01-06"); err != nil {
		t.Fatalf("re-End: %v", err)
	}
	if _, err := svc.Start(1, "2026-01-29", ""); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if _, err := svc.Update(1, row.ID, nil, &empty, nil); !errors.Is(err, ErrOngoingCycleExists) {
		t.Fatalf("err = %v, want ErrOngoingCycleExists when reopening past cycle", err)
	}
}

func TestCyclePrediction(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewCycleService(gdb, time.UTC)

	// no history at all
	pred, err := svc.Predict(1, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred != nil {
		t.Fatalf("pred = %+v, want nil without history", pred)
	}

	// single cycle: default length, low confidence
	if _, err := svc.Start(1, "2026-01-01", ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.End(1, "2026-01-05"); err != nil {
		t.Fatalf("End: %v", err)
	}
	pred, err = svc.Predict(1, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.AvgCycleLength != defaultCycleLength || pred.Confidence != ConfidenceLow {
		t.Errorf("pred = %+v, want default length low confidence", pred)
	}
	if pred.NextStartDate != "2026-01-29" {
		t.Errorf("next = %s, want 2026-01-29", pred.NextStartDate)
	}
	if pred.IsLate {
		t.Errorf("should not be late on %s", pred.NextStartDate)
	}

	// two more cycles 30 days apart: averaged length, medium confidence
	for _, d := range []struct{ start, end string }{
		{"2026-01-31", "2026-02-04"},
		{"2026-03-02", "2026-03-06"},
	} {
		if _, err := svc.Start(1, d.start, ""); err != nil {
			t.Fatalf("Start(%s): %v", d.start, err)
		}
		if _, err := svc.End(1, d.end); err != nil {
			t.Fatalf("End(%s): %v", d.end, err)
		}
	}
	pred, err = svc.Predict(1, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.AvgCycleLength != 30 || pred.Confidence != ConfidenceMedium {
		t.Errorf("pred = %+v, want avg 30 medium confidence", pred)
	}
	if pred.NextStartDate != "2026-04-01" {
		t.Errorf("next = %s, want 2026-04-01", pred.NextStartDate)
	}
}

func TestCycleLateDetection(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewCycleService(gdb, time.UTC)

	if _, err := svc.Start(1, "2026-01-01", ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.End(1, "2026-01-05"); err != nil {
		t.Fatalf("End: %v", err)
	}
	// predicted next start is 2026-01-29; two days past is not late yet
	pred, err := svc.Predict(1, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.IsLate {
		t.Errorf("2 days overdue should not flag late: %+v", pred)
	}
	// three days past is
	pred, err = svc.Predict(1, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if !pred.IsLate || pred.DaysLate != 3 {
		t.Errorf("pred = %+v, want late by 3 days", pred)
	}
}
