package database

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
)

func TestRunRepository_FinishWithoutErrors(t *testing.T) {
	runs := NewRunRepository(setupTestDB(t))
	ctx := context.Background()

	run, err := runs.StartRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("Failed to start run: %v", err)
	}
	if run.Status != RunRunning {
		t.Errorf("Expected running status, got %s", run.Status)
	}

	counters := RunCounters{Fetched: 10, NewItems: 4, Relevant: 2, Retrieved: 2, Translated: 2, Sent: 3}
	if err := runs.FinishRun(ctx, run.ID, counters, nil); err != nil {
		t.Fatalf("Failed to finish run: %v", err)
	}

	got, err := runs.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if got.Status != RunSuccess {
		t.Errorf("Expected success, got %s", got.Status)
	}
	if got.Counters != counters {
		t.Errorf("Expected counters %+v, got %+v", counters, got.Counters)
	}
	if got.FinishedAt == nil {
		t.Error("Expected finished_at to be set")
	}
	if got.Errors != nil {
		t.Errorf("Expected no errors, got %v", got.Errors)
	}
}

func TestRunRepository_FinishWithErrors(t *testing.T) {
	runs := NewRunRepository(setupTestDB(t))
	ctx := context.Background()

	run, _ := runs.StartRun(ctx, "run-2")
	errs := []string{"fetch failed: boom", "translate failed: quota"}
	if err := runs.FinishRun(ctx, run.ID, RunCounters{}, errs); err != nil {
		t.Fatalf("Failed to finish run: %v", err)
	}

	got, _ := runs.GetRun(ctx, run.ID)
	if got.Status != RunError {
		t.Errorf("Expected error status, got %s", got.Status)
	}
	if !reflect.DeepEqual(got.Errors, errs) {
		t.Errorf("Expected errors %v, got %v", errs, got.Errors)
	}
}

func TestRunRepository_GetRecentRuns(t *testing.T) {
	runs := NewRunRepository(setupTestDB(t))
	ctx := context.Background()

	var last int64
	for _, key := range []string{"a", "b", "c"} {
		run, _ := runs.StartRun(ctx, key)
		last = run.ID
	}

	recent, err := runs.GetRecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != last || recent[0].RunKey != "c" {
		t.Errorf("Expected newest run first, got %+v", recent)
	}

	missing, err := runs.GetRun(ctx, 999)
	if err != nil || missing != nil {
		t.Errorf("Expected nil run without error, got %+v, %v", missing, err)
	}
}

func TestDecodeRunErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    sql.NullString
		expected []string
	}{
		{name: "null", input: sql.NullString{}, expected: nil},
		{name: "json", input: sql.NullString{String: `["a","b"]`, Valid: true}, expected: []string{"a", "b"}},
		{name: "lines", input: sql.NullString{String: "a\n\n b \n", Valid: true}, expected: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeRunErrors(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
