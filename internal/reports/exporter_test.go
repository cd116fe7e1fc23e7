package reports

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	blobmem "plancore/internal/infra/blob/memory"
	"plancore/pkg/domain"
)

type stubComparer struct {
	result domain.ComparisonResult
	err    error
}

func (s *stubComparer) CompareScenarios(_ context.Context, aID, bID string) (domain.ComparisonResult, error) {
	if s.err != nil {
		return domain.ComparisonResult{}, s.err
	}
	result := s.result
	result.ScenarioA = aID
	result.ScenarioB = bID
	return result, nil
}

func sampleResult() domain.ComparisonResult {
	return domain.ComparisonResult{
		Differences: []domain.Difference{
			{
				EntityType: domain.EntityAssignment,
				EntityID:   "a1",
				EntityName: "a1",
				Kind:       domain.DiffModified,
				Fields: []domain.FieldChange{
					{Field: "allocation", Old: 50.0, New: 75.0},
				},
			},
			{
				EntityType: domain.EntityPerson,
				EntityID:   "bob",
				EntityName: "Bob",
				Kind:       domain.DiffAdded,
			},
		},
		GeneratedAt: time.Now().UTC(),
	}
}

func waitForRecord(t *testing.T, exp *Exporter, id string) Record {
	t.Helper()
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-deadline:
			t.Fatalf("export %s did not finish", id)
		case <-tick.C:
			record, ok := exp.Get(id)
			if !ok {
				t.Fatalf("record %s missing", id)
			}
			if record.Status == StatusSucceeded || record.Status == StatusFailed {
				return record
			}
		}
	}
}

func TestExportProducesArtifacts(t *testing.T) {
	store := blobmem.New()
	exp := NewExporter(&stubComparer{result: sampleResult()}, store, nil)
	exp.Start()
	defer exp.Stop(context.Background())

	queued, err := exp.Enqueue(context.Background(), Input{ScenarioA: "base", ScenarioB: "branch", RequestedBy: "tester"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if queued.Status != StatusQueued || len(queued.Formats) != 2 {
		t.Fatalf("queued record = %+v", queued)
	}

	record := waitForRecord(t, exp, queued.ID)
	if record.Status != StatusSucceeded {
		t.Fatalf("status = %s (%s)", record.Status, record.Error)
	}
	if len(record.Artifacts) != 2 {
		t.Fatalf("artifacts = %+v, want json and csv", record.Artifacts)
	}
	if record.CompletedAt == nil {
		t.Fatalf("completed timestamp not set")
	}

	for _, artifact := range record.Artifacts {
		info, rc, err := store.Open(context.Background(), artifact.Key)
		if err != nil {
			t.Fatalf("open %s: %v", artifact.Key, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", artifact.Key, err)
		}
		if int64(len(data)) != artifact.SizeBytes {
			t.Fatalf("%s size = %d, artifact says %d", artifact.Key, len(data), artifact.SizeBytes)
		}
		if info.Metadata["scenario_a"] != "base" || info.Metadata["scenario_b"] != "branch" {
			t.Fatalf("metadata = %v", info.Metadata)
		}

		switch artifact.Format {
		case FormatJSON:
			var decoded domain.ComparisonResult
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("json artifact: %v", err)
			}
			if decoded.ScenarioA != "base" || len(decoded.Differences) != 2 {
				t.Fatalf("json artifact content = %+v", decoded)
			}
		case FormatCSV:
			rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
			if err != nil {
				t.Fatalf("csv artifact: %v", err)
			}
			// Header plus one row per modified field and one per added entity.
			if len(rows) != 3 {
				t.Fatalf("csv rows = %v", rows)
			}
			if rows[1][4] != "allocation" || rows[1][5] != "50" || rows[1][6] != "75" {
				t.Fatalf("modified row = %v", rows[1])
			}
			if rows[2][1] != "bob" || rows[2][3] != "added" || rows[2][4] != "" {
				t.Fatalf("added row = %v", rows[2])
			}
		}
	}
}

func TestExportCompareFailure(t *testing.T) {
	exp := NewExporter(&stubComparer{err: errors.New("boom")}, blobmem.New(), nil)
	exp.Start()
	defer exp.Stop(context.Background())

	queued, err := exp.Enqueue(context.Background(), Input{ScenarioA: "base", ScenarioB: "branch"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	record := waitForRecord(t, exp, queued.ID)
	if record.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", record.Status)
	}
	if !strings.Contains(record.Error, "boom") {
		t.Fatalf("error = %q", record.Error)
	}
	if len(record.Artifacts) != 0 {
		t.Fatalf("failed export stored artifacts: %+v", record.Artifacts)
	}
}

func TestEnqueueValidation(t *testing.T) {
	exp := NewExporter(&stubComparer{result: sampleResult()}, blobmem.New(), nil)

	if _, err := exp.Enqueue(context.Background(), Input{ScenarioA: "", ScenarioB: "b"}); err == nil {
		t.Fatalf("expected error for missing scenario id")
	}
	if _, err := exp.Enqueue(context.Background(), Input{ScenarioA: "a", ScenarioB: "b", Formats: []Format{"pdf"}}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}

	queued, err := exp.Enqueue(context.Background(), Input{
		ScenarioA: "a", ScenarioB: "b",
		Formats: []Format{FormatCSV, FormatCSV, FormatJSON},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(queued.Formats) != 2 {
		t.Fatalf("formats = %v, want duplicates collapsed", queued.Formats)
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	exp := NewExporter(&stubComparer{result: sampleResult()}, blobmem.New(), nil)

	queued, err := exp.Enqueue(context.Background(), Input{ScenarioA: "a", ScenarioB: "b"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	snapshot, ok := exp.Get(queued.ID)
	if !ok {
		t.Fatalf("record missing")
	}
	snapshot.Formats[0] = "pdf"
	again, _ := exp.Get(queued.ID)
	if again.Formats[0] == "pdf" {
		t.Fatalf("Get exposed internal state")
	}
	if _, ok := exp.Get("nope"); ok {
		t.Fatalf("unknown id must not resolve")
	}
}
