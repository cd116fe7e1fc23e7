// Package reports renders comparison results into shareable artifacts and
// stores them through the blob layer. Export runs asynchronously; callers
// enqueue a request and poll the returned record id.
package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"plancore/internal/blob"
	"plancore/pkg/domain"
)

// Format selects an artifact encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Status describes the lifecycle stage of an export request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Artifact captures one stored report artifact.
type Artifact struct {
	Key         string    `json:"key"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record tracks an export request and its resulting artifacts.
type Record struct {
	ID          string     `json:"id"`
	ScenarioA   string     `json:"scenario_a"`
	ScenarioB   string     `json:"scenario_b"`
	Formats     []Format   `json:"formats"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Artifacts   []Artifact `json:"artifacts,omitempty"`
	RequestedBy string     `json:"requested_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Input represents an enqueue request for the exporter.
type Input struct {
	ScenarioA   string
	ScenarioB   string
	Formats     []Format
	RequestedBy string
}

// Comparer produces the comparison a report is rendered from. Satisfied by
// the core service.
type Comparer interface {
	CompareScenarios(ctx context.Context, aID, bID string) (domain.ComparisonResult, error)
}

// Exporter executes report exports asynchronously.
type Exporter struct {
	comparer Comparer
	store    blob.Store
	logger   *slog.Logger

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Record

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	id    string
	input Input
}

// NewExporter constructs a report exporter. A nil logger discards output.
func NewExporter(comparer Comparer, store blob.Store, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Exporter{
		comparer: comparer,
		store:    store,
		logger:   logger,
		queue:    make(chan task, 32),
		jobs:     make(map[string]*Record),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing export requests.
func (e *Exporter) Start() {
	e.wg.Add(1)
	go e.loop()
}

// Stop signals the exporter to halt and waits for completion.
func (e *Exporter) Stop(ctx context.Context) error {
	e.cancel()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Exporter) loop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case t := <-e.queue:
			e.process(t)
		}
	}
}

// Enqueue schedules an export job and returns the queued record.
func (e *Exporter) Enqueue(ctx context.Context, input Input) (Record, error) {
	if input.ScenarioA == "" || input.ScenarioB == "" {
		return Record{}, fmt.Errorf("both scenario ids required")
	}
	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	uniq := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{})
	for _, f := range formats {
		if f != FormatJSON && f != FormatCSV {
			return Record{}, fmt.Errorf("unsupported report format %s", f)
		}
		if _, dup := seen[f]; dup {
			continue
		}
		uniq = append(uniq, f)
		seen[f] = struct{}{}
	}

	now := time.Now().UTC()
	record := Record{
		ID:          uuid.NewString(),
		ScenarioA:   input.ScenarioA,
		ScenarioB:   input.ScenarioB,
		Formats:     uniq,
		Status:      StatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	e.mu.Lock()
	e.jobs[record.ID] = &record
	queued := record.copy()
	e.mu.Unlock()

	select {
	case e.queue <- task{id: record.ID, input: input}:
	default:
		e.mu.Lock()
		delete(e.jobs, record.ID)
		e.mu.Unlock()
		return Record{}, fmt.Errorf("export queue full")
	}
	return queued, nil
}

// Get returns a snapshot of the export record.
func (e *Exporter) Get(id string) (Record, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	record, ok := e.jobs[id]
	if !ok {
		return Record{}, false
	}
	return record.copy(), true
}

func (e *Exporter) process(t task) {
	e.setStatus(t.id, StatusRunning, "")

	result, err := e.comparer.CompareScenarios(e.ctx, t.input.ScenarioA, t.input.ScenarioB)
	if err != nil {
		e.fail(t.id, fmt.Sprintf("compare scenarios: %v", err))
		return
	}

	e.mu.RLock()
	formats := append([]Format(nil), e.jobs[t.id].Formats...)
	e.mu.RUnlock()

	artifacts := make([]Artifact, 0, len(formats))
	for _, format := range formats {
		payload, contentType, err := render(format, result)
		if err != nil {
			e.fail(t.id, err.Error())
			return
		}
		key := fmt.Sprintf("reports/%s/comparison.%s", t.id, format)
		info, err := e.store.Put(e.ctx, key, bytes.NewReader(payload), blob.PutOptions{
			ContentType: contentType,
			Metadata: map[string]string{
				"scenario_a": result.ScenarioA,
				"scenario_b": result.ScenarioB,
			},
		})
		if err != nil {
			e.fail(t.id, fmt.Sprintf("store artifact: %v", err))
			return
		}
		artifacts = append(artifacts, Artifact{
			Key:         info.Key,
			Format:      format,
			ContentType: contentType,
			SizeBytes:   info.Size,
			CreatedAt:   info.LastModified,
		})
	}
	e.complete(t.id, artifacts)
	e.logger.Info("report export complete", "id", t.id, "artifacts", len(artifacts))
}

func (e *Exporter) setStatus(id string, status Status, message string) {
	now := time.Now().UTC()
	e.mu.Lock()
	if record, ok := e.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
	}
	e.mu.Unlock()
}

func (e *Exporter) complete(id string, artifacts []Artifact) {
	now := time.Now().UTC()
	e.mu.Lock()
	if record, ok := e.jobs[id]; ok {
		record.Status = StatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	e.mu.Unlock()
}

func (e *Exporter) fail(id, reason string) {
	now := time.Now().UTC()
	e.mu.Lock()
	if record, ok := e.jobs[id]; ok {
		record.Status = StatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	e.mu.Unlock()
	e.logger.Warn("report export failed", "id", id, "reason", reason)
}

func render(format Format, result domain.ComparisonResult) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshal json: %w", err)
		}
		return payload, "application/json", nil
	case FormatCSV:
		buf := &bytes.Buffer{}
		w := csv.NewWriter(buf)
		if err := w.Write([]string{"entity_type", "entity_id", "entity_name", "kind", "field", "old", "new"}); err != nil {
			return nil, "", err
		}
		for _, diff := range result.Differences {
			if diff.Kind != domain.DiffModified {
				row := []string{string(diff.EntityType), diff.EntityID, diff.EntityName, string(diff.Kind), "", "", ""}
				if err := w.Write(row); err != nil {
					return nil, "", err
				}
				continue
			}
			for _, fc := range diff.Fields {
				row := []string{string(diff.EntityType), diff.EntityID, diff.EntityName, string(diff.Kind), fc.Field, formatValue(fc.Old), formatValue(fc.New)}
				if err := w.Write(row); err != nil {
					return nil, "", err
				}
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported report format %s", format)
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

func (r Record) copy() Record {
	dup := r
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}
	return dup
}
