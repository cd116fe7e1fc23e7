package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"plancore/pkg/domain"
)

// Service exposes the scenario versioning engine to the rest of the
// application: branch lifecycle, overlay edits, structural comparison, merge,
// and history. Callers address scenarios by explicit id on every call; the
// engine holds no notion of a current branch.
type Service struct {
	store   domain.PersistentStore
	logger  *slog.Logger
	metrics MetricsRecorder
	tracer  Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithTracer attaches a tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: noopMetrics{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

func (s *Service) observe(ctx context.Context, operation string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	return ctx, func(err error) {
		span.End(err)
		s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
		if err != nil {
			s.logger.Warn(operation+" failed", "error", err)
		} else {
			s.logger.Debug(operation + " ok")
		}
	}
}

// CreateBaseline creates the single root scenario. It fails once a baseline
// exists.
func (s *Service) CreateBaseline(ctx context.Context, name, description, author string) (domain.Scenario, error) {
	ctx, done := s.observe(ctx, "create_baseline")
	var created domain.Scenario
	err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateScenario(domain.Scenario{
			Name:        name,
			Description: description,
			Kind:        domain.KindBaseline,
			CreatedBy:   author,
		})
		return err
	})
	done(err)
	return created, err
}

// CreateBranchRequest carries the parameters of a branch or sandbox creation.
type CreateBranchRequest struct {
	Name           string
	Description    string
	BaseScenarioID string
	// Kind defaults to branch; sandbox is the only other accepted value.
	Kind   domain.ScenarioKind
	Author string
}

// CreateBranch forks a new scenario off an existing active base. No entity
// data is copied; the branch starts byte-for-byte equivalent to its base.
func (s *Service) CreateBranch(ctx context.Context, req CreateBranchRequest) (domain.Scenario, error) {
	ctx, done := s.observe(ctx, "create_branch")
	kind := req.Kind
	if kind == "" {
		kind = domain.KindBranch
	}
	var created domain.Scenario
	err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		base := req.BaseScenarioID
		var err error
		created, err = tx.CreateScenario(domain.Scenario{
			Name:        req.Name,
			Description: req.Description,
			Kind:        kind,
			ParentID:    &base,
			CreatedBy:   req.Author,
		})
		return err
	})
	done(err)
	return created, err
}

// ListBranches returns every branch and sandbox scenario.
func (s *Service) ListBranches(ctx context.Context) ([]domain.Scenario, error) {
	_, done := s.observe(ctx, "list_branches")
	branches := s.store.ListScenarios(domain.ScenarioFilter{Kind: domain.KindBranch})
	branches = append(branches, s.store.ListScenarios(domain.ScenarioFilter{Kind: domain.KindSandbox})...)
	done(nil)
	return branches, nil
}

// ListScenarios returns scenarios matching the filter.
func (s *Service) ListScenarios(ctx context.Context, filter domain.ScenarioFilter) ([]domain.Scenario, error) {
	_, done := s.observe(ctx, "list_scenarios")
	out := s.store.ListScenarios(filter)
	done(nil)
	return out, nil
}

// GetScenario retrieves one scenario.
func (s *Service) GetScenario(ctx context.Context, id string) (domain.Scenario, error) {
	_, done := s.observe(ctx, "get_scenario")
	sc, ok := s.store.GetScenario(id)
	var err error
	if !ok {
		err = domain.ErrNotFound{Kind: "scenario", ID: id}
	}
	done(err)
	return sc, err
}

// ArchiveScenario moves a scenario to archived; its overlay entries remain
// available for comparisons.
func (s *Service) ArchiveScenario(ctx context.Context, id string) (domain.Scenario, error) {
	ctx, done := s.observe(ctx, "archive_scenario")
	var archived domain.Scenario
	err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		archived, err = tx.ArchiveScenario(id)
		return err
	})
	done(err)
	return archived, err
}

// PutEntity records an addition or modification of one entity in the
// scenario's overlay. The entity value is serialized as the overlay payload.
func (s *Service) PutEntity(ctx context.Context, scenarioID string, entityType domain.EntityType, entityID string, entity any, author, message string) (domain.OverlayEntry, error) {
	ctx, done := s.observe(ctx, "put_entity")
	payload, err := json.Marshal(entity)
	if err != nil {
		err = fmt.Errorf("encode %s payload: %w", entityType, err)
		done(err)
		return domain.OverlayEntry{}, err
	}
	var entry domain.OverlayEntry
	err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		entry, err = tx.PutOverlay(scenarioID, entityType, entityID, payload, author, message)
		return err
	})
	done(err)
	return entry, err
}

// RemoveEntity records the deletion of one entity in the scenario's overlay
// via a tombstone; ancestor values stay untouched but become invisible from
// this scenario.
func (s *Service) RemoveEntity(ctx context.Context, scenarioID string, entityType domain.EntityType, entityID, author, message string) (domain.OverlayEntry, error) {
	ctx, done := s.observe(ctx, "remove_entity")
	var entry domain.OverlayEntry
	err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		entry, err = tx.RemoveOverlay(scenarioID, entityType, entityID, author, message)
		return err
	})
	done(err)
	return entry, err
}

// ResolveEntity returns the effective value of one entity as seen from the
// scenario.
func (s *Service) ResolveEntity(ctx context.Context, scenarioID string, entityType domain.EntityType, entityID string) (domain.Resolution, error) {
	ctx, done := s.observe(ctx, "resolve_entity")
	var res domain.Resolution
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		var err error
		res, err = view.Resolve(scenarioID, entityType, entityID)
		return err
	})
	done(err)
	return res, err
}

// EffectiveEntities returns every entity of the given type visible from the
// scenario, keyed by id.
func (s *Service) EffectiveEntities(ctx context.Context, scenarioID string, entityType domain.EntityType) (map[string]json.RawMessage, error) {
	ctx, done := s.observe(ctx, "effective_entities")
	var out map[string]json.RawMessage
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		var err error
		out, err = view.EffectiveSet(scenarioID, entityType)
		return err
	})
	done(err)
	return out, err
}

// CompareScenarios computes the structural diff between two scenarios and
// attaches derived impact metrics. Both scenarios and their full ancestor
// chains are observed at a single consistent instant.
func (s *Service) CompareScenarios(ctx context.Context, aID, bID string) (domain.ComparisonResult, error) {
	ctx, done := s.observe(ctx, "compare_scenarios")
	var result domain.ComparisonResult
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		var err error
		result, err = Compare(ctx, view, aID, bID)
		if err != nil {
			return err
		}
		result.Impact, err = AnalyzeImpact(view, result)
		return err
	})
	done(err)
	return result, err
}

// MergeBranch folds the branch's overlay onto its parent and marks the branch
// merged. Returned warnings surface parent divergence; the fold itself is
// strictly branch-wins.
func (s *Service) MergeBranch(ctx context.Context, branchID, author string) (domain.Scenario, []domain.MergeWarning, error) {
	ctx, done := s.observe(ctx, "merge_branch")
	var merged domain.Scenario
	var warnings []domain.MergeWarning
	err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		merged, warnings, err = tx.MergeScenario(branchID, author)
		return err
	})
	done(err)
	if err != nil {
		return domain.Scenario{}, nil, err
	}
	for _, w := range warnings {
		s.logger.Warn("merge warning", "branch", branchID, "code", w.Code, "detail", w.Message)
	}
	return merged, warnings, nil
}

// History returns commit records matching the filter, newest first.
func (s *Service) History(ctx context.Context, filter domain.HistoryFilter) ([]domain.CommitRecord, error) {
	_, done := s.observe(ctx, "history")
	out := s.store.History(filter)
	done(nil)
	return out, nil
}

// SeedCanonical installs a canonical baseline record. Intended for data
// import and fixtures; scenario edits go through PutEntity.
func (s *Service) SeedCanonical(ctx context.Context, entityType domain.EntityType, entityID string, entity any) error {
	ctx, done := s.observe(ctx, "seed_canonical")
	payload, err := json.Marshal(entity)
	if err != nil {
		err = fmt.Errorf("encode %s payload: %w", entityType, err)
		done(err)
		return err
	}
	err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.SeedCanonical(entityType, entityID, payload)
	})
	done(err)
	return err
}
