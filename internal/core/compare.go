package core

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"plancore/pkg/domain"
)

// Compare computes the structural diff between the effective entity sets of
// two scenarios observed through one consistent view. Differences are
// expressed relative to scenario a: an entity present only in b is added, one
// present only in a is removed. The two scenarios need no common ancestor;
// every entity type resolves independently.
func Compare(ctx context.Context, view domain.TransactionView, aID, bID string) (domain.ComparisonResult, error) {
	if _, ok := view.GetScenario(aID); !ok {
		return domain.ComparisonResult{}, domain.ErrNotFound{Kind: "scenario", ID: aID}
	}
	if _, ok := view.GetScenario(bID); !ok {
		return domain.ComparisonResult{}, domain.ErrNotFound{Kind: "scenario", ID: bID}
	}

	perType := make([][]domain.Difference, len(domain.EntityTypes))
	g, _ := errgroup.WithContext(ctx)
	for i, entityType := range domain.EntityTypes {
		i, entityType := i, entityType
		g.Go(func() error {
			diffs, err := diffEntityType(view, entityType, aID, bID)
			if err != nil {
				return err
			}
			perType[i] = diffs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.ComparisonResult{}, err
	}

	result := domain.ComparisonResult{
		ScenarioA:   aID,
		ScenarioB:   bID,
		GeneratedAt: time.Now().UTC(),
	}
	result.Summary.ByEntityType = make(map[domain.EntityType]domain.KindCounts)
	for i, entityType := range domain.EntityTypes {
		counts := domain.KindCounts{}
		for _, diff := range perType[i] {
			switch diff.Kind {
			case domain.DiffAdded:
				counts.Added++
			case domain.DiffRemoved:
				counts.Removed++
			case domain.DiffModified:
				counts.Modified++
			}
		}
		if counts.Total() > 0 {
			result.Summary.ByEntityType[entityType] = counts
		}
		result.Summary.Added += counts.Added
		result.Summary.Removed += counts.Removed
		result.Summary.Modified += counts.Modified
		result.Differences = append(result.Differences, perType[i]...)
	}
	return result, nil
}

// diffEntityType diffs one entity type across the union of ids from both
// effective sets, in sorted id order.
func diffEntityType(view domain.TransactionView, entityType domain.EntityType, aID, bID string) ([]domain.Difference, error) {
	setA, err := view.EffectiveSet(aID, entityType)
	if err != nil {
		return nil, err
	}
	setB, err := view.EffectiveSet(bID, entityType)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(setA)+len(setB))
	seen := make(map[string]struct{}, len(setA)+len(setB))
	for id := range setA {
		ids = append(ids, id)
		seen[id] = struct{}{}
	}
	for id := range setB {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var diffs []domain.Difference
	for _, id := range ids {
		rawA, inA := setA[id]
		rawB, inB := setB[id]
		switch {
		case inB && !inA:
			diffs = append(diffs, domain.Difference{
				EntityType: entityType,
				EntityID:   id,
				EntityName: entityName(rawB, id),
				Kind:       domain.DiffAdded,
				New:        rawB,
			})
		case inA && !inB:
			diffs = append(diffs, domain.Difference{
				EntityType: entityType,
				EntityID:   id,
				EntityName: entityName(rawA, id),
				Kind:       domain.DiffRemoved,
				Old:        rawA,
			})
		default:
			fields, err := diffFields(entityType, rawA, rawB)
			if err != nil {
				return nil, err
			}
			if len(fields) == 0 {
				continue
			}
			diffs = append(diffs, domain.Difference{
				EntityType: entityType,
				EntityID:   id,
				EntityName: entityName(rawB, id),
				Kind:       domain.DiffModified,
				Fields:     fields,
				Old:        rawA,
				New:        rawB,
			})
		}
	}
	return diffs, nil
}
