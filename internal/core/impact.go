package core

import (
	"fmt"
	"sort"
	"time"

	"plancore/pkg/domain"
)

// defaultCapacity is assumed for people without an explicit capacity record.
const defaultCapacity = 100.0

// AnalyzeImpact derives utilization, timeline, and capacity metrics from a
// comparison. It is a pure function of the differences plus the two scenarios'
// effective assignment, person, project, and phase sets read through the same
// view the comparison used.
func AnalyzeImpact(view domain.TransactionView, result domain.ComparisonResult) (domain.ImpactReport, error) {
	assignA, err := decodeSet[domain.Assignment](view, result.ScenarioA, domain.EntityAssignment)
	if err != nil {
		return domain.ImpactReport{}, err
	}
	assignB, err := decodeSet[domain.Assignment](view, result.ScenarioB, domain.EntityAssignment)
	if err != nil {
		return domain.ImpactReport{}, err
	}
	people, err := decodeSet[domain.Person](view, result.ScenarioB, domain.EntityPerson)
	if err != nil {
		return domain.ImpactReport{}, err
	}
	projectsA, err := decodeSet[domain.Project](view, result.ScenarioA, domain.EntityProject)
	if err != nil {
		return domain.ImpactReport{}, err
	}
	projectsB, err := decodeSet[domain.Project](view, result.ScenarioB, domain.EntityProject)
	if err != nil {
		return domain.ImpactReport{}, err
	}
	phasesB, err := decodeSet[domain.ProjectPhase](view, result.ScenarioB, domain.EntityProjectPhase)
	if err != nil {
		return domain.ImpactReport{}, err
	}

	return domain.ImpactReport{
		Utilization: utilizationImpact(assignA, assignB, people),
		Timeline:    timelineImpact(result.Differences, assignB, phasesB, projectsB),
		Capacity:    capacityImpact(assignA, assignB, projectsA, projectsB),
	}, nil
}

func decodeSet[T any](view domain.TransactionView, scenarioID string, entityType domain.EntityType) (map[string]T, error) {
	raw, err := view.EffectiveSet(scenarioID, entityType)
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(raw))
	for id, payload := range raw {
		entity, ok := DecodePayload[T](payload)
		if !ok {
			return nil, fmt.Errorf("scenario %s: malformed %s payload for %s", scenarioID, entityType, id)
		}
		out[id] = entity
	}
	return out, nil
}

// utilizationImpact aggregates the percentage-point shift in total allocation
// per person and counts capacity crossings in both directions.
func utilizationImpact(assignA, assignB map[string]domain.Assignment, people map[string]domain.Person) domain.UtilizationImpact {
	totalsA := allocationTotals(assignA)
	totalsB := allocationTotals(assignB)

	impact := domain.UtilizationImpact{}
	for personID, totalB := range totalsB {
		totalA := totalsA[personID]
		if totalA == totalB {
			continue
		}
		if impact.ShiftByPerson == nil {
			impact.ShiftByPerson = make(map[string]float64)
		}
		impact.ShiftByPerson[personID] = totalB - totalA

		limit := personCapacity(people, personID)
		switch {
		case totalA <= limit && totalB > limit:
			impact.NewlyOverAllocated++
		case totalA > limit && totalB <= limit:
			impact.NoLongerOverAllocated++
		}
	}
	for personID, totalA := range totalsA {
		if _, ok := totalsB[personID]; ok {
			continue
		}
		if impact.ShiftByPerson == nil {
			impact.ShiftByPerson = make(map[string]float64)
		}
		impact.ShiftByPerson[personID] = -totalA
		if totalA > personCapacity(people, personID) {
			impact.NoLongerOverAllocated++
		}
	}
	return impact
}

func allocationTotals(assignments map[string]domain.Assignment) map[string]float64 {
	totals := make(map[string]float64)
	for _, a := range assignments {
		totals[a.PersonID] += a.Allocation
	}
	return totals
}

func personCapacity(people map[string]domain.Person, personID string) float64 {
	if p, ok := people[personID]; ok && p.Capacity > 0 {
		return p.Capacity
	}
	return defaultCapacity
}

// timelineImpact lists projects whose assignment or phase date ranges moved,
// and the subset whose resulting schedule overruns the project's target
// completion window.
func timelineImpact(diffs []domain.Difference, assignB map[string]domain.Assignment, phasesB map[string]domain.ProjectPhase, projectsB map[string]domain.Project) domain.TimelineImpact {
	changed := make(map[string]struct{})
	for _, diff := range diffs {
		switch diff.EntityType {
		case domain.EntityAssignment:
			if !datesTouched(diff) {
				continue
			}
			if a, ok := DecodePayload[domain.Assignment](pickPayload(diff)); ok && a.ProjectID != "" {
				changed[a.ProjectID] = struct{}{}
			}
		case domain.EntityProjectPhase:
			if !datesTouched(diff) {
				continue
			}
			if p, ok := DecodePayload[domain.ProjectPhase](pickPayload(diff)); ok && p.ProjectID != "" {
				changed[p.ProjectID] = struct{}{}
			}
		}
	}
	if len(changed) == 0 {
		return domain.TimelineImpact{}
	}

	impact := domain.TimelineImpact{ChangedProjects: sortedKeys(changed)}
	for _, projectID := range impact.ChangedProjects {
		project, ok := projectsB[projectID]
		if !ok {
			continue
		}
		start, end, found := scheduleSpan(projectID, assignB, phasesB)
		if !found {
			continue
		}
		if end.After(project.TargetEnd) || start.Before(project.TargetStart) {
			impact.AtRiskProjects = append(impact.AtRiskProjects, projectID)
		}
	}
	return impact
}

// datesTouched reports whether a difference moved a date range. Added and
// removed entries always count; modified entries count only when a date field
// is among the changed fields.
func datesTouched(diff domain.Difference) bool {
	if diff.Kind != domain.DiffModified {
		return true
	}
	for _, change := range diff.Fields {
		if change.Field == "start_date" || change.Field == "end_date" {
			return true
		}
	}
	return false
}

func pickPayload(diff domain.Difference) []byte {
	if diff.New != nil {
		return diff.New
	}
	return diff.Old
}

func scheduleSpan(projectID string, assignments map[string]domain.Assignment, phases map[string]domain.ProjectPhase) (time.Time, time.Time, bool) {
	var start, end time.Time
	found := false
	extend := func(s, e time.Time) {
		if !found {
			start, end = s, e
			found = true
			return
		}
		if s.Before(start) {
			start = s
		}
		if e.After(end) {
			end = e
		}
	}
	for _, a := range assignments {
		if a.ProjectID == projectID {
			extend(a.StartDate, a.EndDate)
		}
	}
	for _, p := range phases {
		if p.ProjectID == projectID {
			extend(p.StartDate, p.EndDate)
		}
	}
	return start, end, found
}

// capacityImpact reports roles whose assigned allocation no longer covers the
// aggregate demand declared by projects, counting only shortfalls introduced
// by the diff.
func capacityImpact(assignA, assignB map[string]domain.Assignment, projectsA, projectsB map[string]domain.Project) domain.CapacityImpact {
	shortA := roleShortfalls(assignA, projectsA)
	shortB := roleShortfalls(assignB, projectsB)

	var impact domain.CapacityImpact
	roles := make([]string, 0, len(shortB))
	for role := range shortB {
		if _, already := shortA[role]; !already {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)
	for _, role := range roles {
		impact.Shortfalls = append(impact.Shortfalls, shortB[role])
	}
	return impact
}

func roleShortfalls(assignments map[string]domain.Assignment, projects map[string]domain.Project) map[string]domain.RoleShortfall {
	demand := make(map[string]float64)
	for _, p := range projects {
		for role, pct := range p.RoleDemand {
			demand[role] += pct
		}
	}
	assigned := make(map[string]float64)
	for _, a := range assignments {
		assigned[a.Role] += a.Allocation
	}
	out := make(map[string]domain.RoleShortfall)
	for role, required := range demand {
		if assigned[role] < required {
			out[role] = domain.RoleShortfall{Role: role, Demand: required, Assigned: assigned[role]}
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
