package core

import (
	"context"
	"testing"

	"plancore/pkg/domain"
)

func comparisonImpact(t *testing.T, svc *Service, aID, bID string) domain.ImpactReport {
	t.Helper()
	result, err := svc.CompareScenarios(context.Background(), aID, bID)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	return result.Impact
}

func TestUtilizationShiftAndCapacityCrossings(t *testing.T) {
	svc := newTestService(t)
	baseline := mustBaseline(t, svc)
	mustPut(t, svc, baseline.ID, domain.EntityPerson, "alice", domain.Person{ID: "alice", Name: "Alice", Role: "engineer", Capacity: 100})
	mustPut(t, svc, baseline.ID, domain.EntityPerson, "bob", domain.Person{ID: "bob", Name: "Bob", Role: "engineer", Capacity: 100})

	a1 := testAssignment("a1", 60)
	mustPut(t, svc, baseline.ID, domain.EntityAssignment, "a1", a1)
	a2 := testAssignment("a2", 120)
	a2.PersonID = "bob"
	mustPut(t, svc, baseline.ID, domain.EntityAssignment, "a2", a2)

	branch := mustBranch(t, svc, baseline.ID, "rebalance")
	// alice goes from 60 to 110, crossing her capacity.
	a3 := testAssignment("a3", 50)
	mustPut(t, svc, branch.ID, domain.EntityAssignment, "a3", a3)
	// bob's overallocated assignment disappears entirely.
	if _, err := svc.RemoveEntity(context.Background(), branch.ID, domain.EntityAssignment, "a2", "tester", ""); err != nil {
		t.Fatalf("remove a2: %v", err)
	}

	impact := comparisonImpact(t, svc, baseline.ID, branch.ID)
	util := impact.Utilization
	if got := util.ShiftByPerson["alice"]; got != 50 {
		t.Fatalf("alice shift = %v, want +50", got)
	}
	if got := util.ShiftByPerson["bob"]; got != -120 {
		t.Fatalf("bob shift = %v, want -120", got)
	}
	if util.NewlyOverAllocated != 1 {
		t.Fatalf("newly over-allocated = %d, want 1", util.NewlyOverAllocated)
	}
	if util.NoLongerOverAllocated != 1 {
		t.Fatalf("no longer over-allocated = %d, want 1", util.NoLongerOverAllocated)
	}
}

func TestUtilizationDefaultCapacity(t *testing.T) {
	svc := newTestService(t)
	baseline := mustBaseline(t, svc)
	// carol has no person record; the default 100 capacity applies.
	a1 := testAssignment("a1", 90)
	a1.PersonID = "carol"
	mustPut(t, svc, baseline.ID, domain.EntityAssignment, "a1", a1)

	branch := mustBranch(t, svc, baseline.ID, "stretch")
	a2 := testAssignment("a2", 20)
	a2.PersonID = "carol"
	mustPut(t, svc, branch.ID, domain.EntityAssignment, "a2", a2)

	impact := comparisonImpact(t, svc, baseline.ID, branch.ID)
	if impact.Utilization.NewlyOverAllocated != 1 {
		t.Fatalf("newly over-allocated = %d, want 1", impact.Utilization.NewlyOverAllocated)
	}
}

func TestTimelineFlagsOverrunningProjects(t *testing.T) {
	svc := newTestService(t)
	baseline := mustBaseline(t, svc)
	mustPut(t, svc, baseline.ID, domain.EntityProject, "apollo", domain.Project{
		ID: "apollo", Name: "Apollo", Status: "active",
		TargetStart: day(4, 1), TargetEnd: day(6, 30),
	})
	mustPut(t, svc, baseline.ID, domain.EntityAssignment, "a1", testAssignment("a1", 50))

	branch := mustBranch(t, svc, baseline.ID, "slip")
	slipped := testAssignment("a1", 50)
	slipped.EndDate = day(7, 15)
	mustPut(t, svc, branch.ID, domain.EntityAssignment, "a1", slipped)

	impact := comparisonImpact(t, svc, baseline.ID, branch.ID)
	tl := impact.Timeline
	if len(tl.ChangedProjects) != 1 || tl.ChangedProjects[0] != "apollo" {
		t.Fatalf("changed projects = %v, want [apollo]", tl.ChangedProjects)
	}
	if len(tl.AtRiskProjects) != 1 || tl.AtRiskProjects[0] != "apollo" {
		t.Fatalf("at-risk projects = %v, want [apollo]", tl.AtRiskProjects)
	}
}

func TestTimelineIgnoresNonDateChanges(t *testing.T) {
	svc := newTestService(t)
	baseline := mustBaseline(t, svc)
	mustPut(t, svc, baseline.ID, domain.EntityProject, "apollo", domain.Project{
		ID: "apollo", Name: "Apollo", Status: "active",
		TargetStart: day(4, 1), TargetEnd: day(6, 30),
	})
	mustPut(t, svc, baseline.ID, domain.EntityAssignment, "a1", testAssignment("a1", 50))

	branch := mustBranch(t, svc, baseline.ID, "bump")
	mustPut(t, svc, branch.ID, domain.EntityAssignment, "a1", testAssignment("a1", 80))

	impact := comparisonImpact(t, svc, baseline.ID, branch.ID)
	if len(impact.Timeline.ChangedProjects) != 0 {
		t.Fatalf("changed projects = %v, want none for allocation-only change", impact.Timeline.ChangedProjects)
	}
}

func TestTimelinePhaseMoveWithinWindow(t *testing.T) {
	svc := newTestService(t)
	baseline := mustBaseline(t, svc)
	mustPut(t, svc, baseline.ID, domain.EntityProject, "apollo", domain.Project{
		ID: "apollo", Name: "Apollo", Status: "active",
		TargetStart: day(4, 1), TargetEnd: day(6, 30),
	})
	mustPut(t, svc, baseline.ID, domain.EntityProjectPhase, "ph1", domain.ProjectPhase{
		ID: "ph1", ProjectID: "apollo", Name: "build",
		StartDate: day(4, 1), EndDate: day(5, 1),
	})

	branch := mustBranch(t, svc, baseline.ID, "shuffle")
	mustPut(t, svc, branch.ID, domain.EntityProjectPhase, "ph1", domain.ProjectPhase{
		ID: "ph1", ProjectID: "apollo", Name: "build",
		StartDate: day(4, 15), EndDate: day(5, 15),
	})

	impact := comparisonImpact(t, svc, baseline.ID, branch.ID)
	tl := impact.Timeline
	if len(tl.ChangedProjects) != 1 || tl.ChangedProjects[0] != "apollo" {
		t.Fatalf("changed projects = %v, want [apollo]", tl.ChangedProjects)
	}
	if len(tl.AtRiskProjects) != 0 {
		t.Fatalf("at-risk projects = %v, want none while schedule fits the window", tl.AtRiskProjects)
	}
}

func TestCapacityReportsOnlyNewShortfalls(t *testing.T) {
	svc := newTestService(t)
	baseline := mustBaseline(t, svc)
	mustPut(t, svc, baseline.ID, domain.EntityProject, "apollo", domain.Project{
		ID: "apollo", Name: "Apollo", Status: "active",
		TargetStart: day(4, 1), TargetEnd: day(6, 30),
		RoleDemand: map[string]float64{"engineer": 100, "designer": 50},
	})
	// engineer demand is covered; designer demand is short in both scenarios.
	mustPut(t, svc, baseline.ID, domain.EntityAssignment, "a1", testAssignment("a1", 100))

	branch := mustBranch(t, svc, baseline.ID, "cut")
	if _, err := svc.RemoveEntity(context.Background(), branch.ID, domain.EntityAssignment, "a1", "tester", ""); err != nil {
		t.Fatalf("remove a1: %v", err)
	}

	impact := comparisonImpact(t, svc, baseline.ID, branch.ID)
	shortfalls := impact.Capacity.Shortfalls
	if len(shortfalls) != 1 {
		t.Fatalf("shortfalls = %+v, want exactly the engineer gap", shortfalls)
	}
	sf := shortfalls[0]
	if sf.Role != "engineer" || sf.Demand != 100 || sf.Assigned != 0 {
		t.Fatalf("shortfall = %+v, want engineer 100 demanded 0 assigned", sf)
	}
}
