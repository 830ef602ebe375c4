package resourcemap

import (
	"testing"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
)

func newTestMap() *ResourceMap {
	r := New(nil)
	r.AddNode(&model.Node{ID: "n1", GPUType: "A100", GPUCount: 4, LeaseCostPerHour: 10, Remaining: 4})
	r.AddNode(&model.Node{ID: "n2", GPUType: "A100", GPUCount: 2, LeaseCostPerHour: 5, Remaining: 2})
	return r
}

func TestAssignBestFit(t *testing.T) {
	r := newTestMap()

	id, ok := r.Assign("A100", 2, 1, false, "")
	if !ok {
		t.Fatal("expected assignment to succeed")
	}
	if id != "n2" {
		t.Fatalf("Assign picked %q, want best-fit node n2 (smallest remaining that still fits)", id)
	}

	n2, found := r.FindNode("n2")
	if !found || n2.Remaining != 0 {
		t.Fatalf("n2 remaining = %+v, want 0 remaining", n2)
	}
	if len(r.OpenNodes("A100")) != 1 || r.OpenNodes("A100")[0].ID != "n1" {
		t.Fatalf("expected only n1 left open, got %+v", r.OpenNodes("A100"))
	}
	if len(r.FullNodes("A100")) != 1 || r.FullNodes("A100")[0].ID != "n2" {
		t.Fatalf("expected n2 in full partition, got %+v", r.FullNodes("A100"))
	}
}

func TestAssignNoCapacityFails(t *testing.T) {
	r := newTestMap()
	if _, ok := r.Assign("A100", 8, 1, false, ""); ok {
		t.Fatal("expected assignment to fail: no node has 8 GPUs")
	}
	if _, ok := r.Assign("V100", 1, 1, false, ""); ok {
		t.Fatal("expected assignment to fail: unknown GPU type")
	}
}

func TestAssignAndReleaseRoundTrip(t *testing.T) {
	r := newTestMap()
	id, ok := r.Assign("A100", 2, 1, false, "")
	if !ok {
		t.Fatal("assign failed")
	}
	r.Release([]ReleaseItem{{NodeID: id, GPUType: "A100", GPUCount: 2, GPUFraction: 1}})

	n2, _ := r.FindNode("n2")
	if n2.Remaining != 2 {
		t.Fatalf("after release, remaining = %d, want 2", n2.Remaining)
	}
	if len(r.FullNodes("A100")) != 0 {
		t.Fatalf("expected no full nodes after release, got %+v", r.FullNodes("A100"))
	}
}

func TestAssignSharedGPUFraction(t *testing.T) {
	r := newTestMap()

	id1, ok := r.Assign("A100", 1, 0.5, false, "n1")
	if !ok {
		t.Fatal("first shared assign failed")
	}
	nodeID, idx, hasIdx := ParseComposite(id1)
	if nodeID != "n1" || !hasIdx || idx != 0 {
		t.Fatalf("ParseComposite(%q) = (%q, %d, %v), want (n1, 0, true)", id1, nodeID, idx, hasIdx)
	}

	gpus := r.SharedGPUsDescending("A100")
	if len(gpus) != 1 || gpus[0].RemainingFraction != 0.5 {
		t.Fatalf("expected one shared GPU at 0.5 remaining, got %+v", gpus)
	}

	id2, ok := r.Assign("A100", 1, 0.5, false, "n1")
	if !ok {
		t.Fatal("second shared assign (filling the same GPU) failed")
	}
	if id2 != id1 {
		t.Fatalf("expected second 0.5 fraction to land on the same shared GPU, got %q vs %q", id2, id1)
	}
	if len(r.SharedGPUsDescending("A100")) != 0 {
		t.Fatalf("expected shared GPU to be fully subscribed and removed from the open list")
	}
}

func TestReleaseUnknownIsNoOp(t *testing.T) {
	r := newTestMap()
	r.Release([]ReleaseItem{{NodeID: "ghost", GPUType: "A100", GPUCount: 1, GPUFraction: 1}})
	if len(r.OpenNodes("A100")) != 2 {
		t.Fatalf("release of unknown node mutated state: %+v", r.OpenNodes("A100"))
	}
}

func TestCloseAllResetsCapacity(t *testing.T) {
	r := newTestMap()
	r.Assign("A100", 2, 1, false, "n2")
	r.Assign("A100", 1, 0.5, false, "n1")

	r.CloseAll()

	if len(r.FullNodes("A100")) != 0 {
		t.Fatalf("expected no full nodes after CloseAll, got %+v", r.FullNodes("A100"))
	}
	if len(r.SharedGPUsDescending("A100")) != 0 {
		t.Fatalf("expected shared GPU state cleared after CloseAll")
	}
	for _, n := range r.OpenNodes("A100") {
		if n.Remaining != n.GPUCount {
			t.Fatalf("node %s remaining = %d, want full %d after CloseAll", n.ID, n.Remaining, n.GPUCount)
		}
	}
}

func TestComputeNodeCost(t *testing.T) {
	r := New(nil)
	r.AddNode(&model.Node{ID: "n1", GPUType: "A100", GPUCount: 1, LeaseCostPerHour: 3600, Remaining: 1})
	if got := r.ComputeNodeCost(1); got != 1 {
		t.Fatalf("ComputeNodeCost(1s) = %v, want 1 (3600/hr charged per second)", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := newTestMap()
	c := r.Clone()

	c.Assign("A100", 2, 1, false, "n2")

	if len(r.FullNodes("A100")) != 0 {
		t.Fatal("mutating the clone affected the original ResourceMap")
	}
	if len(c.FullNodes("A100")) != 1 {
		t.Fatal("clone's own assignment did not take effect")
	}
}

func TestOpenNodesOrderingInvariant(t *testing.T) {
	r := New(nil)
	r.AddNode(&model.Node{ID: "b", GPUType: "A100", GPUCount: 4, Remaining: 2})
	r.AddNode(&model.Node{ID: "a", GPUType: "A100", GPUCount: 4, Remaining: 2})
	r.AddNode(&model.Node{ID: "c", GPUType: "A100", GPUCount: 4, Remaining: 1})

	open := r.OpenNodes("A100")
	want := []string{"c", "a", "b"}
	for i, n := range open {
		if n.ID != want[i] {
			t.Fatalf("open nodes order = %v, want remaining-asc-then-id-asc %v", idsOf(open), want)
		}
	}
}

func idsOf(nodes []*model.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
