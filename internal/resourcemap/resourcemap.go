// Package resourcemap owns the cluster model: nodes grouped by GPU type, the
// fractional-GPU sub-map, and the open/full node partition. It supplies the
// placement and release operations the scheduling engine and simulator use
// to reserve and free capacity.
package resourcemap

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
)

// ResourceMap maintains, per GPU type, the open/full node partition and the
// shared-GPU sub-maps. It is not safe for concurrent use; callers hold it
// mutably for the duration of one scheduling step (see package simulator).
type ResourceMap struct {
	openByType map[string][]*model.Node
	fullByType map[string][]*model.Node

	sharedGPUs     map[string][]*model.SharedGPU
	fullSharedGPUs map[string][]*model.SharedGPU

	// gpuIndexCounter hands out fresh within-node GPU indices when a whole
	// GPU is first split into a shared GPU. Keyed by node ID.
	gpuIndexCounter map[string]int

	log *zap.SugaredLogger
}

// New creates an empty ResourceMap. A nil logger disables logging.
func New(log *zap.SugaredLogger) *ResourceMap {
	return &ResourceMap{
		openByType:      make(map[string][]*model.Node),
		fullByType:      make(map[string][]*model.Node),
		sharedGPUs:      make(map[string][]*model.SharedGPU),
		fullSharedGPUs:  make(map[string][]*model.SharedGPU),
		gpuIndexCounter: make(map[string]int),
		log:             log,
	}
}

// AddNode registers a node as open. Nodes are never destroyed afterwards;
// they only move between the open and full partitions.
func (r *ResourceMap) AddNode(n *model.Node) {
	r.openByType[n.GPUType] = insertSorted(r.openByType[n.GPUType], n)
}

// GPUTypes returns the set of GPU types known to the map.
func (r *ResourceMap) GPUTypes() []string {
	seen := make(map[string]bool)
	var types []string
	for t := range r.openByType {
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	for t := range r.fullByType {
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	sort.Strings(types)
	return types
}

// OpenNodes returns the open nodes of the given GPU type, in their
// canonical (remaining asc, id asc) order. Callers must not mutate the
// returned slice.
func (r *ResourceMap) OpenNodes(gpuType string) []*model.Node {
	return r.openByType[gpuType]
}

// FullNodes returns the full nodes of the given GPU type.
func (r *ResourceMap) FullNodes(gpuType string) []*model.Node {
	return r.fullByType[gpuType]
}

// SharedGPUsDescending returns the open shared GPUs of the given type,
// sorted by descending remaining fraction.
func (r *ResourceMap) SharedGPUsDescending(gpuType string) []*model.SharedGPU {
	return r.sharedGPUs[gpuType]
}

func insertSorted(nodes []*model.Node, n *model.Node) []*model.Node {
	pos := sort.Search(len(nodes), func(i int) bool { return !nodes[i].Less(n) })
	nodes = append(nodes, nil)
	copy(nodes[pos+1:], nodes[pos:])
	nodes[pos] = n
	return nodes
}

func removeNode(nodes []*model.Node, id string) ([]*model.Node, *model.Node) {
	for i, n := range nodes {
		if n.ID == id {
			removed := n
			nodes = append(nodes[:i], nodes[i+1:]...)
			return nodes, removed
		}
	}
	return nodes, nil
}

func insertSharedSorted(gpus []*model.SharedGPU, g *model.SharedGPU) []*model.SharedGPU {
	pos := sort.Search(len(gpus), func(i int) bool { return gpus[i].RemainingFraction <= g.RemainingFraction })
	gpus = append(gpus, nil)
	copy(gpus[pos+1:], gpus[pos:])
	gpus[pos] = g
	return gpus
}

func removeSharedGPU(gpus []*model.SharedGPU, nodeID string, idx int) ([]*model.SharedGPU, *model.SharedGPU) {
	for i, g := range gpus {
		if g.NodeID == nodeID && g.GPUIndex == idx {
			removed := g
			gpus = append(gpus[:i], gpus[i+1:]...)
			return gpus, removed
		}
	}
	return gpus, nil
}

// compositeID renders the "node_id[_gpu_index]" id assign returns: plain
// node id for whole-GPU assignments, node id + shared-GPU index otherwise.
func compositeID(nodeID string, gpuIndex int, shared bool) string {
	if !shared {
		return nodeID
	}
	return nodeID + "_" + strconv.Itoa(gpuIndex)
}

// ParseComposite splits a composite id back into its node id and, when
// present, the shared-GPU index.
func ParseComposite(id string) (nodeID string, gpuIndex int, hasIndex bool) {
	idx := strings.LastIndex(id, "_")
	if idx < 0 {
		return id, 0, false
	}
	if n, err := strconv.Atoi(id[idx+1:]); err == nil {
		return id[:idx], n, true
	}
	return id, 0, false
}

// Assign reserves capacity for a (gpuType, g, f) setup, optionally pinned to
// a specific node, optionally forcing the node fully closed regardless of
// remaining count (unique). It returns the composite assigned id and true
// on success, or ("", false) if no node/shared GPU could accommodate the
// request.
func (r *ResourceMap) Assign(gpuType string, g int, f float64, unique bool, nodeID string) (string, bool) {
	if f < 1 {
		if id, ok := r.assignSharedGPU(gpuType, f, nodeID); ok {
			return id, true
		}
	}

	nodes := r.openByType[gpuType]
	var chosen *model.Node
	if nodeID != "" {
		for _, n := range nodes {
			if n.ID == nodeID && n.Remaining >= g {
				chosen = n
				break
			}
		}
	} else {
		pos := sort.Search(len(nodes), func(i int) bool { return nodes[i].Remaining >= g })
		if pos < len(nodes) {
			chosen = nodes[pos]
		}
	}
	if chosen == nil {
		return "", false
	}

	r.openByType[gpuType], _ = removeNode(r.openByType[gpuType], chosen.ID)
	chosen.Remaining -= g

	gpuIdx := 0
	shared := false
	if f < 1 {
		gpuIdx = r.gpuIndexCounter[chosen.ID]
		r.gpuIndexCounter[chosen.ID]++
		sg := &model.SharedGPU{RemainingFraction: 1 - f, NodeID: chosen.ID, GPUIndex: gpuIdx}
		if sg.RemainingFraction <= 0 {
			r.fullSharedGPUs[gpuType] = append(r.fullSharedGPUs[gpuType], sg)
		} else {
			r.sharedGPUs[gpuType] = insertSharedSorted(r.sharedGPUs[gpuType], sg)
		}
		shared = true
	}

	if chosen.Remaining == 0 || unique {
		r.fullByType[gpuType] = append(r.fullByType[gpuType], chosen)
	} else {
		r.openByType[gpuType] = insertSorted(r.openByType[gpuType], chosen)
	}

	if r.log != nil {
		r.log.Debugw("assigned GPU capacity", "gpuType", gpuType, "count", g, "fraction", f, "node", chosen.ID)
	}
	return compositeID(chosen.ID, gpuIdx, shared), true
}

// assignSharedGPU tries to slot a fractional request into an existing
// shared GPU with remaining capacity >= f, matching nodeID when given.
func (r *ResourceMap) assignSharedGPU(gpuType string, f float64, nodeID string) (string, bool) {
	gpus := r.sharedGPUs[gpuType]
	for i, sg := range gpus {
		if sg.RemainingFraction+1e-9 < f {
			continue
		}
		if nodeID != "" && sg.NodeID != nodeID {
			continue
		}
		sg.RemainingFraction -= f
		id := compositeID(sg.NodeID, sg.GPUIndex, true)
		rest := append(append([]*model.SharedGPU{}, gpus[:i]...), gpus[i+1:]...)
		if sg.RemainingFraction <= 1e-9 {
			r.sharedGPUs[gpuType] = rest
			r.fullSharedGPUs[gpuType] = append(r.fullSharedGPUs[gpuType], sg)
		} else {
			r.sharedGPUs[gpuType] = insertSharedSorted(rest, sg)
		}
		return id, true
	}
	return "", false
}

// ReleaseItem names one job's resource claim to give back.
type ReleaseItem struct {
	NodeID      string
	GPUType     string
	GPUCount    int
	GPUFraction float64
	GPUIndex    int
	Shared      bool
}

// Release gives back the resources held by the given items. Releasing an
// unknown (node, gpu) pair is a silent no-op.
func (r *ResourceMap) Release(items []ReleaseItem) {
	for _, it := range items {
		r.releaseOne(it)
	}
}

func (r *ResourceMap) releaseOne(it ReleaseItem) {
	if it.Shared || it.GPUFraction < 1 {
		gpus, sg := removeSharedGPU(r.fullSharedGPUs[it.GPUType], it.NodeID, it.GPUIndex)
		if sg != nil {
			r.fullSharedGPUs[it.GPUType] = gpus
		} else {
			gpus, sg = removeSharedGPU(r.sharedGPUs[it.GPUType], it.NodeID, it.GPUIndex)
			if sg != nil {
				r.sharedGPUs[it.GPUType] = gpus
			}
		}
		if sg == nil {
			if r.log != nil {
				r.log.Debugw("release: unknown shared GPU, ignoring", "node", it.NodeID, "gpuType", it.GPUType, "idx", it.GPUIndex)
			}
			return
		}
		sg.RemainingFraction += it.GPUFraction
		if sg.RemainingFraction >= 1-1e-9 {
			r.releaseWholeGPU(it.GPUType, it.NodeID, 1)
			return
		}
		r.sharedGPUs[it.GPUType] = insertSharedSorted(r.sharedGPUs[it.GPUType], sg)
		return
	}
	r.releaseWholeGPU(it.GPUType, it.NodeID, it.GPUCount)
}

func (r *ResourceMap) releaseWholeGPU(gpuType, nodeID string, count int) {
	if nodes, n := removeNode(r.fullByType[gpuType], nodeID); n != nil {
		r.fullByType[gpuType] = nodes
		n.Remaining += count
		r.openByType[gpuType] = insertSorted(r.openByType[gpuType], n)
		return
	}
	if nodes, n := removeNode(r.openByType[gpuType], nodeID); n != nil {
		n.Remaining += count
		r.openByType[gpuType] = insertSorted(nodes, n)
		return
	}
	if r.log != nil {
		r.log.Debugw("release: unknown node, ignoring", "node", nodeID, "gpuType", gpuType)
	}
}

// CloseAll merges full nodes back into open, resets used counts to zero and
// drops all shared-GPU state, keeping lease ordering (i.e. the merged set is
// re-sorted by the canonical order).
func (r *ResourceMap) CloseAll() {
	for t, nodes := range r.fullByType {
		for _, n := range nodes {
			n.Remaining = n.GPUCount
			r.openByType[t] = insertSorted(r.openByType[t], n)
		}
	}
	for t, nodes := range r.openByType {
		for _, n := range nodes {
			n.Remaining = n.GPUCount
		}
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].Less(nodes[j]) })
	}
	r.fullByType = make(map[string][]*model.Node)
	r.sharedGPUs = make(map[string][]*model.SharedGPU)
	r.fullSharedGPUs = make(map[string][]*model.SharedGPU)
	r.gpuIndexCounter = make(map[string]int)
}

// UsedGPUs returns the number of whole GPUs currently in use on the given
// node (searching full, then open).
func (r *ResourceMap) UsedGPUs(gpuType, nodeID string) int {
	for _, n := range r.fullByType[gpuType] {
		if n.ID == nodeID {
			return n.GPUCount - n.Remaining
		}
	}
	for _, n := range r.openByType[gpuType] {
		if n.ID == nodeID {
			return n.GPUCount - n.Remaining
		}
	}
	return 0
}

// ComputeNodeCost sums lease cost across every node (open and full) for the
// given elapsed time.
func (r *ResourceMap) ComputeNodeCost(elapsedSeconds float64) float64 {
	var total float64
	for _, nodes := range r.openByType {
		for _, n := range nodes {
			total += n.LeaseCostPerHour * elapsedSeconds / 3600
		}
	}
	for _, nodes := range r.fullByType {
		for _, n := range nodes {
			total += n.LeaseCostPerHour * elapsedSeconds / 3600
		}
	}
	return total
}

// FindNode looks up a node by id across both partitions, regardless of GPU
// type.
func (r *ResourceMap) FindNode(id string) (*model.Node, bool) {
	for _, nodes := range r.openByType {
		for _, n := range nodes {
			if n.ID == id {
				return n, true
			}
		}
	}
	for _, nodes := range r.fullByType {
		for _, n := range nodes {
			if n.ID == id {
				return n, true
			}
		}
	}
	return nil, false
}

// Clone returns a deep, independent copy of the ResourceMap. LocalSearch
// operates exclusively on clones, and construction clones the map it is
// given, so the Simulator's master map is never assigned against.
func (r *ResourceMap) Clone() *ResourceMap {
	c := New(r.log)
	for t, nodes := range r.openByType {
		for _, n := range nodes {
			c.openByType[t] = append(c.openByType[t], n.Clone())
		}
	}
	for t, nodes := range r.fullByType {
		for _, n := range nodes {
			c.fullByType[t] = append(c.fullByType[t], n.Clone())
		}
	}
	for t, gpus := range r.sharedGPUs {
		for _, g := range gpus {
			c.sharedGPUs[t] = append(c.sharedGPUs[t], g.Clone())
		}
	}
	for t, gpus := range r.fullSharedGPUs {
		for _, g := range gpus {
			c.fullSharedGPUs[t] = append(c.fullSharedGPUs[t], g.Clone())
		}
	}
	for k, v := range r.gpuIndexCounter {
		c.gpuIndexCounter[k] = v
	}
	return c
}

// AssertInvariants panics if the map's internal bookkeeping has become
// inconsistent: a node listed twice across a type's open and full
// partitions, open nodes out of order, or an open shared GPU whose
// remaining fraction lies outside [0, 1]. Nothing on the scheduling path
// calls it.
func (r *ResourceMap) AssertInvariants() {
	for _, t := range r.GPUTypes() {
		seen := make(map[string]bool)
		for _, n := range r.openByType[t] {
			if seen[n.ID] {
				panic(fmt.Sprintf("resourcemap: duplicate node %s in open+full for type %s", n.ID, t))
			}
			seen[n.ID] = true
		}
		for _, n := range r.fullByType[t] {
			if seen[n.ID] {
				panic(fmt.Sprintf("resourcemap: duplicate node %s in open+full for type %s", n.ID, t))
			}
			seen[n.ID] = true
		}
		open := r.openByType[t]
		for i := 1; i < len(open); i++ {
			if open[i-1].Less(open[i]) == false && open[i].Less(open[i-1]) {
				panic(fmt.Sprintf("resourcemap: open nodes for %s not sorted at index %d", t, i))
			}
		}
		for _, g := range r.sharedGPUs[t] {
			if g.RemainingFraction < -1e-9 || g.RemainingFraction > 1+1e-9 {
				panic(fmt.Sprintf("resourcemap: shared GPU %s_%d out of range: %f", g.NodeID, g.GPUIndex, g.RemainingFraction))
			}
		}
	}
}
