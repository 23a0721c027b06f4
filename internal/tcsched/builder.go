package tcsched

import (
	"fmt"
	"sync"

	"github.com/pktsched/pktsched/pkg/config"
	"github.com/pktsched/pktsched/pkg/errors"
)

// TrafficClassBuilder is a process-wide registry of traffic-class nodes,
// indexed by the unique name each was created with. It exists so that
// config-driven tree construction and ad-hoc test trees share the same
// duplicate-name and lookup semantics: a name is a global handle, not a
// pointer the caller must thread through the program.
type TrafficClassBuilder struct {
	mu    sync.Mutex
	nodes map[string]node
}

// NewTrafficClassBuilder creates an empty registry.
func NewTrafficClassBuilder() *TrafficClassBuilder {
	return &TrafficClassBuilder{nodes: make(map[string]node)}
}

func (b *TrafficClassBuilder) register(n node) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.nodes[n.Name()]; exists {
		return errors.Wrap(errors.CodeDuplicateName, fmt.Sprintf("traffic class %q already registered", n.Name()), nil)
	}
	b.nodes[n.Name()] = n
	return nil
}

// Find looks up a previously created node by name.
func (b *TrafficClassBuilder) Find(name string) (node, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[name]
	return n, ok
}

// Clear detaches and forgets the named node, returning an UnknownChild error
// if it is not registered. It does not recursively clear descendants: the
// caller is expected to Clear the whole subtree bottom-up, mirroring the
// source's per-node removal contract.
func (b *TrafficClassBuilder) Clear(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[name]
	if !ok {
		return errors.Wrap(errors.CodeUnknownChild, fmt.Sprintf("traffic class %q not registered", name), nil)
	}
	if parent := n.Parent(); parent != nil {
		parent.RemoveChild(n)
	}
	delete(b.nodes, name)
	return nil
}

// ClearAll drops the entire registry without touching tree linkage, so
// names can be reused across independent simulation runs without colliding.
func (b *TrafficClassBuilder) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nodes = make(map[string]node)
}

// Len reports how many nodes are currently registered.
func (b *TrafficClassBuilder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.nodes)
}

// TaskFactory builds a CallableTask for a leaf, given the leaf's declarative
// config.NodeConfig.Task identifier and the leaf's whole config.NodeConfig
// (which carries its name). CreateTree calls this
// once per "leaf"-policy node in the tree it builds.
type TaskFactory func(taskName string, node config.NodeConfig) (CallableTask, error)

// CreateTree builds and registers an entire tree from declarative
// configuration, returning its root. tscHz parameterizes any rate-limit
// node's token-bucket conversion. factory resolves each leaf's Task field
// to a concrete CallableTask.
func (b *TrafficClassBuilder) CreateTree(root config.NodeConfig, tscHz uint64, factory TaskFactory) (node, error) {
	return b.createNode(root, tscHz, factory)
}

func (b *TrafficClassBuilder) createNode(nc config.NodeConfig, tscHz uint64, factory TaskFactory) (node, error) {
	if nc.Name == "" {
		return nil, errors.New(errors.CodeOutOfEnvelope, "node config missing name")
	}

	var n node
	switch nc.Policy {
	case "priority":
		n = NewPriorityTrafficClass(nc.Name)
	case "weighted_fair":
		res, ok := ResourceByName(nc.Resource)
		if !ok {
			return nil, errors.New(errors.CodeOutOfEnvelope, fmt.Sprintf("node %q: unknown resource %q", nc.Name, nc.Resource))
		}
		n = NewWeightedFairTrafficClass(nc.Name, res)
	case "round_robin":
		n = NewRoundRobinTrafficClass(nc.Name)
	case "rate_limit":
		res, ok := ResourceByName(nc.Resource)
		if !ok {
			return nil, errors.New(errors.CodeOutOfEnvelope, fmt.Sprintf("node %q: unknown resource %q", nc.Name, nc.Resource))
		}
		if len(nc.Children) != 1 {
			return nil, errors.New(errors.CodeOutOfEnvelope, fmt.Sprintf("node %q: rate_limit requires exactly one child", nc.Name))
		}
		n = NewRateLimitTrafficClass(nc.Name, res, nc.Limit, nc.MaxBurst, tscHz)
	case "leaf":
		task, err := factory(nc.Task, nc)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nc.Name, err)
		}
		n = NewLeafTrafficClass(nc.Name, task)
	default:
		return nil, errors.New(errors.CodeOutOfEnvelope, fmt.Sprintf("node %q: unknown policy %q", nc.Name, nc.Policy))
	}

	if err := b.register(n); err != nil {
		return nil, err
	}

	if nc.Policy == "leaf" {
		if len(nc.Children) != 0 {
			return nil, errors.New(errors.CodeLeafAddChild, fmt.Sprintf("node %q: leaf cannot have children", nc.Name))
		}
		return n, nil
	}

	for _, childCfg := range nc.Children {
		child, err := b.createNode(childCfg, tscHz, factory)
		if err != nil {
			return nil, err
		}
		var attachErr error
		switch parent := n.(type) {
		case *PriorityTrafficClass:
			attachErr = parent.AddChild(child, childCfg.Priority)
		case *WeightedFairTrafficClass:
			attachErr = parent.AddChild(child, childCfg.Share)
		case *RoundRobinTrafficClass:
			attachErr = parent.AddChild(child)
		case *RateLimitTrafficClass:
			attachErr = parent.SetChild(child)
		}
		if attachErr != nil {
			return nil, fmt.Errorf("node %q: attaching child %q: %w", nc.Name, childCfg.Name, attachErr)
		}
	}

	return n, nil
}
