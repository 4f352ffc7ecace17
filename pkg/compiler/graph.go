package compiler

import (
	"fmt"

	"github.com/ajhcs/beacon/pkg/ir"
)

// NodeID identifies a node within an NdaGraph.
type NodeID uint32

// GraphNodeKind tags the six node shapes a lowered protocol tree can
// contain.
type GraphNodeKind string

const (
	NodeKindStart     GraphNodeKind = "start"
	NodeKindEnd       GraphNodeKind = "end"
	NodeKindTerminal  GraphNodeKind = "terminal"
	NodeKindBranch    GraphNodeKind = "branch"
	NodeKindLoopEntry GraphNodeKind = "loop_entry"
	NodeKindLoopExit  GraphNodeKind = "loop_exit"
)

// GraphNode is one node of the non-deterministic automaton graph a protocol
// tree lowers into.
type GraphNode struct {
	Kind GraphNodeKind

	// Terminal
	Action string
	Guard  *ir.Expr

	// Branch
	Alternatives []BranchEdge

	// LoopEntry
	BodyStart NodeID
	Min       uint32
	Max       uint32

	// LoopExit pairs back to the LoopEntry it closes.
	EntryNode NodeID
}

// BranchEdge is one weighted, optionally guarded alternative leaving a
// Branch node.
type BranchEdge struct {
	ID     string
	Weight uint32
	Target NodeID
	Guard  *ir.Expr
}

// NdaGraph is the exploration graph one protocol compiles into: a single
// entry node, a single exit node, and the node/edge tables the traversal
// engine walks.
type NdaGraph struct {
	Entry NodeID
	Exit  NodeID
	Nodes map[NodeID]*GraphNode
	Edges map[NodeID][]NodeID

	nextID NodeID
}

// NewNdaGraph constructs a graph pre-seeded with its Start and End nodes,
// so every graph has exactly one entry and one exit by construction.
func NewNdaGraph() *NdaGraph {
	g := &NdaGraph{
		Nodes: make(map[NodeID]*GraphNode),
		Edges: make(map[NodeID][]NodeID),
	}
	g.Entry = g.AddNode(&GraphNode{Kind: NodeKindStart})
	g.Exit = g.AddNode(&GraphNode{Kind: NodeKindEnd})
	return g
}

// AddNode allocates a new node id for node and stores it.
func (g *NdaGraph) AddNode(node *GraphNode) NodeID {
	id := g.nextID
	g.nextID++
	g.Nodes[id] = node
	return id
}

// AddEdge records a directed edge from -> to. It rejects edges that would
// close a cycle unless either endpoint is a LoopEntry/LoopExit node, since
// only bounded repeat constructs may legitimately revisit a node.
func (g *NdaGraph) AddEdge(from, to NodeID) error {
	fromNode, ok := g.Nodes[from]
	if !ok {
		return fmt.Errorf("edge from unknown node %d", from)
	}
	toNode, ok := g.Nodes[to]
	if !ok {
		return fmt.Errorf("edge to unknown node %d", to)
	}

	if g.reaches(to, from) {
		isLoopEdge := fromNode.Kind == NodeKindLoopExit || fromNode.Kind == NodeKindLoopEntry ||
			toNode.Kind == NodeKindLoopEntry || toNode.Kind == NodeKindLoopExit
		if !isLoopEdge {
			return fmt.Errorf("edge %d -> %d closes a cycle through a non-repeat construct", from, to)
		}
	}

	g.Edges[from] = append(g.Edges[from], to)
	return nil
}

// reaches reports whether to is reachable from from via existing edges,
// used only for the cycle check in AddEdge.
func (g *NdaGraph) reaches(from, to NodeID) bool {
	if from == to {
		return true
	}
	visited := map[NodeID]bool{from: true}
	stack := []NodeID{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range g.Edges[n] {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}
