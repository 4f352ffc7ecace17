package compiler

import (
	"fmt"

	"github.com/ajhcs/beacon/pkg/ir"
)

// CompileProtocol lowers a protocol's tree into an NDA graph: Seq chains its
// children's entry/exit pairs, Alt fans out to a branch node and converges
// on a join, Repeat wraps its body with a bounded loop entry/exit pair and
// back-edge, Call wraps a single action in a terminal node, and Ref inlines
// the referenced protocol's root recursively.
func CompileProtocol(protocol *ir.Protocol, allProtocols map[string]ir.Protocol) (*NdaGraph, error) {
	graph := NewNdaGraph()
	visiting := map[string]bool{}

	bodyEntry, bodyExit, err := compileNode(&protocol.Root, allProtocols, graph, visiting)
	if err != nil {
		return nil, err
	}
	if err := graph.AddEdge(graph.Entry, bodyEntry); err != nil {
		return nil, err
	}
	if err := graph.AddEdge(bodyExit, graph.Exit); err != nil {
		return nil, err
	}
	return graph, nil
}

// compileNode compiles one protocol tree node, returning the (entry, exit)
// node id pair of the subgraph it lowers into.
func compileNode(node *ir.ProtocolNode, allProtocols map[string]ir.Protocol, graph *NdaGraph, visiting map[string]bool) (NodeID, NodeID, error) {
	switch node.Type {
	case ir.NodeCall:
		id := graph.AddNode(&GraphNode{Kind: NodeKindTerminal, Action: node.Action})
		return id, id, nil

	case ir.NodeSeq:
		if len(node.Children) == 0 {
			id := graph.AddNode(&GraphNode{Kind: NodeKindStart})
			return id, id, nil
		}

		var firstEntry, prevExit NodeID
		haveEntry := false
		haveExit := false

		for i := range node.Children {
			entry, exit, err := compileNode(&node.Children[i], allProtocols, graph, visiting)
			if err != nil {
				return 0, 0, err
			}
			if !haveEntry {
				firstEntry = entry
				haveEntry = true
			}
			if haveExit {
				if err := graph.AddEdge(prevExit, entry); err != nil {
					return 0, 0, err
				}
			}
			prevExit = exit
			haveExit = true
		}
		return firstEntry, prevExit, nil

	case ir.NodeAlt:
		join := graph.AddNode(&GraphNode{Kind: NodeKindStart})

		alternatives := make([]BranchEdge, 0, len(node.Branches))
		for i := range node.Branches {
			branch := &node.Branches[i]
			bodyEntry, bodyExit, err := compileNode(&branch.Body, allProtocols, graph, visiting)
			if err != nil {
				return 0, 0, err
			}
			if err := graph.AddEdge(bodyExit, join); err != nil {
				return 0, 0, err
			}

			alternatives = append(alternatives, BranchEdge{
				ID:     branch.ID,
				Weight: branch.Weight,
				Target: bodyEntry,
				Guard:  branch.Guard,
			})
		}

		branchID := graph.AddNode(&GraphNode{Kind: NodeKindBranch, Alternatives: alternatives})
		return branchID, join, nil

	case ir.NodeRepeat:
		bodyEntry, bodyExit, err := compileNode(node.Body, allProtocols, graph, visiting)
		if err != nil {
			return 0, 0, err
		}
		loopExit := graph.AddNode(&GraphNode{Kind: NodeKindLoopExit})
		loopEntry := graph.AddNode(&GraphNode{
			Kind:      NodeKindLoopEntry,
			BodyStart: bodyEntry,
			Min:       node.Min,
			Max:       node.Max,
		})
		graph.Nodes[loopExit].EntryNode = loopEntry

		if err := graph.AddEdge(loopEntry, bodyEntry); err != nil {
			return 0, 0, err
		}
		if err := graph.AddEdge(bodyExit, loopEntry); err != nil {
			return 0, 0, err
		}
		if err := graph.AddEdge(loopEntry, loopExit); err != nil {
			return 0, 0, err
		}

		return loopEntry, loopExit, nil

	case ir.NodeRef:
		if visiting[node.ProtocolRef] {
			return 0, 0, fmt.Errorf("protocol %q references itself through an unbounded ref cycle", node.ProtocolRef)
		}
		referenced, ok := allProtocols[node.ProtocolRef]
		if !ok {
			return 0, 0, fmt.Errorf("unknown protocol reference: %q", node.ProtocolRef)
		}
		visiting[node.ProtocolRef] = true
		entry, exit, err := compileNode(&referenced.Root, allProtocols, graph, visiting)
		delete(visiting, node.ProtocolRef)
		return entry, exit, err

	default:
		return 0, 0, fmt.Errorf("unknown protocol node type %q", node.Type)
	}
}
