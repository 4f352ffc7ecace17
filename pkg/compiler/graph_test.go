package compiler

import "testing"

func TestNewNdaGraphSeedsStartAndEnd(t *testing.T) {
	g := NewNdaGraph()

	if g.Nodes[g.Entry].Kind != NodeKindStart {
		t.Errorf("expected entry node to be Start, got %s", g.Nodes[g.Entry].Kind)
	}
	if g.Nodes[g.Exit].Kind != NodeKindEnd {
		t.Errorf("expected exit node to be End, got %s", g.Nodes[g.Exit].Kind)
	}
	if g.Entry == g.Exit {
		t.Error("entry and exit must be distinct nodes")
	}
}

func TestAddEdgeRejectsNonLoopCycle(t *testing.T) {
	g := NewNdaGraph()
	a := g.AddNode(&GraphNode{Kind: NodeKindTerminal, Action: "a"})
	b := g.AddNode(&GraphNode{Kind: NodeKindTerminal, Action: "b"})

	if err := g.AddEdge(a, b); err != nil {
		t.Fatalf("unexpected error on forward edge: %v", err)
	}
	if err := g.AddEdge(b, a); err == nil {
		t.Error("expected cycle error when closing a -> b -> a through plain terminals")
	}
}

func TestAddEdgeAllowsLoopBackEdge(t *testing.T) {
	g := NewNdaGraph()
	body := g.AddNode(&GraphNode{Kind: NodeKindTerminal, Action: "step"})
	loopExit := g.AddNode(&GraphNode{Kind: NodeKindLoopExit})
	loopEntry := g.AddNode(&GraphNode{Kind: NodeKindLoopEntry, BodyStart: body, Min: 0, Max: 3})

	if err := g.AddEdge(loopEntry, body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddEdge(body, loopEntry); err != nil {
		t.Errorf("expected back-edge through LoopEntry to be allowed, got: %v", err)
	}
	if err := g.AddEdge(loopEntry, loopExit); err != nil {
		t.Errorf("unexpected error on loop exit edge: %v", err)
	}
}

func TestAddEdgeRejectsUnknownNodes(t *testing.T) {
	g := NewNdaGraph()
	if err := g.AddEdge(999, g.Exit); err == nil {
		t.Error("expected error for edge from unknown node")
	}
	if err := g.AddEdge(g.Entry, 999); err == nil {
		t.Error("expected error for edge to unknown node")
	}
}
