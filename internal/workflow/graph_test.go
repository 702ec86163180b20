package workflow

import (
	"context"
	"strings"
	"testing"
)

func noopNode(_ context.Context, _ State) (Update, error) {
	return Update{}, nil
}

func TestCompileValidGraph(t *testing.T) {
	b := NewBuilder()
	b.AddNode("a", noopNode)
	b.AddNode("b", noopNode)
	b.AddNode("c", noopNode)
	b.SetEntryPoint("a")
	b.AddEdge("a", "b")
	b.AddRouter("b", func(_ State) string { return "c" }, "c", End)
	b.SetFinishPoint("c")

	if _, err := b.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
}

func TestCompileRejectsMissingEntryPoint(t *testing.T) {
	b := NewBuilder()
	b.AddNode("a", noopNode)
	if _, err := b.Compile(); err == nil {
		t.Fatal("expected error for missing entry point")
	}
}

func TestCompileRejectsUnknownEntryPoint(t *testing.T) {
	b := NewBuilder()
	b.AddNode("a", noopNode)
	b.SetEntryPoint("missing")
	if _, err := b.Compile(); err == nil {
		t.Fatal("expected error for unknown entry point")
	}
}

func TestCompileRejectsEdgeToUnknownNode(t *testing.T) {
	b := NewBuilder()
	b.AddNode("a", noopNode)
	b.SetEntryPoint("a")
	b.AddEdge("a", "ghost")
	if _, err := b.Compile(); err == nil {
		t.Fatal("expected error for edge to unknown node")
	}
}

func TestCompileRejectsEdgeFromUnknownNode(t *testing.T) {
	b := NewBuilder()
	b.AddNode("a", noopNode)
	b.SetEntryPoint("a")
	b.AddEdge("ghost", "a")
	if _, err := b.Compile(); err == nil {
		t.Fatal("expected error for edge from unknown node")
	}
}

func TestCompileRejectsRouterTargetingUnknownNode(t *testing.T) {
	b := NewBuilder()
	b.AddNode("a", noopNode)
	b.SetEntryPoint("a")
	b.AddRouter("a", func(_ State) string { return "ghost" }, "ghost")
	_, err := b.Compile()
	if err == nil {
		t.Fatal("expected error for router targeting unknown node")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("error = %v", err)
	}
}

func TestCompileRejectsNodeWithEdgesAndRouter(t *testing.T) {
	b := NewBuilder()
	b.AddNode("a", noopNode)
	b.AddNode("b", noopNode)
	b.SetEntryPoint("a")
	b.AddEdge("a", "b")
	b.AddRouter("a", func(_ State) string { return "b" }, "b")
	b.SetFinishPoint("b")
	if _, err := b.Compile(); err == nil {
		t.Fatal("expected error for node with both edges and router")
	}
}

func TestCompileRejectsDuplicateNode(t *testing.T) {
	b := NewBuilder()
	b.AddNode("a", noopNode)
	b.AddNode("a", noopNode)
	b.SetEntryPoint("a")
	if _, err := b.Compile(); err == nil {
		t.Fatal("expected error for duplicate node")
	}
}
