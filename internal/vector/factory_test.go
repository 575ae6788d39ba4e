package vector

import (
	"testing"
)

func TestNewEngine_Memory(t *testing.T) {
	e, err := NewEngine("memory", 3)
	if err != nil {
		t.Fatalf("NewEngine(memory): %v", err)
	}
	defer e.Close()

	if err := e.Reserve(4); err != nil {
		t.Fatal(err)
	}
	if err := e.Add(1, []float32{1, 0, 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if e.Size() != 1 {
		t.Errorf("Size=%d, want 1", e.Size())
	}
	if _, ok := e.(*MemoryEngine); !ok {
		t.Errorf("expected *MemoryEngine, got %T", e)
	}
}

func TestNewEngine_DefaultIsHNSW(t *testing.T) {
	e, err := NewEngine("", 3)
	if err != nil {
		t.Fatalf("NewEngine(''): %v", err)
	}
	defer e.Close()

	if _, ok := e.(*HNSWEngine); !ok {
		t.Errorf("expected *HNSWEngine, got %T", e)
	}
	if e.Size() != 0 {
		t.Errorf("Size=%d, want 0", e.Size())
	}
}

func TestNewEngine_Unknown(t *testing.T) {
	_, err := NewEngine("faiss", 3)
	if err == nil {
		t.Error("expected error for unknown engine type")
	}
}

func TestNewEngine_InvalidDimension(t *testing.T) {
	for _, typ := range []string{"memory", "hnsw"} {
		if _, err := NewEngine(typ, 0); err == nil {
			t.Errorf("%s: expected error for zero dimension", typ)
		}
	}
}

func TestFactoryFor(t *testing.T) {
	e, err := FactoryFor("memory")(2)
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimensions() != 2 {
		t.Errorf("Dimensions=%d, want 2", e.Dimensions())
	}
}
