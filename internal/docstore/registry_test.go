package docstore

import (
	"fmt"
	"sync"
	"testing"
)

func TestMemoryRegistry_LastWriteWins(t *testing.T) {
	r := NewMemoryRegistry()

	if _, ok := r.Lookup("id"); ok {
		t.Fatal("empty registry should miss")
	}

	r.Remember("id", "first.pdf")
	r.Remember("id", "second.pdf")

	name, ok := r.Lookup("id")
	if !ok || name != "second.pdf" {
		t.Errorf("Lookup() = %q, %v, want second.pdf", name, ok)
	}
}

func TestMemoryRegistry_Concurrent(t *testing.T) {
	r := NewMemoryRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Remember(fmt.Sprintf("doc-%d", i%4), fmt.Sprintf("name-%d.pdf", i))
			r.Lookup("doc-0")
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		if _, ok := r.Lookup(fmt.Sprintf("doc-%d", i)); !ok {
			t.Errorf("doc-%d missing", i)
		}
	}
}
