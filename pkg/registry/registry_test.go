package registry

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefineIfAbsent(t *testing.T) {
	r := New[int]()
	if !r.DefineIfAbsent("pdf-viewer", 1) {
		t.Fatal("first definition was rejected")
	}
	if r.DefineIfAbsent("pdf-viewer", 2) {
		t.Fatal("duplicate definition was accepted")
	}
	v, ok := r.Get("pdf-viewer")
	if !ok || v != 1 {
		t.Errorf("Get = %d, %v; want 1, true", v, ok)
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get of unknown name succeeded")
	}
}

func TestConcurrentDefine(t *testing.T) {
	r := New[int]()
	var wg sync.WaitGroup
	wins := make(chan int, 16)
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.DefineIfAbsent("toolbar", i) {
				wins <- i
			}
		}()
	}
	wg.Wait()
	close(wins)

	var n int
	for range wins {
		n++
	}
	if n != 1 {
		t.Errorf("%d goroutines won the definition, want 1", n)
	}
}

func TestNames(t *testing.T) {
	r := New[string]()
	r.DefineIfAbsent("b", "")
	r.DefineIfAbsent("a", "")
	r.DefineIfAbsent("c", "")
	if diff := cmp.Diff([]string{"a", "b", "c"}, r.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}
