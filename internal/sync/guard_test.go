package sync

import (
	"sync"
	"testing"
)

func TestGuard(t *testing.T) {
	t.Run("second begin is refused until end", func(t *testing.T) {
		var g Guard
		if !g.Begin() {
			t.Fatal("first Begin must succeed")
		}
		if g.Begin() {
			t.Fatal("Begin while held must fail")
		}
		if !g.Active() {
			t.Fatal("guard must report active while held")
		}
		g.End()
		if g.Active() {
			t.Fatal("guard must clear on End")
		}
		if !g.Begin() {
			t.Fatal("Begin after End must succeed")
		}
	})

	t.Run("only one concurrent claimant wins", func(t *testing.T) {
		var g Guard
		var wg sync.WaitGroup
		wins := make(chan struct{}, 32)
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if g.Begin() {
					wins <- struct{}{}
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
			t.Fatalf("expected exactly one winner, got %d", n)
		}
	})
}
