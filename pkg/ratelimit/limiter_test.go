package ratelimit

import "testing"

func TestNilPoolAllowsEverything(t *testing.T) {
	var p *Pool
	for i := 0; i < 100; i++ {
		if !p.Allow("x") {
			t.Fatalf("nil pool denied a request")
		}
	}
}

func TestPoolLimitsPerKey(t *testing.T) {
	p := NewPool(1, 2)
	if !p.Allow("a") || !p.Allow("a") {
		t.Fatalf("burst denied")
	}
	if p.Allow("a") {
		t.Fatalf("third immediate request allowed past burst of 2")
	}
	// other keys have their own bucket
	if !p.Allow("b") {
		t.Fatalf("fresh key denied")
	}
}

func TestNewPoolDisabled(t *testing.T) {
	if NewPool(0, 10) != nil {
		t.Fatalf("rps 0 should disable the pool")
	}
	if NewPool(-1, 10) != nil {
		t.Fatalf("negative rps should disable the pool")
	}
}
