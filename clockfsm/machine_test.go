package clockfsm

import "testing"

type counter struct{ n int }

func TestFireAppliesActionAndMovesState(t *testing.T) {
	m := New[*counter](Idle)
	m.AddTransition(Transition[*counter]{
		From: Idle, Trigger: TriggerRun, To: Running,
		Action: func(c *counter) { c.n++ },
	})

	c := &counter{}
	if !m.Fire(c, TriggerRun) {
		t.Fatal("expected transition to fire")
	}
	if m.State() != Running {
		t.Fatalf("state = %v, want Running", m.State())
	}
	if c.n != 1 {
		t.Fatalf("action ran %d times, want 1", c.n)
	}
}

func TestFireReturnsFalseWhenNoTransitionMatches(t *testing.T) {
	m := New[*counter](Idle)
	m.AddTransition(Transition[*counter]{From: Running, Trigger: TriggerStop, To: Stopped})

	c := &counter{}
	if m.Fire(c, TriggerStop) {
		t.Fatal("expected no transition from Idle on TriggerStop")
	}
	if m.State() != Idle {
		t.Fatalf("state changed unexpectedly to %v", m.State())
	}
}

func TestFireSkipsFailingGuardAndTriesNextCandidate(t *testing.T) {
	m := New[*counter](Running)
	m.AddTransition(Transition[*counter]{
		From: Running, Trigger: TriggerComplete,
		Guard: func(c *counter) bool { return c.n > 0 },
		To:    Running,
	})
	m.AddTransition(Transition[*counter]{
		From: Running, Trigger: TriggerComplete,
		To: Idle,
	})

	c := &counter{n: 0}
	if !m.Fire(c, TriggerComplete) {
		t.Fatal("expected the unconditional fallback transition to fire")
	}
	if m.State() != Idle {
		t.Fatalf("state = %v, want Idle (fallback transition)", m.State())
	}
}

func TestSetStateBypassesTransitions(t *testing.T) {
	m := New[*counter](Running)
	m.SetState(Idle)
	if m.State() != Idle {
		t.Fatalf("state = %v, want Idle after SetState", m.State())
	}
}
