package scheduler

import "testing"

type recordingEvent struct {
	name string
	log  *[]string
}

func (e *recordingEvent) Name() string { return e.name }
func (e *recordingEvent) Execute(_ World, _ int64) error {
	*e.log = append(*e.log, e.name)
	return nil
}

func TestDispatchDueOrdersByTimeThenSequence(t *testing.T) {
	s := New()
	var log []string

	s.Schedule(&recordingEvent{name: "b-at-10-first", log: &log}, 10)
	s.Schedule(&recordingEvent{name: "a-at-5", log: &log}, 5)
	s.Schedule(&recordingEvent{name: "c-at-10-second", log: &log}, 10)

	results := s.DispatchDue(10, nil)
	if len(results) != 3 {
		t.Fatalf("expected 3 dispatched events, got %d", len(results))
	}
	want := []string{"a-at-5", "b-at-10-first", "c-at-10-second"}
	for i, name := range want {
		if log[i] != name {
			t.Fatalf("dispatch order mismatch at %d: want %q got %q (full log: %v)", i, name, log[i], log)
		}
	}
}

func TestDispatchDueLeavesFutureEventsPending(t *testing.T) {
	s := New()
	var log []string
	s.Schedule(&recordingEvent{name: "now", log: &log}, 5)
	s.Schedule(&recordingEvent{name: "later", log: &log}, 100)

	s.DispatchDue(5, nil)
	if len(log) != 1 || log[0] != "now" {
		t.Fatalf("expected only the due event to fire, got %v", log)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 event still pending, got %d", s.Len())
	}
}

type erroringEvent struct{ err error }

func (e *erroringEvent) Name() string                   { return "erroring" }
func (e *erroringEvent) Execute(_ World, _ int64) error { return e.err }

func TestDispatchDueContinuesAfterAnEventErrors(t *testing.T) {
	s := New()
	boom := &erroringEvent{err: &InvalidEventError{Event: "x", Reason: "broken"}}
	var log []string
	s.Schedule(boom, 1)
	s.Schedule(&recordingEvent{name: "still-runs", log: &log}, 2)

	results := s.DispatchDue(10, nil)
	if len(results) != 2 {
		t.Fatalf("expected both events dispatched despite the first erroring, got %d", len(results))
	}
	if results[0].Err == nil {
		t.Fatal("expected the first result to carry the error")
	}
	if len(log) != 1 || log[0] != "still-runs" {
		t.Fatalf("expected the second event to still run, got %v", log)
	}
}

func TestScheduleSelfReschedule(t *testing.T) {
	s := New()
	var runs []int64
	var self *recurring
	self = &recurring{fn: func(w World, now int64) {
		runs = append(runs, now)
		if len(runs) < 3 {
			s.Schedule(self, now+10)
		}
	}}
	s.Schedule(self, 10)

	s.DispatchDue(10, nil)
	s.DispatchDue(20, nil)
	s.DispatchDue(30, nil)

	if len(runs) != 3 {
		t.Fatalf("expected 3 self-rescheduled runs, got %d: %v", len(runs), runs)
	}
}

type recurring struct {
	fn func(w World, now int64)
}

func (r *recurring) Name() string                   { return "recurring" }
func (r *recurring) Execute(w World, now int64) error { r.fn(w, now); return nil }
