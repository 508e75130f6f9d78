package todo

import (
	"reflect"
	"testing"
)

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry("Work", "Study")

	if r.Register("Work") {
		t.Error("Register(Work) reported a new category")
	}
	if !r.Register(" Errands ") {
		t.Error("Register(Errands) did not report a new category")
	}
	if r.Register("  ") {
		t.Error("blank category registered")
	}
	r.Register("Study")
	r.Register("work")

	want := []string{"Work", "Study", "Errands", "work"}
	if got := r.Known(); !reflect.DeepEqual(got, want) {
		t.Errorf("Known() = %v, want %v", got, want)
	}
	if !r.Contains("Errands") || r.Contains("Home") {
		t.Error("Contains mismatch")
	}
}

func TestRegistryKnownReturnsCopy(t *testing.T) {
	r := NewRegistry("Work")
	known := r.Known()
	known[0] = "Changed"

	if got := r.Known()[0]; got != "Work" {
		t.Errorf("registry modified through Known(): %q", got)
	}
}
