package checker

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	probe := BoolFunc(func(context.Context, string) (bool, error) { return true, nil })
	r.Register("ssh", probe)

	chk, err := r.Resolve("ssh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chk == nil {
		t.Fatal("expected a checker")
	}
}

func TestRegistry_UnknownID(t *testing.T) {
	r := NewRegistry()
	r.Register("ssh", BoolFunc(func(context.Context, string) (bool, error) { return true, nil }))
	r.Register("web", BoolFunc(func(context.Context, string) (bool, error) { return true, nil }))

	_, err := r.Resolve("ftp")
	if err == nil {
		t.Fatal("expected an error for an unknown checker id")
	}
	// The error should name the known checkers so the misconfiguration is
	// obvious.
	if !strings.Contains(err.Error(), "ssh") || !strings.Contains(err.Error(), "web") {
		t.Errorf("expected known ids in error, got: %v", err)
	}
}

func TestBoolFunc(t *testing.T) {
	up := BoolFunc(func(context.Context, string) (bool, error) { return true, nil })
	res, err := up.Check(context.Background(), "10.0.0.1", uuid.New(), "team-a", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SLAPercentage != 100 {
		t.Errorf("expected 100%% for up, got %.1f", res.SLAPercentage)
	}

	down := BoolFunc(func(context.Context, string) (bool, error) { return false, nil })
	res, err = down.Check(context.Background(), "10.0.0.1", uuid.New(), "team-a", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SLAPercentage != 0 {
		t.Errorf("expected 0%% for down, got %.1f", res.SLAPercentage)
	}
}
