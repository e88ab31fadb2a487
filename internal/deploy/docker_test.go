package deploy

import "testing"

// Both backends must satisfy the same contract; the compiler enforces the
// docker client API surface this package builds against.
var (
	_ Deployer = (*DockerDeployer)(nil)
	_ Deployer = (*NoopDeployer)(nil)
)

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("got %q, want 01234567", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("got %q, want unchanged", got)
	}
}
