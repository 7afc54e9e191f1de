package warnings

import (
	"testing"

	"github.com/bft-labs/carconsole/pkg/console"
)

func TestWithWarnings(t *testing.T) {
	c, err := console.New(console.DefaultConfig(), WithWarnings(DefaultConfig()))
	if err != nil {
		t.Fatalf("console.New() error = %v", err)
	}
	names := c.Builtins()
	if len(names) != 1 || names[0] != Name {
		t.Errorf("Builtins() = %v, want [%s]", names, Name)
	}
}
