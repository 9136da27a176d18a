package pretty_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yaklabco/buildtest/internal/ui/pretty"
)

func TestSpecLines(t *testing.T) {
	t.Parallel()

	styles := pretty.NewStyles(false)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"root suite", styles.FormatSuite(0, "Math"), "Math\n"},
		{"nested suite", styles.FormatSuite(2, "Add"), "    Add\n"},
		{"pass", styles.FormatPass(1, "adds", ""), "  ✓ adds\n"},
		{"slow pass", styles.FormatPass(1, "adds", "120ms"), "  ✓ adds (120ms)\n"},
		{"fail", styles.FormatFail(2, 3, "subtracts"), "    3) subtracts\n"},
		{"pending", styles.FormatPending(1, "later"), "  – later\n"},
		{"negative depth", styles.FormatSuite(-1, "x"), "x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestFormatFailure(t *testing.T) {
	t.Parallel()

	styles := pretty.NewStyles(false)

	got := styles.FormatFailure(1, "Math subtracts", "math_test.go:12: expected 1 got 2\nextra\n")
	assert.Equal(t, "  1) Math subtracts\n     math_test.go:12: expected 1 got 2\n     extra\n", got)

	assert.Equal(t, "  2) Boom\n", styles.FormatFailure(2, "Boom", ""))
}
