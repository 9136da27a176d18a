package coverage

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/yaklabco/buildtest/internal/logging"
	"github.com/yaklabco/buildtest/pkg/fsutil"
)

// HTML renders a cover profile as an annotated HTML page using
// "go tool cover". goCommand defaults to "go".
func HTML(ctx context.Context, goCommand, profilePath, outPath string) error {
	if goCommand == "" {
		goCommand = "go"
	}
	if err := fsutil.EnsureParentDir(outPath); err != nil {
		return fmt.Errorf("create coverage directory: %w", err)
	}

	args := []string{"tool", "cover", "-html=" + profilePath, "-o", outPath}
	logging.FromContext(ctx).Debug("rendering coverage html",
		logging.FieldCommand, goCommand+" "+strings.Join(args, " "))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, goCommand, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go tool cover: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
