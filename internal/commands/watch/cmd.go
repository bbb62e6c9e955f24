package watch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// RunCommand runs cmd through the shell after a report has been symbolicated
func RunCommand(ctx context.Context, cmd, report, output string) error {
	env := os.Environ()
	env = append(env,
		fmt.Sprintf("SYMBOLICATOR_REPORT=%s", report),
		fmt.Sprintf("SYMBOLICATOR_OUTPUT=%s", output),
	)
	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	c.Env = env
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("failed to run command: %v", err)
	}
	return nil
}
