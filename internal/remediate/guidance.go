package remediate

import (
	"fmt"

	"github.com/ancients-collective/sshcheck/internal/types"
)

// NextSteps returns the operator checklist printed after a committed change.
// sshcheck never reloads the daemon itself.
func NextSteps(configPath string, backup *types.Backup) []string {
	steps := []string{
		"Test the configuration: sudo sshd -t",
		"Restart the SSH service: sudo systemctl restart sshd",
		"Keep your current session open and test a new login before disconnecting",
	}
	if backup != nil {
		steps = append(steps, fmt.Sprintf("If anything goes wrong, restore with: sudo cp %s %s", backup.Path, configPath))
	}
	return steps
}
