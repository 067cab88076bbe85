// -----------------------------------------------------------------------
// Progress Mapping - Phase floors and verification sub-progress
// -----------------------------------------------------------------------

package pipeline

import (
	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

// Verification progress advances from its floor to this ceiling as clusters
// complete; finalizing starts where verifying ends.
const verifyPercentCeiling = 95

// reportPhase publishes a phase transition at its percent floor.
func reportPhase(progress interfaces.ProgressFunc, phase models.TaskPhase) {
	if progress != nil {
		progress(phase, phase.PercentFloor())
	}
}

// verifyPercent maps cluster completion onto the verifying phase's percent
// range. Zero clusters jump straight to the ceiling.
func verifyPercent(done, total int) int {
	floor := models.PhaseVerifying.PercentFloor()
	if total <= 0 {
		return verifyPercentCeiling
	}
	if done > total {
		done = total
	}
	return floor + (verifyPercentCeiling-floor)*done/total
}
