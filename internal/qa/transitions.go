package qa

import (
	"github.com/zulandar/switchboard/internal/errdefs"
	"github.com/zulandar/switchboard/internal/models"
)

// allowed is the closed transition table. Same-state entries are attribute
// edits (notes, dev feedback) and never count as entering a state.
var allowed = map[models.QAStatus][]models.QAStatus{
	models.QAUnchecked: {models.QAUnchecked, models.QAPassed, models.QAIssue},
	models.QAPassed:    {models.QAPassed, models.QAIssue, models.QAUnchecked},
	models.QAIssue:     {models.QAIssue, models.QAFixed, models.QAUnchecked},
	models.QAFixed:     {models.QAFixed, models.QAUnchecked},
}

// CheckTransition returns an ErrInvalidTransition error when from -> to is
// not in the table.
func CheckTransition(from, to models.QAStatus) error {
	for _, t := range allowed[from] {
		if t == to {
			return nil
		}
	}
	return errdefs.InvalidTransitionf("qa: %s -> %s", from, to)
}

// Authorize checks the actor's capabilities for a write. The fixed target
// and any dev_feedback write need the developer capability; everything
// else needs reviewer (which developers also satisfy).
func Authorize(a Actor, to models.QAStatus, writesDevFeedback bool) error {
	if to == models.QAFixed && !a.Can(CapabilityDeveloper) {
		return errdefs.Unauthorizedf("qa: %s cannot mark a session fixed without the developer capability", a.Identity)
	}
	if writesDevFeedback && !a.Can(CapabilityDeveloper) {
		return errdefs.Unauthorizedf("qa: %s cannot write dev_feedback without the developer capability", a.Identity)
	}
	if !a.Can(CapabilityReviewer) {
		return errdefs.Unauthorizedf("qa: %s has no reviewer capability", a.Identity)
	}
	return nil
}

// EntersIssue reports whether a write from -> to is a transition into issue,
// the only edge that notifies.
func EntersIssue(from, to models.QAStatus) bool {
	return to == models.QAIssue && from != models.QAIssue
}
