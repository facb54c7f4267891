package followup

import (
	"strings"

	"github.com/raushankrgupta/temple-connect/models"
)

var labels = map[models.FollowUpStatus]string{
	models.FollowUpPending:    "Not Called",
	models.FollowUpComing:     "Coming",
	models.FollowUpNotComing:  "Not Coming",
	models.FollowUpMayCome:    "May Come",
	models.FollowUpNoResponse: "Not Answered",
}

// aliases maps every accepted spelling, lowercased, to its canonical status.
var aliases = map[string]models.FollowUpStatus{
	"done":           models.FollowUpComing,
	"not-interested": models.FollowUpNotComing,
	"no-response":    models.FollowUpNoResponse,
}

func init() {
	for status, label := range labels {
		aliases[string(status)] = status
		aliases[strings.ToLower(label)] = status
	}
}

// ParseStatus accepts a canonical value, a display label or a legacy value.
func ParseStatus(s string) (models.FollowUpStatus, bool) {
	status, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	return status, ok
}

// Label returns the display label for a status.
func Label(s models.FollowUpStatus) string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}
