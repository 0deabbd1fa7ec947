package api

import "pulsecheck/db"

const (
	slackPostMessageURL = "https://slack.com/api/chat.postMessage"
	slackUserInfoURL    = "https://slack.com/api/users.info"

	defaultTimezone = "America/New_York"
)

// questionNumbers maps a question role to its position in the survey, used
// when decorating prompts.
var questionNumbers = map[string]int{
	db.RoleRating:      1,
	db.RoleWentWell:    2,
	db.RoleDidntGoWell: 3,
	db.RoleRotating:    4,
}
