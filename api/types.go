package api

// Slack Block Kit payload fragments, limited to the block types this bot
// actually sends.

type slackMessage struct {
	Channel string  `json:"channel"`
	Text    string  `json:"text"`
	Blocks  []block `json:"blocks,omitempty"`
}

type block struct {
	Type     string     `json:"type"`
	Text     *blockText `json:"text,omitempty"`
	Elements []element  `json:"elements,omitempty"`
}

type blockText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type element struct {
	Type     string     `json:"type"`
	Text     *blockText `json:"text,omitempty"`
	Value    string     `json:"value,omitempty"`
	ActionID string     `json:"action_id,omitempty"`
}

type slackAPIResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type userInfoResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	User  struct {
		Name    string `json:"name"`
		TZ      string `json:"tz"`
		Profile struct {
			Email string `json:"email"`
		} `json:"profile"`
	} `json:"user"`
}

// Inbound event shapes.

type urlVerification struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
}

type slackEvent struct {
	Type   string         `json:"type"`
	TeamID string         `json:"team_id"`
	Event  slackEventData `json:"event"`
}

type slackEventData struct {
	Type        string `json:"type"`
	User        string `json:"user"`
	Text        string `json:"text"`
	Channel     string `json:"channel"`
	ChannelType string `json:"channel_type"`
	BotID       string `json:"bot_id"`
}

// interactionPayload is the JSON carried in the form-encoded "payload" field
// of Slack interactivity callbacks.
type interactionPayload struct {
	Type string `json:"type"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Actions []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
}

// Admin API shapes.

type createQuestionRequest struct {
	QuestionText string `json:"question_text"`
	QuestionType string `json:"question_type"`
}

type updateQuestionRequest struct {
	QuestionText *string `json:"question_text,omitempty"`
	QuestionType *string `json:"question_type,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

type reorderRequest struct {
	QuestionIDs []uint `json:"question_ids"`
}

type updateConfigRequest struct {
	CheckInDay    *string  `json:"check_in_day,omitempty"`
	CheckInTime   *string  `json:"check_in_time,omitempty"`
	ReminderTimes []string `json:"reminder_times,omitempty"`
}

type triggerCheckInRequest struct {
	SlackUserID string `json:"slack_user_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}
