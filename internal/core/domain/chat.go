package domain

import "strings"

type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// ConversationTurn is one prior exchange. History is owned by the caller and
// supplied per request; nothing is persisted server-side.
type ConversationTurn struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
}

type QuestionLabel string

const (
	LabelPolicy  QuestionLabel = "POLICY"
	LabelGeneral QuestionLabel = "GENERAL"
)

// NormalizeLabel maps raw classifier output onto the two known labels.
// Anything unrecognized falls back to POLICY: the policy branch is gated by
// the relevance threshold downstream, so the safe default cannot produce an
// unverified answer.
func NormalizeLabel(raw string) QuestionLabel {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(LabelGeneral):
		return LabelGeneral
	default:
		return LabelPolicy
	}
}
