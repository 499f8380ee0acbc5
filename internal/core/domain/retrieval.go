package domain

// RetrievedChunk is one nearest-neighbour hit. Distance is a cosine distance
// in [0, 2]; lower means more similar.
type RetrievedChunk struct {
	Source   string  `json:"source"`
	Index    int     `json:"index"`
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
}

// AnswerBranch records which prompt-composition branch produced an answer.
type AnswerBranch string

const (
	BranchPolicy  AnswerBranch = "policy"
	BranchWeb     AnswerBranch = "web"
	BranchDecline AnswerBranch = "decline"
)

type ChatAnswer struct {
	Text    string           `json:"text"`
	Branch  AnswerBranch     `json:"branch"`
	Sources []RetrievedChunk `json:"sources,omitempty"`

	// Pipeline observations, for logging and metrics.
	Label        QuestionLabel `json:"-"`
	Retrieved    int           `json:"-"`
	BestDistance float64       `json:"-"`
	Relevant     bool          `json:"-"`
}
