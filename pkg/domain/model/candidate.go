package model

// TurnText is the raw text of one completed exchange handed to the
// extraction model.
type TurnText struct {
	UserText      string
	AssistantText string
}

// Empty reports whether there is nothing to extract from
func (t TurnText) Empty() bool {
	return t.UserText == "" && t.AssistantText == ""
}

// Candidate is a memory proposed by the extraction model before filtering
// and commit.
type Candidate struct {
	Content    string `json:"content"`
	Importance int    `json:"importance"`
}
