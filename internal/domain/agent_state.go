package domain

// DefaultLang is the only language the explanation pipeline produces today.
const DefaultLang = "english"

// AgentState is the per-request record threaded through the explanation pipeline.
// Each field after Query is written by exactly one stage; a stage never reads
// a field written by a later stage.
type AgentState struct {
	Query       string
	Lang        string
	Explanation string
	// Audio is the synthesized speech; nil when synthesis failed.
	Audio   []byte
	Summary string
}

// NewAgentState creates the initial state for a query.
func NewAgentState(query string) *AgentState {
	return &AgentState{
		Query: query,
		Lang:  DefaultLang,
	}
}

// HasAudio reports whether the speech stage produced a payload.
func (s *AgentState) HasAudio() bool {
	return len(s.Audio) > 0
}
