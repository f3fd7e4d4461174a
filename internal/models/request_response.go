package models

// CreateExchangeRequest is the payload for POST /exchanges.
type CreateExchangeRequest struct {
	ProviderID     string `json:"provider_id"`
	RequestedSkill string `json:"requested_skill"`
	OfferedSkill   string `json:"offered_skill"`
}

// TransitionRequest is the payload for POST /exchanges/:id/transition.
type TransitionRequest struct {
	Status ExchangeStatus `json:"status"`
}

// MessageRequest is the payload for POST /exchanges/:id/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// ReviewRequest is the payload for POST /exchanges/:id/review.
// Rating is a pointer so a missing rating can be told apart from zero.
type ReviewRequest struct {
	Rating *int   `json:"rating"`
	Review string `json:"review"`
}

// MatchedSkill explains one contribution to a match score.
type MatchedSkill struct {
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
	Score           float64         `json:"score"`
}

// Match is one recommended exchange partner.
type Match struct {
	User          User           `json:"user"`
	Score         float64        `json:"score"`
	MatchedSkills []MatchedSkill `json:"matched_skills"`
}

// Recommendation statuses.
const (
	RecommendationOK             = "ok"
	RecommendationNoWantedSkills = "no_wanted_skills"
)

// Recommendation is the result of GET /recommendations.
type Recommendation struct {
	Status  string  `json:"status"`
	Message string  `json:"message,omitempty"`
	Matches []Match `json:"matches"`
}
