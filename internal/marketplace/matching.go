package marketplace

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/skillswap/internal/models"
	"github.com/sudo-init-do/skillswap/internal/store"
)

// Match score weights.
var (
	nameMatchPoints  = decimal.NewFromInt(50)
	categoryPoints   = decimal.NewFromInt(20)
	levelPoints      = decimal.NewFromInt(15)
	ratingMultiplier = decimal.NewFromInt(3)
)

const defaultMatchLimit = 10

// Scorer ranks other active users as exchange partners by how well what
// they offer covers what the caller wants.
type Scorer struct {
	store store.Store
	limit int
}

func NewScorer(s store.Store) *Scorer {
	return &Scorer{store: s, limit: defaultMatchLimit}
}

// Recommend returns the top candidates for userID, best first. Equal scores
// are ordered by candidate id so the ranking is stable for a given snapshot.
func (s *Scorer) Recommend(ctx context.Context, userID string) (*models.Recommendation, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(user.SkillsWanted) == 0 {
		return &models.Recommendation{
			Status:  models.RecommendationNoWantedSkills,
			Message: "add skills you want to learn to get recommendations",
			Matches: []models.Match{},
		}, nil
	}

	candidates, err := s.store.ListActiveUsers(ctx)
	if err != nil {
		return nil, err
	}

	matches := []models.Match{}
	for _, c := range candidates {
		if c.ID == user.ID {
			continue
		}
		if m, ok := scoreCandidate(user.SkillsWanted, c); ok {
			matches = append(matches, m)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].User.ID < matches[j].User.ID
	})
	if len(matches) > s.limit {
		matches = matches[:s.limit]
	}

	return &models.Recommendation{
		Status:  models.RecommendationOK,
		Message: fmt.Sprintf("found %d matching users", len(matches)),
		Matches: matches,
	}, nil
}

// scoreCandidate sums the contribution of every skill c offers that the
// caller wants. ok is false when nothing matches.
func scoreCandidate(wanted []models.Skill, c models.User) (models.Match, bool) {
	reputation := decimal.NewFromFloat(c.Rating).Mul(ratingMultiplier)

	total := decimal.Zero
	var matched []models.MatchedSkill
	for _, offered := range c.SkillsOffered {
		w, ok := models.FindSkill(wanted, offered.Name)
		if !ok {
			continue
		}
		score := nameMatchPoints
		if offered.Category != "" && models.SameName(offered.Category, w.Category) {
			score = score.Add(categoryPoints)
		}
		if offered.ExperienceLevel != "" && offered.ExperienceLevel == w.ExperienceLevel {
			score = score.Add(levelPoints)
		}
		score = score.Add(reputation)

		total = total.Add(score)
		matched = append(matched, models.MatchedSkill{
			Name:            offered.Name,
			Category:        offered.Category,
			ExperienceLevel: offered.ExperienceLevel,
			Score:           score.Round(1).InexactFloat64(),
		})
	}
	if len(matched) == 0 {
		return models.Match{}, false
	}
	return models.Match{
		User:          c,
		Score:         total.Round(1).InexactFloat64(),
		MatchedSkills: matched,
	}, true
}
