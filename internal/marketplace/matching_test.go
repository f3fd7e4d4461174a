package marketplace

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/skillswap/internal/domain"
	"github.com/sudo-init-do/skillswap/internal/models"
	"github.com/sudo-init-do/skillswap/internal/store"
)

func addUsers(t *testing.T, s store.Store, users ...*models.User) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, s.CreateUser(context.Background(), u))
	}
}

func TestRecommendScoresExactMatch(t *testing.T) {
	s := store.NewMemory()
	addUsers(t, s,
		&models.User{ID: "a", Name: "A", IsActive: true, SkillsWanted: []models.Skill{
			{Name: "Photography", Category: "Art", ExperienceLevel: models.LevelIntermediate},
		}},
		&models.User{ID: "b", Name: "B", IsActive: true, Rating: 4.8, SkillsOffered: []models.Skill{
			{Name: "photography", Category: "Art", ExperienceLevel: models.LevelIntermediate},
		}},
	)

	rec, err := NewScorer(s).Recommend(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, models.RecommendationOK, rec.Status)
	require.Len(t, rec.Matches, 1)

	m := rec.Matches[0]
	assert.Equal(t, "b", m.User.ID)
	assert.InDelta(t, 99.4, m.Score, 1e-9)
	require.Len(t, m.MatchedSkills, 1)
	assert.InDelta(t, 99.4, m.MatchedSkills[0].Score, 1e-9)
}

func TestRecommendPartialBonuses(t *testing.T) {
	wanted := []models.Skill{{Name: "Guitar", Category: "Music", ExperienceLevel: models.LevelBeginner}}

	tests := []struct {
		name    string
		offered models.Skill
		rating  float64
		want    float64
	}{
		{"name only", models.Skill{Name: "Guitar", Category: "Art", ExperienceLevel: models.LevelExpert}, 0, 50},
		{"name and category", models.Skill{Name: "Guitar", Category: "music", ExperienceLevel: models.LevelExpert}, 0, 70},
		{"name and level", models.Skill{Name: " GUITAR ", Category: "Art", ExperienceLevel: models.LevelBeginner}, 0, 65},
		{"reputation", models.Skill{Name: "Guitar", Category: "Art", ExperienceLevel: models.LevelExpert}, 3.3, 59.9},
		{"everything", models.Skill{Name: "Guitar", Category: "Music", ExperienceLevel: models.LevelBeginner}, 5, 105},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := scoreCandidate(wanted, models.User{ID: "x", Rating: tt.rating, SkillsOffered: []models.Skill{tt.offered}})
			require.True(t, ok)
			assert.InDelta(t, tt.want, m.Score, 1e-9)
		})
	}

	_, ok := scoreCandidate(wanted, models.User{ID: "x", SkillsOffered: []models.Skill{{Name: "Piano"}}})
	assert.False(t, ok)
}

func TestRecommendNoWantedSkills(t *testing.T) {
	s := store.NewMemory()
	addUsers(t, s,
		&models.User{ID: "a", IsActive: true},
		&models.User{ID: "b", IsActive: true, SkillsOffered: []models.Skill{{Name: "Go"}}},
	)

	rec, err := NewScorer(s).Recommend(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, models.RecommendationNoWantedSkills, rec.Status)
	assert.NotEmpty(t, rec.Message)
	assert.NotNil(t, rec.Matches)
	assert.Empty(t, rec.Matches)
}

func TestRecommendUnknownUser(t *testing.T) {
	_, err := NewScorer(store.NewMemory()).Recommend(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecommendRankingProperties(t *testing.T) {
	s := store.NewMemory()
	wanted := []models.Skill{
		{Name: "Cooking", Category: "Food", ExperienceLevel: models.LevelBeginner},
		{Name: "Spanish", Category: "Language", ExperienceLevel: models.LevelAdvanced},
	}
	addUsers(t, s, &models.User{ID: "me", IsActive: true, SkillsWanted: wanted,
		SkillsOffered: []models.Skill{{Name: "Cooking"}}})

	levels := []models.ExperienceLevel{models.LevelBeginner, models.LevelIntermediate, models.LevelAdvanced, models.LevelExpert}
	for i := 0; i < 15; i++ {
		offered := []models.Skill{{Name: "Cooking", Category: "Food", ExperienceLevel: levels[i%4]}}
		if i%3 == 0 {
			offered = append(offered, models.Skill{Name: "spanish", Category: "Language", ExperienceLevel: levels[(i+2)%4]})
		}
		addUsers(t, s, &models.User{
			ID:            fmt.Sprintf("cand-%02d", i),
			IsActive:      true,
			Rating:        float64(i%6) * 0.9,
			SkillsOffered: offered,
		})
	}
	addUsers(t, s, &models.User{ID: "inactive", IsActive: false, Rating: 5,
		SkillsOffered: []models.Skill{{Name: "Cooking", Category: "Food", ExperienceLevel: models.LevelBeginner}}})

	rec, err := NewScorer(s).Recommend(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, rec.Matches, 10)

	assert.True(t, isNonIncreasing(rec.Matches), "matches must be sorted by score")

	for _, m := range rec.Matches {
		assert.NotEqual(t, "me", m.User.ID)
		assert.NotEqual(t, "inactive", m.User.ID)
		assert.GreaterOrEqual(t, m.Score, 0.0)
		assert.LessOrEqual(t, m.Score, float64(len(m.MatchedSkills))*105)
	}
}

func isNonIncreasing(ms []models.Match) bool {
	for i := 1; i < len(ms); i++ {
		if ms[i].Score > ms[i-1].Score {
			return false
		}
	}
	return true
}

func TestRecommendTieBreakByID(t *testing.T) {
	s := store.NewMemory()
	offered := []models.Skill{{Name: "Chess", Category: "Games", ExperienceLevel: models.LevelExpert}}
	addUsers(t, s,
		&models.User{ID: "me", IsActive: true, SkillsWanted: []models.Skill{{Name: "Chess"}}},
		&models.User{ID: "zed", IsActive: true, SkillsOffered: offered},
		&models.User{ID: "amy", IsActive: true, SkillsOffered: offered},
		&models.User{ID: "kim", IsActive: true, SkillsOffered: offered},
	)

	rec, err := NewScorer(s).Recommend(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, rec.Matches, 3)
	assert.Equal(t, "amy", rec.Matches[0].User.ID)
	assert.Equal(t, "kim", rec.Matches[1].User.ID)
	assert.Equal(t, "zed", rec.Matches[2].User.ID)
}
