package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sudo-init-do/skillswap/internal/models"
)

func TestRewardFor(t *testing.T) {
	skills := []models.Skill{
		{Name: "Pottery", ExperienceLevel: models.LevelBeginner},
		{Name: "Welding", ExperienceLevel: models.LevelIntermediate},
		{Name: "Rust", ExperienceLevel: models.LevelAdvanced},
		{Name: "Chess", ExperienceLevel: models.LevelExpert},
		{Name: "Knitting", ExperienceLevel: "Grandmaster"},
	}
	tests := []struct {
		skill string
		want  int64
	}{
		{"Pottery", 5},
		{"welding", 10},
		{" Rust ", 15},
		{"CHESS", 20},
		{"Knitting", defaultReward},
		{"Juggling", defaultReward},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rewardFor(skills, tt.skill), tt.skill)
	}
}

func TestCompletionRewardUsesEachPartysList(t *testing.T) {
	ex := &models.Exchange{RequesterID: "r", ProviderID: "p", RequestedSkill: "Go", OfferedSkill: "Drums"}
	requester := &models.User{ID: "r",
		SkillsWanted:  []models.Skill{{Name: "Go", ExperienceLevel: models.LevelBeginner}},
		SkillsOffered: []models.Skill{{Name: "Drums", ExperienceLevel: models.LevelExpert}},
	}
	provider := &models.User{ID: "p",
		SkillsOffered: []models.Skill{{Name: "Drums", ExperienceLevel: models.LevelAdvanced}},
	}

	assert.Equal(t, int64(5), completionReward(ex, requester))
	assert.Equal(t, int64(15), completionReward(ex, provider))
}

func TestRoleOf(t *testing.T) {
	ex := &models.Exchange{RequesterID: "r", ProviderID: "p"}
	assert.Equal(t, RoleRequester, RoleOf(ex, "r"))
	assert.Equal(t, RoleProvider, RoleOf(ex, "p"))
	assert.Equal(t, RoleOutsider, RoleOf(ex, "x"))
	assert.Equal(t, RoleOutsider, RoleOf(ex, ""))
	assert.Equal(t, "provider", RoleProvider.String())
}
