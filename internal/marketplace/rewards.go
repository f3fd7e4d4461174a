package marketplace

import "github.com/sudo-init-do/skillswap/internal/models"

const defaultReward int64 = 10

var rewardTable = map[models.ExperienceLevel]int64{
	models.LevelBeginner:     5,
	models.LevelIntermediate: 10,
	models.LevelAdvanced:     15,
	models.LevelExpert:       20,
}

// rewardFor looks skill up by name in the user's own list and returns the
// tokens for its level. Unknown skills and levels earn defaultReward.
func rewardFor(skills []models.Skill, skill string) int64 {
	s, ok := models.FindSkill(skills, skill)
	if !ok {
		return defaultReward
	}
	if r, ok := rewardTable[s.ExperienceLevel]; ok {
		return r
	}
	return defaultReward
}

// completionReward picks the list each party's reward is read from: the
// requester is learning RequestedSkill, the provider is teaching OfferedSkill.
func completionReward(ex *models.Exchange, u *models.User) int64 {
	if u.ID == ex.RequesterID {
		return rewardFor(u.SkillsWanted, ex.RequestedSkill)
	}
	return rewardFor(u.SkillsOffered, ex.OfferedSkill)
}
