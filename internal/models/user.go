package models

import (
	"strings"
	"time"
)

// ExperienceLevel is how far along a user is with a skill.
type ExperienceLevel string

const (
	LevelBeginner     ExperienceLevel = "Beginner"
	LevelIntermediate ExperienceLevel = "Intermediate"
	LevelAdvanced     ExperienceLevel = "Advanced"
	LevelExpert       ExperienceLevel = "Expert"
)

// Valid reports whether l is one of the four known levels.
func (l ExperienceLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert:
		return true
	}
	return false
}

// Skill is an entry in a user's offered or wanted list.
type Skill struct {
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
	Description     string          `json:"description,omitempty"`
}

// SameName compares skill names the way the marketplace does everywhere:
// case-insensitive, ignoring surrounding whitespace.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// FindSkill returns the first skill in list whose name matches name.
func FindSkill(list []Skill, name string) (Skill, bool) {
	for _, s := range list {
		if SameName(s.Name, name) {
			return s, true
		}
	}
	return Skill{}, false
}

// User is a marketplace member. Rating, TokenBalance, Badges and
// TotalExchanges are projections maintained by the exchange engine.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"-"`
	Role           string    `json:"role,omitempty"`
	IsActive       bool      `json:"is_active"`
	SkillsOffered  []Skill   `json:"skills_offered"`
	SkillsWanted   []Skill   `json:"skills_wanted"`
	Rating         float64   `json:"rating"`
	TokenBalance   int64     `json:"token_balance"`
	Badges         []string  `json:"badges"`
	TotalExchanges int       `json:"total_exchanges"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasBadge reports whether the user already holds badge.
func (u *User) HasBadge(badge string) bool {
	for _, b := range u.Badges {
		if b == badge {
			return true
		}
	}
	return false
}
