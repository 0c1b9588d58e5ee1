package user

import (
	"fmt"
	"strings"
	"time"
)

// PersonalityType is one of the sixteen MBTI categories used to pick a reply style.
type PersonalityType string

const (
	INTJ PersonalityType = "INTJ"
	INTP PersonalityType = "INTP"
	ENTJ PersonalityType = "ENTJ"
	ENTP PersonalityType = "ENTP"
	INFJ PersonalityType = "INFJ"
	INFP PersonalityType = "INFP"
	ENFJ PersonalityType = "ENFJ"
	ENFP PersonalityType = "ENFP"
	ISTJ PersonalityType = "ISTJ"
	ISFJ PersonalityType = "ISFJ"
	ESTJ PersonalityType = "ESTJ"
	ESFJ PersonalityType = "ESFJ"
	ISTP PersonalityType = "ISTP"
	ISFP PersonalityType = "ISFP"
	ESTP PersonalityType = "ESTP"
	ESFP PersonalityType = "ESFP"
)

var PersonalityTypes = []PersonalityType{
	INTJ, INTP, ENTJ, ENTP,
	INFJ, INFP, ENFJ, ENFP,
	ISTJ, ISFJ, ESTJ, ESFJ,
	ISTP, ISFP, ESTP, ESFP,
}

func (p PersonalityType) Valid() bool {
	for _, t := range PersonalityTypes {
		if t == p {
			return true
		}
	}
	return false
}

func (p PersonalityType) IsSet() bool { return p != "" }

// ParsePersonalityType accepts any casing and surrounding whitespace.
func ParsePersonalityType(raw string) (PersonalityType, error) {
	p := PersonalityType(strings.ToUpper(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown personality type %q", raw)
	}
	return p, nil
}

type User struct {
	ID               string          `json:"id"`
	PersonalityType  PersonalityType `json:"personality_type,omitempty"`
	IsMember         bool            `json:"is_member"`
	DailyReplyCount  int             `json:"daily_reply_count"`
	QuotaWindowStart time.Time       `json:"quota_window_start"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Clone returns a copy that callers may keep without aliasing stored state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// ProfileUpdate carries optional profile fields; nil leaves a field unchanged.
type ProfileUpdate struct {
	PersonalityType *PersonalityType
	IsMember        *bool
}

func (p ProfileUpdate) Empty() bool {
	return p.PersonalityType == nil && p.IsMember == nil
}
