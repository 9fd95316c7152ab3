// Package model defines the data structures used throughout the application.
//
// IDENTITY:
// Every stored entity gets an xid string ID, serialised as "_id" so the web
// client can read documents from either store the same way. Users are the
// exception in cross-references: friends, requests and chat participants are
// lists of usernames, not IDs.
//
// REFERENCE LISTS:
// Fields such as User.Friends or Question.Answers are reference lists. They
// are only ever changed one element at a time through the repository's
// add/remove methods, never by writing the whole slice back.
package model

import "time"

// User is a registered member.
//
// Invariants kept by the friendship service:
//   - Username never appears in its own Friends list
//   - b in a.Friends implies a in b.Friends
type User struct {
	ID              string          `json:"_id"              bson:"_id"`
	Username        string          `json:"username"         bson:"username"`
	FirstName       string          `json:"firstName"        bson:"firstName"`
	LastName        string          `json:"lastName"         bson:"lastName"`
	Picture         string          `json:"picture"          bson:"picture"`
	Biography       string          `json:"biography"        bson:"biography"`
	GitHubID        int64           `json:"githubId,omitempty" bson:"githubId,omitempty"` // set when the account came from GitHub login
	Friends         []string        `json:"friends"          bson:"friends"`              // usernames
	Requests        []string        `json:"requests"         bson:"requests"`             // usernames of pending requesters
	Notifications   []string        `json:"notifications"    bson:"notifications"`        // notification IDs
	Chats           []string        `json:"chats"            bson:"chats"`                // chat IDs
	PrivacySettings PrivacySettings `json:"privacySettings"  bson:"privacySettings"`
	Settings        Settings        `json:"settings"         bson:"settings"`
	CreatedAt       time.Time       `json:"createdAt"        bson:"createdAt"`
}

// PrivacySettings controls which profile fields other members may see.
type PrivacySettings struct {
	Username    bool `json:"username"    bson:"username"`
	Email       bool `json:"email"       bson:"email"`
	FirstName   bool `json:"firstName"   bson:"firstName"`
	LastName    bool `json:"lastName"    bson:"lastName"`
	Biography   bool `json:"biography"   bson:"biography"`
	Leaderboard bool `json:"leaderboard" bson:"leaderboard"`
}

// DefaultPrivacySettings shows everything.
func DefaultPrivacySettings() PrivacySettings {
	return PrivacySettings{
		Username:    true,
		Email:       true,
		FirstName:   true,
		LastName:    true,
		Biography:   true,
		Leaderboard: true,
	}
}

// Settings are display preferences.
type Settings struct {
	ColorMode       string `json:"colorMode"       bson:"colorMode"`
	FontSize        string `json:"fontSize"        bson:"fontSize"`
	IsBlackAndWhite bool   `json:"isBlackAndWhite" bson:"isBlackAndWhite"`
}

// DefaultSettings are applied to new accounts.
func DefaultSettings() Settings {
	return Settings{ColorMode: "light", FontSize: "medium"}
}

// HasFriend reports whether name is in u.Friends. A nil user has no friends.
func (u *User) HasFriend(name string) bool {
	if u == nil {
		return false
	}
	for _, f := range u.Friends {
		if f == name {
			return true
		}
	}
	return false
}

// HasRequestFrom reports whether name has a pending request to u.
func (u *User) HasRequestFrom(name string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Requests {
		if r == name {
			return true
		}
	}
	return false
}

// Normalize replaces nil reference lists with empty ones so they encode as [].
func (u *User) Normalize() {
	u.Friends = nonNil(u.Friends)
	u.Requests = nonNil(u.Requests)
	u.Notifications = nonNil(u.Notifications)
	u.Chats = nonNil(u.Chats)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
