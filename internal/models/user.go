package models

import "fmt"

const discordCDN = "http://cdn.discordapp.com"

// User is the Discord profile of the logged-in caller.
type User struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	GlobalName *string `json:"global_name,omitempty"`
	Avatar     *string `json:"avatar,omitempty"`
}

// DisplayName returns the global name when the user has one, otherwise the username.
func (u User) DisplayName() string {
	if u.GlobalName != nil && *u.GlobalName != "" {
		return *u.GlobalName
	}
	return u.Username
}

// AvatarURL returns the CDN URL of the user's avatar, or "" when no avatar is set.
func (u User) AvatarURL() string {
	if u.Avatar == nil || *u.Avatar == "" {
		return ""
	}
	return fmt.Sprintf("%s/avatars/%s/%s.webp?size=512", discordCDN, u.ID, *u.Avatar)
}
