// Package instagram defines the surface of the Instagram private-API
// client the bridge depends on: an authenticated command sink plus a
// realtime listener producing raw direct-message events. Login, cookie
// and challenge handling live behind the Client implementation.
package instagram

import "context"

// User is a source-platform profile. Refreshed on each sighting.
type User struct {
	ID        string `json:"pk"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"profile_pic_url"`

	FollowerCount  int `json:"follower_count"`
	FollowingCount int `json:"following_count"`
	MediaCount     int `json:"media_count"`

	IsVerified bool `json:"is_verified"`
	IsPrivate  bool `json:"is_private"`
	IsBusiness bool `json:"is_business"`

	Biography string `json:"biography"`
}

// DisplayName returns the best human label for the user.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Client is the authenticated command surface of the Instagram account.
// All calls are blocking and return the platform's success/failure; none
// of them retry.
type Client interface {
	// UserInfo fetches the current profile for a user id.
	UserInfo(ctx context.Context, userID string) (*User, error)
	// UserByName resolves a username to a profile.
	UserByName(ctx context.Context, username string) (*User, error)

	// SendText sends a plain text message into a direct thread.
	SendText(ctx context.Context, threadID, text string) error
	// SendPhoto uploads a JPEG and sends it into a direct thread.
	SendPhoto(ctx context.Context, threadID string, jpeg []byte) error
	// SendVideo uploads an MP4 and sends it into a direct thread.
	SendVideo(ctx context.Context, threadID string, mp4 []byte) error
	// SendVoice uploads an audio clip and sends it into a direct thread.
	SendVoice(ctx context.Context, threadID string, audio []byte) error

	Follow(ctx context.Context, userID string) error
	Unfollow(ctx context.Context, userID string) error

	// ApproveRequest accepts a pending message/follow request.
	ApproveRequest(ctx context.Context, userID string) error
	// PendingRequests lists users with a pending inbound request.
	PendingRequests(ctx context.Context) ([]User, error)

	// FollowerCount returns the account's current follower total.
	FollowerCount(ctx context.Context) (int, error)
}
