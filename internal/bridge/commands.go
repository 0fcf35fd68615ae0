package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/hoangnv-dev/igbridge/internal/config"
	"github.com/hoangnv-dev/igbridge/internal/instagram"
)

// BridgeModule exposes the relay-side operator commands: cache status
// and filter management.
type BridgeModule struct {
	Normalizer *Normalizer
	Mapper     *Mapper
	Filter     *Filter
	Words      FilterStore
}

// FilterStore is the persistence slice the filter commands write through.
type FilterStore interface {
	AddFilterWord(ctx context.Context, word string) error
	RemoveFilterWord(ctx context.Context, word string) error
}

func (m *BridgeModule) Name() string { return "bridge" }

func (m *BridgeModule) Commands() []Command {
	return []Command{
		{
			Name: "status",
			Help: "show bridge cache sizes",
			Run: func(ctx context.Context, args []string) string {
				return fmt.Sprintf("mappings: %d\nidentities: %d\ndedup window: %d\nfilter words: %d",
					m.Mapper.Size(), m.Normalizer.IdentityCacheLen(),
					m.Normalizer.WindowLen(), len(m.Filter.Words()))
			},
		},
		{
			Name: "filter",
			Help: "filter add|del <word> | filter list",
			Run:  m.runFilter,
		},
	}
}

func (m *BridgeModule) runFilter(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "usage: filter add|del <word> | filter list"
	}
	switch args[0] {
	case "list":
		words := m.Filter.Words()
		if len(words) == 0 {
			return "no filter words"
		}
		return strings.Join(words, "\n")
	case "add":
		if len(args) < 2 {
			return "usage: filter add <word>"
		}
		word := strings.ToLower(args[1])
		m.Filter.Add(word)
		if m.Words != nil {
			if err := m.Words.AddFilterWord(ctx, word); err != nil {
				return fmt.Sprintf("added %q (persist failed: %v)", word, err)
			}
		}
		return fmt.Sprintf("added %q", word)
	case "del":
		if len(args) < 2 {
			return "usage: filter del <word>"
		}
		word := strings.ToLower(args[1])
		if !m.Filter.Remove(word) {
			return fmt.Sprintf("%q is not filtered", word)
		}
		if m.Words != nil {
			if err := m.Words.RemoveFilterWord(ctx, word); err != nil {
				return fmt.Sprintf("removed %q (persist failed: %v)", word, err)
			}
		}
		return fmt.Sprintf("removed %q", word)
	default:
		return "usage: filter add|del <word> | filter list"
	}
}

// FollowModule exposes the automation commands and toggles.
type FollowModule struct {
	Client instagram.Client
	Queue  *AutoFollow
	RT     *config.Runtime
}

func (m *FollowModule) Name() string { return "follow" }

func (m *FollowModule) Commands() []Command {
	return []Command{
		{
			Name: "followers",
			Help: "show follower count",
			Run: func(ctx context.Context, args []string) string {
				n, err := m.Client.FollowerCount(ctx)
				if err != nil {
					return fmt.Sprintf("follower count failed: %v", err)
				}
				return fmt.Sprintf("%d followers", n)
			},
		},
		{
			Name: "follow",
			Help: "follow <username>",
			Run:  m.runFollow,
		},
		{
			Name: "unfollow",
			Help: "unfollow <username>",
			Run:  m.runUnfollow,
		},
		{
			Name: "autofollow",
			Help: "autofollow on|off",
			Run: func(ctx context.Context, args []string) string {
				return m.runToggle(args, "autofollow", m.RT.SetAutoFollow, m.RT.AutoFollow)
			},
		},
		{
			Name: "autorequests",
			Help: "autorequests on|off",
			Run: func(ctx context.Context, args []string) string {
				return m.runToggle(args, "autorequests", m.RT.SetAutoRequests, m.RT.AutoRequests)
			},
		},
		{
			Name: "requests",
			Help: "approve all pending requests now",
			Run: func(ctx context.Context, args []string) string {
				n, err := m.Queue.ApproveAllPending(ctx)
				if err != nil {
					return fmt.Sprintf("request sweep failed: %v", err)
				}
				return fmt.Sprintf("approved %d requests", n)
			},
		},
	}
}

func (m *FollowModule) runFollow(ctx context.Context, args []string) string {
	if len(args) < 1 {
		return "usage: follow <username>"
	}
	username := strings.TrimPrefix(args[0], "@")
	u, err := m.Client.UserByName(ctx, username)
	if err != nil {
		return fmt.Sprintf("lookup @%s failed: %v", username, err)
	}
	if err := m.Client.Follow(ctx, u.ID); err != nil {
		return fmt.Sprintf("follow @%s failed: %v", username, err)
	}
	return fmt.Sprintf("following @%s", username)
}

func (m *FollowModule) runUnfollow(ctx context.Context, args []string) string {
	if len(args) < 1 {
		return "usage: unfollow <username>"
	}
	username := strings.TrimPrefix(args[0], "@")
	u, err := m.Client.UserByName(ctx, username)
	if err != nil {
		return fmt.Sprintf("lookup @%s failed: %v", username, err)
	}
	if err := m.Client.Unfollow(ctx, u.ID); err != nil {
		return fmt.Sprintf("unfollow @%s failed: %v", username, err)
	}
	return fmt.Sprintf("unfollowed @%s", username)
}

func (m *FollowModule) runToggle(args []string, name string, set func(bool), get func() bool) string {
	if len(args) < 1 {
		state := "off"
		if get() {
			state = "on"
		}
		return fmt.Sprintf("%s is %s", name, state)
	}
	switch args[0] {
	case "on":
		set(true)
		return fmt.Sprintf("%s enabled", name)
	case "off":
		set(false)
		return fmt.Sprintf("%s disabled", name)
	default:
		return fmt.Sprintf("usage: %s on|off", name)
	}
}
