package bridge

import (
	"context"
	"strings"
	"testing"

	"github.com/hoangnv-dev/igbridge/internal/instagram"
	"github.com/hoangnv-dev/igbridge/internal/store"
)

func newBridgeModule() (*BridgeModule, store.Store) {
	st := store.NewMemory()
	client := newFakeClient()
	return &BridgeModule{
		Normalizer: NewNormalizer(client, 10),
		Mapper:     NewMapper(st, newFakeDest(), 0),
		Filter:     NewFilter(nil),
		Words:      st,
	}, st
}

func commandByName(t *testing.T, m Module, name string) Command {
	t.Helper()
	for _, cmd := range m.Commands() {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("module %q has no command %q", m.Name(), name)
	return Command{}
}

func TestBridgeModuleStatus(t *testing.T) {
	m, _ := newBridgeModule()
	out := commandByName(t, m, "status").Run(context.Background(), nil)
	if !strings.Contains(out, "mappings: 0") || !strings.Contains(out, "dedup window: 0") {
		t.Errorf("status = %q", out)
	}
}

func TestBridgeModuleFilter(t *testing.T) {
	ctx := context.Background()
	m, st := newBridgeModule()
	run := commandByName(t, m, "filter").Run

	t.Run("add persists and takes effect", func(t *testing.T) {
		out := run(ctx, []string{"add", "Spam"})
		if out != `added "spam"` {
			t.Errorf("out = %q", out)
		}
		if !m.Filter.Blocked("spam again") {
			t.Error("added word not blocking")
		}
		words, err := st.ListFilterWords(ctx)
		if err != nil || len(words) != 1 || words[0] != "spam" {
			t.Errorf("persisted words = %v, %v", words, err)
		}
	})

	t.Run("list", func(t *testing.T) {
		run(ctx, []string{"add", "promo"})
		out := run(ctx, []string{"list"})
		if out != "promo\nspam" {
			t.Errorf("list = %q", out)
		}
	})

	t.Run("del", func(t *testing.T) {
		out := run(ctx, []string{"del", "spam"})
		if out != `removed "spam"` {
			t.Errorf("out = %q", out)
		}
		if m.Filter.Blocked("spam") {
			t.Error("removed word still blocking")
		}
		out = run(ctx, []string{"del", "spam"})
		if out != `"spam" is not filtered` {
			t.Errorf("out = %q", out)
		}
	})

	t.Run("usage on bad input", func(t *testing.T) {
		for _, args := range [][]string{nil, {"add"}, {"del"}, {"frobnicate"}} {
			if out := run(ctx, args); !strings.HasPrefix(out, "usage:") {
				t.Errorf("args %v: out = %q", args, out)
			}
		}
	})
}

func TestFollowModuleCommands(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	client.users["7"] = testUser("7", "alice")
	client.followerCnt = 1234
	rt := followRuntime(5)
	q, _ := newTestQueue(client, rt)
	m := &FollowModule{Client: client, Queue: q, RT: rt}

	t.Run("followers", func(t *testing.T) {
		out := commandByName(t, m, "followers").Run(ctx, nil)
		if out != "1234 followers" {
			t.Errorf("out = %q", out)
		}
	})

	t.Run("follow strips at-sign and resolves", func(t *testing.T) {
		out := commandByName(t, m, "follow").Run(ctx, []string{"@alice"})
		if out != "following @alice" {
			t.Errorf("out = %q", out)
		}
		if client.followCount() != 1 || client.followed[0] != "7" {
			t.Errorf("followed = %v", client.followed)
		}
	})

	t.Run("follow unknown user", func(t *testing.T) {
		out := commandByName(t, m, "follow").Run(ctx, []string{"nobody"})
		if !strings.Contains(out, "lookup @nobody failed") {
			t.Errorf("out = %q", out)
		}
	})

	t.Run("autofollow toggle", func(t *testing.T) {
		run := commandByName(t, m, "autofollow").Run
		if out := run(ctx, nil); out != "autofollow is on" {
			t.Errorf("out = %q", out)
		}
		if out := run(ctx, []string{"off"}); out != "autofollow disabled" {
			t.Errorf("out = %q", out)
		}
		if rt.AutoFollow() {
			t.Error("toggle did not reach runtime")
		}
		if out := run(ctx, []string{"sideways"}); out != "usage: autofollow on|off" {
			t.Errorf("out = %q", out)
		}
	})

	t.Run("requests sweep", func(t *testing.T) {
		client.pending = []instagram.User{{ID: "9", Username: "bob"}}
		out := commandByName(t, m, "requests").Run(ctx, nil)
		if out != "approved 1 requests" {
			t.Errorf("out = %q", out)
		}
	})
}
