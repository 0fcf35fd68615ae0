package telegram

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hoangnv-dev/igbridge/internal/bridge"
)

// Registry maps command words to handlers contributed by modules.
// Commands are bare words (no slash) matched on the first token.
type Registry struct {
	commands map[string]bridge.Command
}

// NewRegistry collects the commands of every module. Later modules may
// not shadow earlier ones; a duplicate name panics at wiring time.
func NewRegistry(modules ...bridge.Module) *Registry {
	r := &Registry{commands: make(map[string]bridge.Command)}
	for _, m := range modules {
		for _, cmd := range m.Commands() {
			if _, dup := r.commands[cmd.Name]; dup {
				panic(fmt.Sprintf("duplicate command %q from module %q", cmd.Name, m.Name()))
			}
			r.commands[cmd.Name] = cmd
		}
	}
	return r
}

// Dispatch parses text as "<word> [args...]" and runs the matching
// command. Returns (reply, true) when handled.
func (r *Registry) Dispatch(ctx context.Context, text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", false
	}
	word := strings.ToLower(fields[0])

	if word == "help" {
		return r.help(), true
	}

	cmd, ok := r.commands[word]
	if !ok {
		return "", false
	}
	return cmd.Run(ctx, fields[1:]), true
}

func (r *Registry) help() string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("commands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s — %s\n", name, r.commands[name].Help)
	}
	return strings.TrimRight(b.String(), "\n")
}
