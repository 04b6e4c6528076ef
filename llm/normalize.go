package llm

import "strings"

// Normalize merges same-role adjacent messages, ensures the first
// non-system message is a user message (synthesizing an empty one if
// absent), and concatenates all system messages into a single leading
// block. It is shared by adapters whose transport can't represent the
// system/user/assistant message list directly.
func Normalize(messages []Message) []Message {
	var systemParts []string
	var rest []Message

	for _, m := range messages {
		if m.Role == RoleSystem {
			systemParts = append(systemParts, m.Content)
			continue
		}
		rest = append(rest, m)
	}

	rest = mergeAdjacentSameRole(rest)

	if len(rest) == 0 || rest[0].Role != RoleUser {
		rest = append([]Message{{Role: RoleUser, Content: ""}}, rest...)
	}

	out := make([]Message, 0, len(rest)+1)
	if len(systemParts) > 0 {
		out = append(out, Message{Role: RoleSystem, Content: strings.Join(systemParts, "\n\n")})
	}
	out = append(out, rest...)
	return out
}

func mergeAdjacentSameRole(messages []Message) []Message {
	if len(messages) == 0 {
		return messages
	}

	merged := make([]Message, 0, len(messages))
	current := messages[0]
	for _, m := range messages[1:] {
		if m.Role == current.Role {
			current.Content = current.Content + "\n\n" + m.Content
			continue
		}
		merged = append(merged, current)
		current = m
	}
	merged = append(merged, current)
	return merged
}
