package prompt

import (
	"regexp"
	"strconv"
	"strings"
)

// CommandKind identifies a chat command embedded in a user message.
type CommandKind string

// CommandKind values.
const (
	CommandNone    CommandKind = ""
	CommandPlan    CommandKind = "plan"
	CommandContext CommandKind = "context"
)

var (
	planPattern    = regexp.MustCompile(`(?i)#plan2w(\d*)`)
	contextPattern = regexp.MustCompile(`(?i)#anime`)
)

// Command is the result of ParseCommand.
type Command struct {
	Kind CommandKind
	// Limit is the plan-to-watch cap; zero outside CommandPlan.
	Limit int
	// Message is the user text with the command removed, or a default
	// question when nothing else was typed.
	Message string
}

// ParseCommand detects "#plan2w<N>" or "#anime" in message. The plan command
// takes precedence when both appear.
func ParseCommand(message string) Command {
	if match := planPattern.FindStringSubmatch(message); match != nil {
		limit := DefaultPlanLimit
		if match[1] != "" {
			if n, err := strconv.Atoi(match[1]); err == nil && n > 0 {
				limit = n
			}
		}
		return Command{
			Kind:    CommandPlan,
			Limit:   limit,
			Message: cleanMessage(planPattern, message, "What do you think about my Plan to Watch list?"),
		}
	}
	if contextPattern.MatchString(message) {
		return Command{
			Kind:    CommandContext,
			Message: cleanMessage(contextPattern, message, "What do you think about my anime profile?"),
		}
	}
	return Command{Kind: CommandNone, Message: message}
}

// cleanMessage removes the first command occurrence.
func cleanMessage(pattern *regexp.Regexp, message, fallback string) string {
	loc := pattern.FindStringIndex(message)
	cleaned := strings.TrimSpace(message[:loc[0]] + message[loc[1]:])
	if cleaned == "" {
		return fallback
	}
	return cleaned
}
