package bot

import (
	"regexp"
	"strconv"
	"strings"
)

// CommandKind classifies a free-text chat message.
type CommandKind string

const (
	CommandRegister CommandKind = "register"
	CommandStatus   CommandKind = "status"
	CommandHelp     CommandKind = "help"
	CommandUnknown  CommandKind = "unknown"
)

// Command is the parsed form of an inbound message. Parsing is pure; the
// router decides what each command does.
type Command struct {
	Kind     CommandKind
	TicketID int64
}

var registerPattern = regexp.MustCompile(`^register\s+(\d+)$`)

// ParseCommand maps normalized message text to a command.
func ParseCommand(text string) Command {
	normalized := strings.ToLower(strings.TrimSpace(text))

	if match := registerPattern.FindStringSubmatch(normalized); match != nil {
		id, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil || id <= 0 {
			return Command{Kind: CommandUnknown}
		}
		return Command{Kind: CommandRegister, TicketID: id}
	}

	switch normalized {
	case "status", "position":
		return Command{Kind: CommandStatus}
	case "help":
		return Command{Kind: CommandHelp}
	}
	return Command{Kind: CommandUnknown}
}
