package commands

import "strings"

// Prefix starts every text command.
const Prefix = "bb"

// Inbound is a chat message normalized by a transport.
type Inbound struct {
	Group       string
	Actor       string
	DisplayName string
	Text        string
	// Mentioned holds the users mentioned in the message, followed by the
	// author of a quoted/replied-to message if any.
	Mentioned []string
}

type Command struct {
	Name string
	Args []string
}

// Parse splits "bb <cmd> <args...>". ok is false when text is not addressed to the bot.
func Parse(text string) (cmd Command, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.EqualFold(fields[0], Prefix) {
		return Command{}, false
	}
	if len(fields) > 1 {
		cmd.Name = strings.ToLower(fields[1])
		cmd.Args = fields[2:]
	}
	return cmd, true
}
