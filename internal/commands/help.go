package commands

import "strings"

var baseHelp = []string{
	"*bb game <where> <day> <time> <max> [minMembers]* — Create game",
	"*bb list* — Show current game list",
	"*bb in* — Join the game",
	"*bb out* — Leave the game",
	"*bb members <location>* — Show members of a location",
}

var adminHelp = []string{
	"*bb cancel* — Cancel the current game",
	"*bb admin @user* — Promote user",
	"*bb location <location>* — Approve location",
	"*bb member <location> @user* — Onboard member",
}

// Help renders the command list. Admin commands are only listed for admins.
func Help(isAdmin bool) string {
	lines := append([]string(nil), baseHelp...)
	if isAdmin {
		lines = append(lines, adminHelp...)
	}
	return strings.Join(lines, "\n")
}
