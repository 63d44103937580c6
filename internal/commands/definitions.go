package commands

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/bwmarrin/discordgo"
)

func GetCommands() []*discordgo.ApplicationCommand {
	locationOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "location",
		Description: "Location name",
		Required:    true,
	}
	userOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: "Target user",
		Required:    true,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:         Prefix,
			Description:  "Organize a game in this channel",
			DMPermission: boolPtr(true),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "game",
					Description: "Create a game (admins only)",
					Options: []*discordgo.ApplicationCommandOption{
						locationOpt,
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "day",
							Description: "Day, e.g. tue",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "time",
							Description: "Time, e.g. 6pm",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "max",
							Description: "Maximum players",
							Required:    true,
							MinValue:    floatPtr(1),
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "min_members",
							Description: "Seats reserved for location members",
							MinValue:    floatPtr(0),
						},
					},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "list", Description: "Show current game list"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "in", Description: "Join the game"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "out", Description: "Leave the game"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "cancel", Description: "Cancel the current game (admins only)"},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "admin",
					Description: "Promote a user to admin",
					Options:     []*discordgo.ApplicationCommandOption{userOpt},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "location",
					Description: "Approve a location",
					Options:     []*discordgo.ApplicationCommandOption{locationOpt},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "member",
					Description: "Onboard a member of a location",
					Options:     []*discordgo.ApplicationCommandOption{locationOpt, userOpt},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "members",
					Description: "Show members of a location",
					Options:     []*discordgo.ApplicationCommandOption{locationOpt},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "explain", Description: "Show available commands"},
			},
		},
	}
}

// SlashText renders a /bb subcommand as the equivalent text command and
// returns the user IDs it targets.
func SlashText(data discordgo.ApplicationCommandInteractionData) (text string, mentioned []string) {
	if len(data.Options) == 0 {
		return Prefix, nil
	}
	sub := data.Options[0]
	parts := []string{Prefix, sub.Name}

	// Order follows the text command's positional arguments.
	for _, name := range []string{"location", "day", "time", "max", "min_members"} {
		o := findOption(sub.Options, name)
		if o == nil {
			continue
		}
		switch o.Type {
		case discordgo.ApplicationCommandOptionInteger:
			parts = append(parts, strconv.FormatInt(o.IntValue(), 10))
		default:
			v := strings.TrimSpace(o.StringValue())
			if strings.ContainsFunc(v, unicode.IsSpace) {
				// Would shift the later positional arguments. Without
				// arguments the command replies with its usage.
				return Prefix + " " + sub.Name, nil
			}
			if v != "" {
				parts = append(parts, v)
			}
		}
	}
	if o := findOption(sub.Options, "user"); o != nil {
		if id, ok := o.Value.(string); ok && id != "" {
			mentioned = append(mentioned, id)
		}
	}
	return strings.Join(parts, " "), mentioned
}

func findOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, o := range opts {
		if o.Name == name {
			return o
		}
	}
	return nil
}

func boolPtr(b bool) *bool {
	return &b
}

func floatPtr(f float64) *float64 {
	return &f
}
