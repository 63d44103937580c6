package commands

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

func TestSlashText(t *testing.T) {
	tests := []struct {
		name          string
		data          discordgo.ApplicationCommandInteractionData
		wantText      string
		wantMentioned []string
	}{
		{
			name: "game with all options",
			data: discordgo.ApplicationCommandInteractionData{
				Name: "bb",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{
					Name: "game",
					Type: discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandInteractionDataOption{
						{Name: "max", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(10)},
						{Name: "location", Type: discordgo.ApplicationCommandOptionString, Value: "park"},
						{Name: "time", Type: discordgo.ApplicationCommandOptionString, Value: "6pm"},
						{Name: "day", Type: discordgo.ApplicationCommandOptionString, Value: "tue"},
						{Name: "min_members", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(2)},
					},
				}},
			},
			wantText: "bb game park tue 6pm 10 2",
		},
		{
			name: "member with user",
			data: discordgo.ApplicationCommandInteractionData{
				Name: "bb",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{
					Name: "member",
					Type: discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandInteractionDataOption{
						{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: "42"},
						{Name: "location", Type: discordgo.ApplicationCommandOptionString, Value: "park"},
					},
				}},
			},
			wantText:      "bb member park",
			wantMentioned: []string{"42"},
		},
		{
			name: "game with a spaced time",
			data: discordgo.ApplicationCommandInteractionData{
				Name: "bb",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{
					Name: "game",
					Type: discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandInteractionDataOption{
						{Name: "location", Type: discordgo.ApplicationCommandOptionString, Value: "park"},
						{Name: "day", Type: discordgo.ApplicationCommandOptionString, Value: "tue"},
						{Name: "time", Type: discordgo.ApplicationCommandOptionString, Value: "6 30"},
						{Name: "max", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(4)},
					},
				}},
			},
			wantText: "bb game",
		},
		{
			name: "member with a spaced location",
			data: discordgo.ApplicationCommandInteractionData{
				Name: "bb",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{
					Name: "member",
					Type: discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandInteractionDataOption{
						{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: "42"},
						{Name: "location", Type: discordgo.ApplicationCommandOptionString, Value: "north park"},
					},
				}},
			},
			wantText: "bb member",
		},
		{
			name: "subcommand without options",
			data: discordgo.ApplicationCommandInteractionData{
				Name: "bb",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{
					Name: "in",
					Type: discordgo.ApplicationCommandOptionSubCommand,
				}},
			},
			wantText: "bb in",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, mentioned := SlashText(tt.data)
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
			if strings.Join(mentioned, ",") != strings.Join(tt.wantMentioned, ",") {
				t.Errorf("mentioned = %v, want %v", mentioned, tt.wantMentioned)
			}
		})
	}
}

func TestSpacedSlashOptionGetsUsage(t *testing.T) {
	d, reg := newTestDispatcher(t)
	ctx := context.Background()
	reg.ApproveLocation(ctx, "g", "park")

	text, mentioned := SlashText(discordgo.ApplicationCommandInteractionData{
		Name: "bb",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: "game",
			Type: discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "location", Type: discordgo.ApplicationCommandOptionString, Value: "park"},
				{Name: "day", Type: discordgo.ApplicationCommandOptionString, Value: "tue"},
				{Name: "time", Type: discordgo.ApplicationCommandOptionString, Value: "6 30"},
				{Name: "max", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(4)},
			},
		}},
	})
	reply := send(t, d, "root", text, mentioned...)
	if !strings.HasPrefix(reply, "⚠️ Usage: *bb game") {
		t.Errorf("reply = %q, want usage", reply)
	}
	if got := send(t, d, "root", "bb list"); got != "❌ No game currently active." {
		t.Errorf("a game was created: %q", got)
	}
}

func TestGetCommandsCoverTextCommands(t *testing.T) {
	cmds := GetCommands()
	if len(cmds) != 1 || cmds[0].Name != Prefix {
		t.Fatalf("unexpected commands: %+v", cmds)
	}
	names := map[string]bool{}
	for _, o := range cmds[0].Options {
		names[o.Name] = true
	}
	for _, want := range []string{"game", "list", "in", "out", "cancel", "admin", "location", "member", "members", "explain"} {
		if !names[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}
}

func TestSplitMessage(t *testing.T) {
	short := "1. a\n2. b"
	if got := SplitMessage(short, 20); len(got) != 1 || got[0] != short {
		t.Errorf("short message split: %q", got)
	}

	lines := []string{"aaaa", "bbbb", "cccc"}
	got := SplitMessage(strings.Join(lines, "\n"), 9)
	if len(got) != 2 || got[0] != "aaaa\nbbbb" || got[1] != "cccc" {
		t.Errorf("SplitMessage = %q", got)
	}

	got = SplitMessage("abcdefghij", 4)
	if strings.Join(got, "|") != "abcd|efgh|ij" {
		t.Errorf("long line split = %q", got)
	}
	long := strings.Repeat("⏳", 700)
	got = SplitMessage(long, MaxMessageLength)
	if strings.Join(got, "") != long {
		t.Errorf("multi-byte split lost content")
	}
	for i, c := range got {
		if len(c) > MaxMessageLength || !utf8.ValidString(c) {
			t.Errorf("chunk %d: %d bytes, valid UTF-8 %v", i, len(c), utf8.ValidString(c))
		}
	}

	for _, c := range SplitMessage(strings.Repeat("x\n", 3000), MaxMessageLength) {
		if len(c) > MaxMessageLength {
			t.Errorf("chunk of %d bytes exceeds limit", len(c))
		}
	}
}
