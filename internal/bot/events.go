package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"github.com/susu3304/bbbot/internal/commands"
)

// Minimal session interface for sending channel messages.
type messageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Info().Str("module", "bot").Str("user", event.User.Username).Msg("connected")

	// Register commands for all guilds
	for _, guild := range event.Guilds {
		if err := b.registerGuildCommands(guild.ID); err != nil {
			log.Error().Err(err).Str("module", "bot").Str("guild", guild.ID).Msg("failed to register commands")
		}
	}
}

func (b *Bot) onGuildCreate(s *discordgo.Session, event *discordgo.GuildCreate) {
	log.Info().Str("module", "bot").Str("guild", event.ID).Str("name", event.Name).Msg("guild available, ensuring commands")
	if err := b.registerGuildCommands(event.ID); err != nil {
		log.Error().Err(err).Str("module", "bot").Str("guild", event.ID).Msg("failed to register commands")
	}
}

func (b *Bot) registerGuildCommands(guildID string) error {
	cmds := commands.GetCommands()
	// Delete existing commands and register new ones
	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, guildID, cmds)
	if err != nil {
		return err
	}

	log.Debug().Str("module", "bot").Str("guild", guildID).Msg("registered application commands")
	return nil
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	b.handleMessage(context.Background(), s, m)
}

func (b *Bot) handleMessage(ctx context.Context, s messageSender, m *discordgo.MessageCreate) {
	// Ignore bot messages
	if m.Author == nil || m.Author.Bot {
		return
	}

	reply, ok := b.dispatcher.Handle(ctx, inboundFromMessage(m))
	if !ok {
		return
	}
	for _, chunk := range commands.SplitMessage(reply, commands.MaxMessageLength) {
		if _, err := s.ChannelMessageSend(m.ChannelID, chunk); err != nil {
			log.Error().Err(err).Str("module", "bot").Str("channel", m.ChannelID).Msg("failed to send reply")
			return
		}
	}
}

func inboundFromMessage(m *discordgo.MessageCreate) commands.Inbound {
	in := commands.Inbound{
		Group:       m.ChannelID,
		Actor:       m.Author.ID,
		DisplayName: displayName(m.Member, m.Author),
		Text:        m.Content,
	}
	// A reply ping puts the replied-to author in Mentions too. Keep explicit
	// mentions first so Mentioned[0] is the user named in the text.
	var replyTo string
	if ref := m.ReferencedMessage; ref != nil && ref.Author != nil {
		replyTo = ref.Author.ID
	}
	seen := make(map[string]bool)
	for _, u := range m.Mentions {
		if u == nil || u.ID == "" || u.ID == replyTo || seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		in.Mentioned = append(in.Mentioned, u.ID)
	}
	if replyTo != "" {
		in.Mentioned = append(in.Mentioned, replyTo)
	}
	return in
}

func displayName(member *discordgo.Member, user *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user != nil {
		if user.Username != "" {
			return user.Username
		}
		return user.ID
	}
	return ""
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != commands.Prefix {
		return
	}

	in, ok := inboundFromInteraction(i)
	if !ok {
		return
	}
	reply, ok := b.dispatcher.Handle(context.Background(), in)
	if !ok {
		reply = "Unknown command."
	}

	chunks := commands.SplitMessage(reply, commands.MaxMessageLength)
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: chunks[0]},
	})
	if err != nil {
		log.Error().Err(err).Str("module", "bot").Str("channel", i.ChannelID).Msg("failed to respond to interaction")
		return
	}
	for _, chunk := range chunks[1:] {
		if _, err := s.ChannelMessageSend(i.ChannelID, chunk); err != nil {
			log.Error().Err(err).Str("module", "bot").Str("channel", i.ChannelID).Msg("failed to send reply")
			return
		}
	}
}

func inboundFromInteraction(i *discordgo.InteractionCreate) (commands.Inbound, bool) {
	var user *discordgo.User
	if i.Member != nil {
		user = i.Member.User
	}
	if user == nil {
		user = i.User
	}
	if user == nil {
		return commands.Inbound{}, false
	}

	text, mentioned := commands.SlashText(i.ApplicationCommandData())
	return commands.Inbound{
		Group:       i.ChannelID,
		Actor:       user.ID,
		DisplayName: displayName(i.Member, user),
		Text:        text,
		Mentioned:   mentioned,
	}, true
}
