package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/susu3304/bbbot/internal/game"
)

type Engine interface {
	Create(ctx context.Context, group, actor, displayName, rawSpec string) (string, error)
	List(group string) (string, error)
	Join(ctx context.Context, group, actor, displayName string) (game.JoinOutcome, error)
	Leave(ctx context.Context, group, actor string) (game.LeaveResult, error)
	Cancel(ctx context.Context, group string) bool
}

type Registry interface {
	IsAdmin(actor, group string) bool
	AddAdmin(ctx context.Context, group, actor string) error
	ApproveLocation(ctx context.Context, group, location string) error
	RegisterMember(ctx context.Context, group, actor, location string) error
	Members(group, location string) []string
}

const (
	msgPermissionDenied = "❌ Permission denied."
	msgSaveFailed       = "⚠️ Could not save that change, please try again."
)

// Dispatcher routes a parsed command to exactly one engine or registry call.
type Dispatcher struct {
	engine   Engine
	registry Registry
	// FormatUser renders a user ID in replies, e.g. as a mention.
	FormatUser func(id string) string
}

func NewDispatcher(engine Engine, registry Registry) *Dispatcher {
	return &Dispatcher{
		engine:     engine,
		registry:   registry,
		FormatUser: func(id string) string { return id },
	}
}

// Handle executes the command in msg. ok is false when the message is not a
// known command and nothing should be sent back.
func (d *Dispatcher) Handle(ctx context.Context, msg Inbound) (reply string, ok bool) {
	cmd, ok := Parse(msg.Text)
	if !ok {
		return "", false
	}
	log.Debug().Str("module", "commands").Str("group", msg.Group).Str("actor", msg.Actor).
		Str("cmd", cmd.Name).Strs("args", cmd.Args).Msg("received command")

	switch cmd.Name {
	case "game":
		return d.createGame(ctx, msg, cmd.Args), true
	case "list":
		return d.list(msg), true
	case "in":
		return d.join(ctx, msg), true
	case "out":
		return d.leave(ctx, msg), true
	case "cancel":
		return d.cancel(ctx, msg), true
	case "admin":
		return d.addAdmin(ctx, msg), true
	case "location":
		return d.approveLocation(ctx, msg, cmd.Args), true
	case "member":
		return d.registerMember(ctx, msg, cmd.Args), true
	case "members":
		return d.members(msg, cmd.Args), true
	case "explain", "help":
		return "📖 Available commands:\n" + Help(d.registry.IsAdmin(msg.Actor, msg.Group)), true
	default:
		return "", false
	}
}

func (d *Dispatcher) createGame(ctx context.Context, msg Inbound, args []string) string {
	if !d.registry.IsAdmin(msg.Actor, msg.Group) {
		return "❌ Only admins or super admins can create games."
	}
	label, err := d.engine.Create(ctx, msg.Group, msg.Actor, msg.DisplayName, strings.Join(args, " "))
	switch {
	case errors.Is(err, game.ErrMalformedSpec):
		return "⚠️ Usage: *bb game <where> <day> <time> <max> [minMembers]*"
	case errors.Is(err, game.ErrLocationNotApproved):
		return "⚠️ This location is not approved yet."
	case err != nil:
		log.Error().Err(err).Str("module", "commands").Str("group", msg.Group).Msg("create game failed")
		return "❌ Could not create the game."
	}
	return fmt.Sprintf("✅ Game created for %s. Players can now join using *bb in*.", label)
}

func (d *Dispatcher) list(msg Inbound) string {
	text, err := d.engine.List(msg.Group)
	if err != nil {
		return "❌ No game currently active."
	}
	return text
}

func (d *Dispatcher) join(ctx context.Context, msg Inbound) string {
	outcome, err := d.engine.Join(ctx, msg.Group, msg.Actor, msg.DisplayName)
	if err != nil {
		return "❌ No game active. Ask an admin to start one."
	}
	switch outcome {
	case game.AlreadyPlayer:
		return "⚠️ You are already in."
	case game.AlreadyWaitlisted:
		return "⚠️ You are already on the waitlist."
	case game.Waitlisted:
		return "⏳ Game full or minimum members not met. You've been added to the waitlist."
	default:
		return "✅ Added!"
	}
}

func (d *Dispatcher) leave(ctx context.Context, msg Inbound) string {
	res, err := d.engine.Leave(ctx, msg.Group, msg.Actor)
	if err != nil {
		return "❌ No game active."
	}
	if res.Promoted != nil {
		return fmt.Sprintf("👋 Removed! ✅ Promoted %s from waitlist.", res.Promoted.Name)
	}
	return "👋 Removed!"
}

func (d *Dispatcher) cancel(ctx context.Context, msg Inbound) string {
	if !d.registry.IsAdmin(msg.Actor, msg.Group) {
		return "❌ Only admins or super admins can cancel the game."
	}
	d.engine.Cancel(ctx, msg.Group)
	return "🚫 Game cancelled."
}

func (d *Dispatcher) addAdmin(ctx context.Context, msg Inbound) string {
	if !d.registry.IsAdmin(msg.Actor, msg.Group) {
		return msgPermissionDenied
	}
	if len(msg.Mentioned) == 0 {
		return "⚠️ Usage: *bb admin @user*"
	}
	target := msg.Mentioned[0]
	if err := d.registry.AddAdmin(ctx, msg.Group, target); err != nil {
		log.Error().Err(err).Str("module", "commands").Str("group", msg.Group).Msg("add admin failed")
		return msgSaveFailed
	}
	return fmt.Sprintf("👑 %s is now an admin.", d.FormatUser(target))
}

func (d *Dispatcher) approveLocation(ctx context.Context, msg Inbound, args []string) string {
	if !d.registry.IsAdmin(msg.Actor, msg.Group) {
		return msgPermissionDenied
	}
	if len(args) == 0 {
		return "⚠️ Usage: *bb location <name>*"
	}
	if err := d.registry.ApproveLocation(ctx, msg.Group, args[0]); err != nil {
		log.Error().Err(err).Str("module", "commands").Str("group", msg.Group).Msg("approve location failed")
		return msgSaveFailed
	}
	return fmt.Sprintf("📍 Location *%s* approved.", args[0])
}

func (d *Dispatcher) registerMember(ctx context.Context, msg Inbound, args []string) string {
	if !d.registry.IsAdmin(msg.Actor, msg.Group) {
		return msgPermissionDenied
	}
	if len(args) == 0 || len(msg.Mentioned) == 0 {
		return "⚠️ Usage: *bb member <location> @user*"
	}
	location := args[0]
	if err := d.registry.RegisterMember(ctx, msg.Group, msg.Mentioned[0], location); err != nil {
		log.Error().Err(err).Str("module", "commands").Str("group", msg.Group).Msg("register member failed")
		return msgSaveFailed
	}
	return fmt.Sprintf("✅ Added %s as member of %s", d.FormatUser(msg.Mentioned[0]), location)
}

func (d *Dispatcher) members(msg Inbound, args []string) string {
	if len(args) == 0 {
		return "⚠️ Usage: *bb members <location>*"
	}
	location := args[0]
	ids := d.registry.Members(msg.Group, location)
	if len(ids) == 0 {
		return fmt.Sprintf("❌ No members found for *%s*.", location)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "👥 Members of *%s*:", location)
	for i, id := range ids {
		fmt.Fprintf(&b, "\n%d. %s", i+1, d.FormatUser(id))
	}
	return b.String()
}
