// Package platform holds the Discord-backed implementations of the
// collaborator interfaces the staff manager consumes.
package platform

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordMembership implements model.Membership on a discordgo session.
type DiscordMembership struct {
	session *discordgo.Session
}

func NewDiscordMembership(session *discordgo.Session) *DiscordMembership {
	return &DiscordMembership{session: session}
}

func (d *DiscordMembership) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return d.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

func (d *DiscordMembership) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	return d.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
}

func (d *DiscordMembership) UserRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	member, err := d.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member %s in guild %s: %w", userID, guildID, err)
	}
	return member.Roles, nil
}

// DiscordNotifier implements model.Notifier. Audit posts go to the guild's
// configured audit channel, resolved through the auditChannel func so config
// reloads take effect without rebuilding the notifier.
type DiscordNotifier struct {
	session      *discordgo.Session
	auditChannel func(guildID string) string
}

func NewDiscordNotifier(session *discordgo.Session, auditChannel func(guildID string) string) *DiscordNotifier {
	return &DiscordNotifier{session: session, auditChannel: auditChannel}
}

func (d *DiscordNotifier) NotifyUser(ctx context.Context, userID, message string) error {
	channel, err := d.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel for user %s: %w", userID, err)
	}
	_, err = d.session.ChannelMessageSend(channel.ID, message, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to DM user %s: %w", userID, err)
	}
	return nil
}

func (d *DiscordNotifier) PostAudit(ctx context.Context, guildID, message string) error {
	channelID := d.auditChannel(guildID)
	if channelID == "" {
		return nil
	}
	_, err := d.session.ChannelMessageSend(channelID, message, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to post audit message for guild %s: %w", guildID, err)
	}
	return nil
}
