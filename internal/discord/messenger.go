package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JeudiD/Ningyo/internal/music/nowplaying"
	"github.com/bwmarrin/discordgo"
)

// Discord refuses to bulk delete messages older than two weeks.
const bulkDeleteMaxAge = 14*24*time.Hour - time.Hour

// Messenger posts and edits channel messages. It implements
// nowplaying.Messenger and the purge command's Purger.
type Messenger struct {
	Session *discordgo.Session
}

func (m *Messenger) Send(ctx context.Context, channelID string, msg nowplaying.Message) (string, error) {
	sent, err := m.Session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{msg.Embed},
		Components: msg.Components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return sent.ID, nil
}

func (m *Messenger) Edit(ctx context.Context, channelID, messageID string, msg nowplaying.Message) error {
	edit := discordgo.NewMessageEdit(channelID, messageID)
	embeds := []*discordgo.MessageEmbed{msg.Embed}
	components := msg.Components
	edit.Embeds = &embeds
	edit.Components = &components
	_, err := m.Session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return err
}

func (m *Messenger) Delete(ctx context.Context, channelID, messageID string) error {
	err := m.Session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	if isUnknownMessage(err) {
		return nil
	}
	return err
}

// Purge deletes up to limit of the newest messages in channelID. Recent
// messages go in bulk, older ones one at a time.
func (m *Messenger) Purge(ctx context.Context, channelID string, limit int) (int, error) {
	var (
		msgs   []*discordgo.Message
		before string
	)
	for len(msgs) < limit {
		page, err := m.Session.ChannelMessages(channelID, min(100, limit-len(msgs)), before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return 0, fmt.Errorf("fetch messages: %w", err)
		}
		msgs = append(msgs, page...)
		if len(page) < 100 {
			break
		}
		before = page[len(page)-1].ID
	}

	recent, old := partitionByAge(msgs, time.Now())
	deleted := 0
	for start := 0; start < len(recent); start += 100 {
		chunk := recent[start:min(start+100, len(recent))]
		if err := m.Session.ChannelMessagesBulkDelete(channelID, chunk, discordgo.WithContext(ctx)); err != nil {
			return deleted, fmt.Errorf("bulk delete: %w", err)
		}
		deleted += len(chunk)
	}
	for _, id := range old {
		if err := m.Delete(ctx, channelID, id); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", id, err)
		}
		deleted++
	}
	return deleted, nil
}

func partitionByAge(msgs []*discordgo.Message, now time.Time) (recent, old []string) {
	for _, msg := range msgs {
		if now.Sub(msg.Timestamp) < bulkDeleteMaxAge {
			recent = append(recent, msg.ID)
		} else {
			old = append(old, msg.ID)
		}
	}
	return recent, old
}

func isUnknownMessage(err error) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownMessage
}
