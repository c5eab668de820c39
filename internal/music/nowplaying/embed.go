package nowplaying

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/JeudiD/Ningyo/internal/music/player"
	"github.com/JeudiD/Ningyo/internal/music/track"
	"github.com/bwmarrin/discordgo"
)

const EmbedColor = 0xb01e66

// Button custom IDs. They share the "music" prefix so the component
// dispatcher routes them to the music command.
const (
	ButtonPause   = "music:pause"
	ButtonResume  = "music:resume"
	ButtonSkip    = "music:skip"
	ButtonStop    = "music:stop"
	ButtonRepeat  = "music:repeat"
	ButtonVolUp   = "music:volup"
	ButtonVolDown = "music:voldown"
)

const progressWidth = 18

// Message is what the presenter publishes for one guild.
type Message struct {
	Embed      *discordgo.MessageEmbed
	Components []discordgo.MessageComponent
}

// Build renders a session snapshot.
func Build(st player.State) Message {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s %s", st.Status.StringEmoji(), heading(st.Status)),
		Color: EmbedColor,
	}

	t := st.Current
	if t == nil {
		embed.Description = "Nothing is playing."
		return Message{Embed: embed}
	}

	title := t.Title
	if title == "" {
		title = "Unknown track"
	}
	if link := t.Link(); link != "" {
		embed.Description = fmt.Sprintf("**[%s](%s)**", title, link)
	} else {
		embed.Description = "**" + title + "**"
	}
	embed.Description += "\n" + Progress(st.Elapsed, t)

	if t.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.Thumbnail}
	}

	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Requested by", Value: t.Requester.Mention(), Inline: true},
		{Name: "Repeat", Value: st.Repeat.String(), Inline: true},
		{Name: "Volume", Value: VolumePercent(st.Volume), Inline: true},
	}
	if len(st.Queue) > 0 {
		next := st.Queue[0].Title
		if len(st.Queue) > 1 {
			next = fmt.Sprintf("%s (+%d more)", next, len(st.Queue)-1)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Up next", Value: next})
	}
	if t.Source != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: t.Source}
	}

	return Message{Embed: embed, Components: controls(st.Status)}
}

func heading(s player.Status) string {
	switch s {
	case player.StatusPaused:
		return "Paused"
	case player.StatusConnecting:
		return "Connecting"
	default:
		return "Now Playing"
	}
}

// Progress renders a text progress bar, or a live marker for streams
// without a known length.
func Progress(elapsed time.Duration, t *track.Track) string {
	if t.Live() {
		return "🔴 LIVE · " + track.FormatDuration(elapsed)
	}

	length := t.Length()
	ratio := math.Min(1, math.Max(0, float64(elapsed)/float64(length)))
	pos := int(math.Round(ratio * float64(progressWidth-1)))

	var b strings.Builder
	for i := 0; i < progressWidth; i++ {
		if i == pos {
			b.WriteString("🔘")
		} else {
			b.WriteString("▬")
		}
	}
	return fmt.Sprintf("%s `%s / %s`", b.String(), track.FormatDuration(elapsed), track.FormatDuration(length))
}

func VolumePercent(v float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(v*100)))
}

func controls(status player.Status) []discordgo.MessageComponent {
	toggle := discordgo.Button{Label: "Pause", Emoji: &discordgo.ComponentEmoji{Name: "⏸"}, Style: discordgo.SecondaryButton, CustomID: ButtonPause}
	if status == player.StatusPaused {
		toggle = discordgo.Button{Label: "Resume", Emoji: &discordgo.ComponentEmoji{Name: "▶️"}, Style: discordgo.SuccessButton, CustomID: ButtonResume}
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			toggle,
			discordgo.Button{Label: "Skip", Emoji: &discordgo.ComponentEmoji{Name: "⏭"}, Style: discordgo.PrimaryButton, CustomID: ButtonSkip},
			discordgo.Button{Label: "Stop", Emoji: &discordgo.ComponentEmoji{Name: "⏹"}, Style: discordgo.DangerButton, CustomID: ButtonStop},
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Repeat", Emoji: &discordgo.ComponentEmoji{Name: "🔁"}, Style: discordgo.SecondaryButton, CustomID: ButtonRepeat},
			discordgo.Button{Label: "Vol -", Emoji: &discordgo.ComponentEmoji{Name: "🔉"}, Style: discordgo.SecondaryButton, CustomID: ButtonVolDown},
			discordgo.Button{Label: "Vol +", Emoji: &discordgo.ComponentEmoji{Name: "🔊"}, Style: discordgo.SecondaryButton, CustomID: ButtonVolUp},
		}},
	}
}
