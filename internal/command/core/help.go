package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/JeudiD/Ningyo/internal/config"
	"github.com/JeudiD/Ningyo/pkg/cmd"
	"github.com/bwmarrin/discordgo"
)

type HelpCommand struct {
	information
	Registry *cmd.Registry
	Prefix   string
	AppName  string
}

func (*HelpCommand) Name() string        { return "help" }
func (*HelpCommand) Description() string { return "Get a list of available commands" }
func (*HelpCommand) Aliases() []string   { return []string{"h", "commands"} }

func (c *HelpCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "view",
				Description: "How to list the commands",
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "By category", Value: "category"},
					{Name: "Flat list", Value: "flat"},
				},
			},
		},
	}
}

func (c *HelpCommand) Run(_ context.Context, cc *command.Context) error {
	var body string
	if cc.Arg("view", 0) == "flat" {
		body = HelpFlat(c.Registry, c.Prefix)
	} else {
		body = HelpByCategory(c.Registry, c.Prefix)
	}
	title := "Help"
	if c.AppName != "" {
		title = c.AppName + " Help"
	}
	return cc.Caller.ReplyEmbed(&discordgo.MessageEmbed{
		Title:       title,
		Description: body,
		Color:       command.EmbedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Every command also works as " + c.Prefix + "<name>"},
	}, true)
}

// listed returns the commands users can invoke by name. Button handlers
// have no slash definition and stay hidden.
func listed(reg *cmd.Registry) []cmd.Command {
	var out []cmd.Command
	for _, c := range reg.GetAll() {
		if command.Definition(c) != nil {
			out = append(out, c)
		}
	}
	return out
}

func category(c cmd.Command) string {
	if meta, ok := cmd.As[command.DiscordMeta](c); ok {
		return meta.Category()
	}
	return ""
}

func line(prefix string, c cmd.Command) string {
	s := fmt.Sprintf("`%s%s` - %s", prefix, c.Name(), c.Description())
	if a, ok := cmd.As[cmd.Aliased](c); ok && len(a.Aliases()) > 0 {
		s += fmt.Sprintf(" (%s)", strings.Join(a.Aliases(), ", "))
	}
	return s
}

// HelpByCategory lists commands under their category headings, ordered by
// config.CategoryWeights.
func HelpByCategory(reg *cmd.Registry, prefix string) string {
	byCat := make(map[string][]cmd.Command)
	var cats []string
	for _, c := range listed(reg) {
		cat := category(c)
		if _, ok := byCat[cat]; !ok {
			cats = append(cats, cat)
		}
		byCat[cat] = append(byCat[cat], c)
	}
	sort.SliceStable(cats, func(i, j int) bool {
		wi, wj := config.CategoryWeights[cats[i]], config.CategoryWeights[cats[j]]
		if wi != wj {
			return wi < wj
		}
		return cats[i] < cats[j]
	})

	var sb strings.Builder
	for _, cat := range cats {
		heading := cat
		if heading == "" {
			heading = "Other"
		}
		fmt.Fprintf(&sb, "**%s**\n", heading)
		for _, c := range byCat[cat] {
			sb.WriteString(line(prefix, c) + "\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// HelpFlat lists every command alphabetically.
func HelpFlat(reg *cmd.Registry, prefix string) string {
	var lines []string
	for _, c := range listed(reg) {
		lines = append(lines, line(prefix, c))
	}
	return strings.Join(lines, "\n")
}
