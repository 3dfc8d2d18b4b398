// Package render turns playback and canteen state into Discord embeds.
// Everything here is a pure function of its arguments.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"

	"github.com/sipeed/picotune/pkg/playback"
)

const (
	ColorPlaying = 0x1DB954
	ColorIdle    = 0x5865F2
	ColorError   = 0xED4245
	ColorInfo    = 0xFEE75C

	barCells = 18
)

// NowPlaying renders the status block for the queue head. requester may be
// nil when the user is unknown.
func NowPlaying(p playback.Playing, requester *discordgo.User, now time.Time) *discordgo.MessageEmbed {
	t := p.Track

	desc := t.Title
	if t.URL != "" {
		desc = fmt.Sprintf("[%s](%s)", t.Title, t.URL)
	}
	if t.Author != "" {
		desc += "\nby " + t.Author
	}

	e := &discordgo.MessageEmbed{
		Title:       "Now playing",
		Description: desc,
		Color:       ColorPlaying,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Progress", Value: Progress(p.Position, t.Duration)},
			{Name: "Up next", Value: upNext(p.Upcoming), Inline: true},
		},
	}
	if t.ThumbnailURL != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.ThumbnailURL}
	}

	if requester != nil {
		footer := "Requested by " + DisplayName(requester)
		if !p.RequestedAt.IsZero() {
			footer += " · " + humanize.RelTime(p.RequestedAt, now, "ago", "from now")
		}
		e.Footer = &discordgo.MessageEmbedFooter{
			Text:    footer,
			IconURL: requester.AvatarURL("64"),
		}
	}
	return e
}

// Idle renders the block shown when the queue is empty.
func Idle() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Nothing is playing",
		Description: "The queue is empty. Add something with `/play`.",
		Color:       ColorIdle,
	}
}

// Error renders a short failure notice.
func Error(msg string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Something went wrong",
		Description: msg,
		Color:       ColorError,
	}
}

// QueuePage renders one page of the queue. page is zero based and clamped.
// It returns the embed and the number of pages.
func QueuePage(tracks []playback.Track, page, pageSize int) (*discordgo.MessageEmbed, int) {
	if pageSize <= 0 {
		pageSize = 10
	}
	pages := (len(tracks) + pageSize - 1) / pageSize
	if pages == 0 {
		pages = 1
	}
	page = Clamp(page, 0, pages-1)

	e := &discordgo.MessageEmbed{
		Title:  "Queue",
		Color:  ColorInfo,
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Page %d/%d · %d tracks", page+1, pages, len(tracks))},
	}
	if len(tracks) == 0 {
		e.Description = "The queue is empty."
		return e, pages
	}

	var b strings.Builder
	start := page * pageSize
	end := min(start+pageSize, len(tracks))
	for i := start; i < end; i++ {
		t := tracks[i]
		marker := fmt.Sprintf("`%d.`", i+1)
		if i == 0 {
			marker = "▶"
		}
		fmt.Fprintf(&b, "%s %s `%s`\n", marker, t.Title, Duration(t.Duration))
	}
	e.Description = b.String()
	return e, pages
}

// Progress draws a position bar with elapsed and total time.
func Progress(pos, total time.Duration) string {
	if total <= 0 {
		return "🔴 live · " + Duration(pos)
	}
	pos = max(0, min(pos, total))
	filled := int(float64(barCells) * float64(pos) / float64(total))
	if filled >= barCells {
		filled = barCells - 1
	}
	bar := strings.Repeat("▬", filled) + "🔘" + strings.Repeat("▬", barCells-filled-1)
	return fmt.Sprintf("%s `%s / %s`", bar, Duration(pos), Duration(total))
}

// Duration formats as m:ss, or h:mm:ss from one hour on.
func Duration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// DisplayName prefers the global display name over the username.
func DisplayName(u *discordgo.User) string {
	if u == nil {
		return "someone"
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func Clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func upNext(n int) string {
	switch n {
	case 0:
		return "nothing queued"
	case 1:
		return "1 track"
	default:
		return humanize.Comma(int64(n)) + " tracks"
	}
}
