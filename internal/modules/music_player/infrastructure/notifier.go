package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorRed     = 0xE74C3C
	colorBlurple = 0x5865F2
)

// Notifier posts player notifications as embeds in a guild's notification channel.
type Notifier struct {
	session    *discordgo.Session
	httpClient *http.Client
}

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{
		session: session,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// SendNowPlaying sends a "Now Playing" embed to the channel and returns the message ID.
func (n *Notifier) SendNowPlaying(
	channelID snowflake.ID,
	info *ports.NowPlayingInfo,
) (snowflake.ID, error) {
	source := domain.ParseTrackSource(info.SourceName)
	thumbnailURL := n.getBestThumbnail(source, info.Identifier, info.ArtworkURL)

	msg, err := n.session.ChannelMessageSendEmbed(channelID.String(), nowPlayingEmbed(info, thumbnailURL))
	if err != nil {
		return 0, err
	}
	return snowflake.Parse(msg.ID)
}

// DeleteMessage deletes a message from the channel.
func (n *Notifier) DeleteMessage(channelID snowflake.ID, messageID snowflake.ID) error {
	return n.session.ChannelMessageDelete(channelID.String(), messageID.String())
}

// SendError sends an error message embed to the channel.
func (n *Notifier) SendError(channelID snowflake.ID, message string) error {
	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), &discordgo.MessageEmbed{
		Description: message,
		Color:       colorRed,
	})
	return err
}

// SendInfo sends a plain informational embed to the channel.
func (n *Notifier) SendInfo(channelID snowflake.ID, message string) error {
	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), &discordgo.MessageEmbed{
		Description: message,
		Color:       colorBlurple,
	})
	return err
}

// nowPlayingEmbed builds the "Now Playing" embed.
func nowPlayingEmbed(info *ports.NowPlayingInfo, thumbnailURL string) *discordgo.MessageEmbed {
	source := domain.ParseTrackSource(info.SourceName)

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name:    "Now playing",
			IconURL: source.IconURL(),
		},
		Title: info.Title,
		URL:   info.URI,
		Color: source.Color(),
		Footer: &discordgo.MessageEmbedFooter{
			Text:    fmt.Sprintf("Requested by %s", info.RequesterName),
			IconURL: info.RequesterAvatarURL,
		},
	}

	if !info.EnqueuedAt.IsZero() {
		embed.Timestamp = info.EnqueuedAt.UTC().Format(time.RFC3339)
	}

	if info.Artist != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Artist",
			Value:  info.Artist,
			Inline: true,
		})
	}

	if !info.IsStream {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Duration",
			Value:  info.Duration,
			Inline: true,
		})
	}

	if thumbnailURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{
			URL: thumbnailURL,
		}
	}

	return embed
}

// thumbnailProbeTimeout bounds all HEAD requests for one notification.
const thumbnailProbeTimeout = 5 * time.Second

// youtubeThumbnailQualities are tried from best to worst.
var youtubeThumbnailQualities = []string{"maxresdefault", "sddefault", "hqdefault", "mqdefault"}

// thumbnailCandidates lists image URLs for a track, best first. The artwork
// reported by the source is always last since it is known to exist.
func thumbnailCandidates(source domain.TrackSource, identifier, artworkURL string) []string {
	var candidates []string

	switch source {
	case domain.TrackSourceYouTube:
		if identifier != "" {
			for _, quality := range youtubeThumbnailQualities {
				candidates = append(candidates,
					fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", identifier, quality))
			}
		}
	case domain.TrackSourceTwitch:
		// Twitch previews come in 440x248; the same path serves 1280x720.
		if highRes := strings.Replace(artworkURL, "440x248", "1280x720", 1); highRes != artworkURL {
			candidates = append(candidates, highRes)
		}
	}

	if artworkURL != "" {
		candidates = append(candidates, artworkURL)
	}

	return candidates
}

// getBestThumbnail returns the first candidate that answers a HEAD request,
// or the source artwork when none does.
func (n *Notifier) getBestThumbnail(source domain.TrackSource, identifier, artworkURL string) string {
	candidates := thumbnailCandidates(source, identifier, artworkURL)
	if len(candidates) == 0 {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), thumbnailProbeTimeout)
	defer cancel()

	for _, url := range candidates {
		if url == artworkURL {
			return url
		}
		if n.urlExists(ctx, url) {
			return url
		}
	}

	return artworkURL
}

// urlExists reports whether url answers a HEAD request with 200 OK.
func (n *Notifier) urlExists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

var _ ports.NotificationSender = (*Notifier)(nil)
