package usecases

import (
	"errors"

	"github.com/sglre6355/jukebot/internal/modules/music_player/application/player"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// MusicService is the command layer of the music player. It validates
// requests, manages the voice connection and forwards work to the guild
// controllers held by the registry.
type MusicService struct {
	registry        *player.Registry
	voiceConnection ports.VoiceConnection
	voiceState      ports.VoiceStateProvider
}

// NewMusicService creates a new MusicService.
func NewMusicService(
	registry *player.Registry,
	voiceConnection ports.VoiceConnection,
	voiceState ports.VoiceStateProvider,
) *MusicService {
	return &MusicService{
		registry:        registry,
		voiceConnection: voiceConnection,
		voiceState:      voiceState,
	}
}

// maxAttempts bounds retries when a controller stops between lookup and use.
const maxAttempts = 2

// notConnected maps a controller that stopped under the caller to ErrNotConnected.
func notConnected(err error) error {
	if errors.Is(err, domain.ErrControllerStopped) {
		return ErrNotConnected
	}
	return err
}
