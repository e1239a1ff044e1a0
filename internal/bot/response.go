package bot

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Replies to the user that invoked a command
type Responder interface {
	// Acknowledge the interaction, the reply comes later
	Defer(ephemeral bool) error
	// After Defer, the first reply keeps the visibility chosen there: an
	// error on a public command is public
	Reply(embed *discordgo.MessageEmbed, ephemeral bool) error
}

type interactionResponder struct {
	mu       sync.Mutex
	respond  func(response *discordgo.InteractionResponse) error
	followup func(params *discordgo.WebhookParams) error
	// Once set, the interaction has an initial response and only followups can be sent
	responded bool
	// Deferred and not yet answered. The next followup replaces the
	// deferred message and has its visibility
	pending          bool
	pendingEphemeral bool
}

func newInteractionResponder(session *discordgo.Session, interaction *discordgo.Interaction) *interactionResponder {
	return &interactionResponder{
		respond: func(response *discordgo.InteractionResponse) error {
			return session.InteractionRespond(interaction, response)
		},
		followup: func(params *discordgo.WebhookParams) error {
			_, err := session.FollowupMessageCreate(interaction, true, params)
			return err
		},
	}
}

func flags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

func (r *interactionResponder) Defer(ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.responded {
		return nil
	}
	err := r.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags(ephemeral)},
	})
	if err != nil {
		return fmt.Errorf("could not defer interaction: %w", err)
	}
	r.responded = true
	r.pending = true
	r.pendingEphemeral = ephemeral
	return nil
}

// Answer the interaction. When the initial response is already taken, or
// sending it fails, the embed goes out as a followup message
func (r *interactionResponder) Reply(embed *discordgo.MessageEmbed, ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.responded {
		err := r.respond(&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{embed},
				Flags:  flags(ephemeral),
			},
		})
		if err == nil {
			r.responded = true
			return nil
		}
		log.Warn().Err(err).Msg("Initial interaction response failed, falling back to a followup")
	}

	if r.pending {
		ephemeral = r.pendingEphemeral
	}
	err := r.followup(&discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  flags(ephemeral),
	})
	if err != nil {
		return fmt.Errorf("could not send followup: %w", err)
	}
	r.responded = true
	r.pending = false
	return nil
}
