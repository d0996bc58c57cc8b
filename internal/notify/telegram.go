// Package notify formats accepted listings and delivers them to Telegram
// subscribers with bounded retry.
package notify

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/bminaiev/zoopla-parser/internal/domain"
)

const delimiterMessage = "------------------------------"

// sender is the slice of the Telegram bot API the client uses; *tgbot.Bot
// satisfies it.
type sender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
	SendMediaGroup(ctx context.Context, params *tgbot.SendMediaGroupParams) ([]*models.Message, error)
}

// Client delivers one listing to one subscriber per Send call.
type Client struct {
	sender    sender
	policy    RetryPolicy
	maxPhotos int
	log       logrus.FieldLogger
}

// NewClient creates a Telegram delivery client.
func NewClient(token string, policy RetryPolicy, maxPhotos int, logger logrus.FieldLogger) (*Client, error) {
	b, err := tgbot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return newClient(b, policy, maxPhotos, logger), nil
}

func newClient(s sender, policy RetryPolicy, maxPhotos int, logger logrus.FieldLogger) *Client {
	return &Client{
		sender:    s,
		policy:    policy,
		maxPhotos: maxPhotos,
		log:       logger.WithField("component", "notify"),
	}
}

// Send pushes the listing to the subscriber: a delimiter message, then a
// media group with the floor plan first and an HTML caption. Terminal
// transport failures are logged and swallowed (the payload will never be
// accepted, resending next cycle cannot help); retryable failures are
// retried per the policy and surface ErrRetriesExhausted when the bound is
// hit.
func (c *Client) Send(ctx context.Context, sub domain.Subscriber, l *domain.Listing) error {
	return c.SendTo(ctx, sub.ChatID, sub.Name, l)
}

// SendTo is Send with an explicit chat id, used by the diagnostic mode.
func (c *Client) SendTo(ctx context.Context, chatID int64, recipient string, l *domain.Listing) error {
	log := c.log.WithFields(logrus.Fields{
		"listing_id": l.ID,
		"recipient":  recipient,
	})

	media := c.buildMedia(l)
	log.WithField("photos", len(media)).Info("Sending listing")

	return c.withRetry(ctx, log, func() error {
		if _, err := c.sender.SendMessage(ctx, &tgbot.SendMessageParams{
			ChatID: chatID,
			Text:   delimiterMessage,
		}); err != nil {
			return err
		}
		_, err := c.sender.SendMediaGroup(ctx, &tgbot.SendMediaGroupParams{
			ChatID: chatID,
			Media:  media,
		})
		return err
	})
}

// buildMedia caps the photo batch at maxPhotos with the floor plan always
// first, and attaches the caption to the first item.
func (c *Client) buildMedia(l *domain.Listing) []models.InputMedia {
	urls := append([]string{l.FloorPlanURL}, l.Photos...)
	truncated := len(urls) > c.maxPhotos
	if truncated {
		urls = urls[:c.maxPhotos]
	}

	caption := c.buildCaption(l, truncated)

	media := make([]models.InputMedia, 0, len(urls))
	for i, url := range urls {
		photo := &models.InputMediaPhoto{Media: url}
		if i == 0 {
			photo.Caption = caption
			photo.ParseMode = models.ParseModeHTML
		}
		media = append(media, photo)
	}
	return media
}

func (c *Client) buildCaption(l *domain.Listing, truncated bool) string {
	price := "price unknown"
	if l.Price != nil {
		price = l.Price.String()
	}

	caption := fmt.Sprintf("%s\n%s\n%s\n%s\narea: %s\n",
		price, l.Link, l.Address.Text, l.Address.MapsLink, l.AreaLabel())
	if l.Tag != "" {
		caption += fmt.Sprintf("<b>tag:</b> %s\n", l.Tag)
	}
	if truncated {
		caption += "(more photos available)\n"
	}
	return caption
}

// withRetry runs send under the retry policy.
func (c *Client) withRetry(ctx context.Context, log logrus.FieldLogger, send func() error) error {
	for attempt := 1; ; attempt++ {
		err := send()
		if err == nil {
			return nil
		}

		if !c.policy.IsRetryable(err) {
			// The transport rejected the payload; no amount of retrying
			// (now or next cycle) changes that. Completed non-delivery.
			log.WithError(err).Error("Terminal delivery failure, giving up on this payload")
			return nil
		}

		if attempt >= c.policy.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, attempt, err)
		}

		log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"backoff": c.policy.Backoff,
		}).Warn("Delivery failed, will retry")

		if err := c.policy.sleep(ctx); err != nil {
			return fmt.Errorf("delivery interrupted: %w", err)
		}
	}
}
