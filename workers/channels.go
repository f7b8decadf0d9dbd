package workers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ariadne/config"
	"ariadne/models"
	"ariadne/reset"
	"ariadne/tools"
)

// NewChannels builds the delivery channels from config. Keys match the
// token's Channel column.
func NewChannels(cfg config.Configuration) map[string]reset.Channel {
	return map[string]reset.Channel{
		models.RESET_CHANNEL_TELEGRAM: telegramChannel{
			client: tools.TelegramClient{BotToken: cfg.Telegram.BotToken},
		},
		models.RESET_CHANNEL_EMAIL: emailChannel{
			mailer: tools.Mailer{
				Host: cfg.Smtp.Host,
				Port: cfg.Smtp.Port,
				User: cfg.Smtp.User,
				Pass: cfg.Smtp.Pass,
				From: cfg.Smtp.From,
			},
			expiryMinutes: cfg.Reset.ExpiryMinutes,
		},
	}
}

type telegramChannel struct {
	client tools.TelegramClient
}

func (ch telegramChannel) Send(ctx context.Context, token models.ResetToken) error {
	chatID, err := strconv.ParseInt(token.Recipient, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad chat id %q", reset.ErrPermanentSend, token.Recipient)
	}

	text := "A password reset was requested for your account. Open the link below to set a new password:\n\n" +
		token.Link +
		"\n\nIf you didn't request this, ignore this message."

	if err := ch.client.SendMessage(ctx, chatID, text); err != nil {
		var apiErr *tools.TelegramAPIError
		// 4xx other than 429 means the chat is gone or the request is bad;
		// retrying won't help
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != 429 {
			return fmt.Errorf("%w: %v", reset.ErrPermanentSend, err)
		}
		return err
	}
	return nil
}

type emailChannel struct {
	mailer        tools.Mailer
	expiryMinutes int
}

func (ch emailChannel) Send(ctx context.Context, token models.ResetToken) error {
	if !ch.mailer.Configured() {
		return fmt.Errorf("%w: smtp not configured", reset.ErrPermanentSend)
	}
	if !tools.ValidateEmail(token.Recipient) {
		return fmt.Errorf("%w: bad recipient address", reset.ErrPermanentSend)
	}
	// gomail has no ctx support; SMTP failures here are treated as transient
	_ = ctx
	return ch.mailer.SendResetLink(token.Recipient, token.Link, ch.expiryMinutes)
}
