package workers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ariadne/models"
	"ariadne/reset"
	"ariadne/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func telegramToken(recipient string) models.ResetToken {
	return models.ResetToken{
		ID:        "t1",
		AccountID: 1,
		Channel:   models.RESET_CHANNEL_TELEGRAM,
		Recipient: recipient,
		Link:      "http://localhost:8080/reset?token=abc",
	}
}

func TestTelegramChannelSend(t *testing.T) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	ch := telegramChannel{client: tools.TelegramClient{BotToken: "x", ApiBase: srv.URL}}

	err := ch.Send(context.Background(), telegramToken("12345"))
	require.NoError(t, err)
	assert.Contains(t, fake.lastReply(), "/reset?token=abc")
}

func TestTelegramChannelClassifiesFailures(t *testing.T) {
	t.Run("bad chat id is permanent", func(t *testing.T) {
		ch := telegramChannel{client: tools.TelegramClient{BotToken: "x"}}
		err := ch.Send(context.Background(), telegramToken("not-a-number"))
		assert.ErrorIs(t, err, reset.ErrPermanentSend)
	})

	t.Run("403 is permanent", func(t *testing.T) {
		fake := &fakeTelegram{status: http.StatusForbidden}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()

		ch := telegramChannel{client: tools.TelegramClient{BotToken: "x", ApiBase: srv.URL}}
		err := ch.Send(context.Background(), telegramToken("12345"))
		assert.ErrorIs(t, err, reset.ErrPermanentSend)
	})

	t.Run("500 is transient", func(t *testing.T) {
		fake := &fakeTelegram{status: http.StatusInternalServerError}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()

		ch := telegramChannel{client: tools.TelegramClient{BotToken: "x", ApiBase: srv.URL}}
		err := ch.Send(context.Background(), telegramToken("12345"))
		require.Error(t, err)
		assert.False(t, errors.Is(err, reset.ErrPermanentSend))
	})

	t.Run("429 is transient", func(t *testing.T) {
		fake := &fakeTelegram{status: http.StatusTooManyRequests}
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()

		ch := telegramChannel{client: tools.TelegramClient{BotToken: "x", ApiBase: srv.URL}}
		err := ch.Send(context.Background(), telegramToken("12345"))
		require.Error(t, err)
		assert.False(t, errors.Is(err, reset.ErrPermanentSend))
	})
}

func TestEmailChannelRequiresConfig(t *testing.T) {
	ch := emailChannel{mailer: tools.Mailer{}, expiryMinutes: 30}

	token := telegramToken("someone@example.com")
	token.Channel = models.RESET_CHANNEL_EMAIL

	err := ch.Send(context.Background(), token)
	assert.ErrorIs(t, err, reset.ErrPermanentSend)
}

func TestEmailChannelRejectsBadAddress(t *testing.T) {
	ch := emailChannel{
		mailer:        tools.Mailer{Host: "smtp.example.com", From: "no-reply@example.com"},
		expiryMinutes: 30,
	}

	token := telegramToken("nonsense")
	token.Channel = models.RESET_CHANNEL_EMAIL

	err := ch.Send(context.Background(), token)
	assert.ErrorIs(t, err, reset.ErrPermanentSend)
}
