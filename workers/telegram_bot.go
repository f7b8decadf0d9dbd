package workers

import (
	"context"
	"log"
	"strings"
	"time"

	"ariadne/config"
	"ariadne/models"
	"ariadne/reset"
	"ariadne/tools"

	"github.com/jinzhu/gorm"
)

// TelegramBot is the chat entry point for reset requests: the user sends
// /reset, replies with their email, and a pending token is issued. Delivery
// still goes through the dispatcher. Replies are uniform whether or not the
// account exists.
type TelegramBot struct {
	client tools.TelegramClient
	db     *gorm.DB
	issuer *reset.Issuer

	pollSeconds int
	// chat ids currently waiting for an email reply
	awaitingEmail map[int64]bool
}

func NewTelegramBot(cfg config.Configuration, db *gorm.DB, issuer *reset.Issuer) *TelegramBot {
	return &TelegramBot{
		client:        tools.TelegramClient{BotToken: cfg.Telegram.BotToken},
		db:            db,
		issuer:        issuer,
		pollSeconds:   cfg.Telegram.PollSeconds,
		awaitingEmail: map[int64]bool{},
	}
}

const ackReply = "If an account exists for that address, a reset link has been sent. Check your email."

// Run long-polls getUpdates until ctx is cancelled. The conversation state
// (waiting for an email) is in-memory only; a restart just means the user
// sends /reset again.
func (b *TelegramBot) Run(ctx context.Context) {
	log.Printf("telegram bot: started (polling)")

	var offset int64
	for {
		if ctx.Err() != nil {
			log.Printf("telegram bot: stopping")
			return
		}

		updates, err := b.client.GetUpdates(ctx, offset, b.pollSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("telegram bot: getUpdates error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message == nil {
				continue
			}
			b.handleMessage(ctx, u.Message.Chat.ID, strings.TrimSpace(u.Message.Text))
		}
	}
}

func (b *TelegramBot) handleMessage(ctx context.Context, chatID int64, text string) {
	switch {
	case text == "/start":
		b.reply(ctx, chatID, "Welcome! Send /reset to request a password reset link.")
	case text == "/reset":
		b.awaitingEmail[chatID] = true
		b.reply(ctx, chatID, "Please reply with the email of the account you want to reset (example: you@domain.com).")
	case text == "/cancel":
		delete(b.awaitingEmail, chatID)
		b.reply(ctx, chatID, "Cancelled.")
	case b.awaitingEmail[chatID]:
		b.handleEmailReply(ctx, chatID, text)
	default:
		b.reply(ctx, chatID, "Send /reset to request a password reset link.")
	}
}

func (b *TelegramBot) handleEmailReply(ctx context.Context, chatID int64, text string) {
	if !tools.ValidateEmail(text) {
		b.reply(ctx, chatID, "That doesn't look like a valid email. Please try again or send /cancel.")
		return
	}
	delete(b.awaitingEmail, chatID)

	var user models.User
	if err := b.db.Where("email = ?", strings.ToLower(text)).First(&user).Error; err != nil {
		// uniform ack: reveal nothing about account existence
		b.reply(ctx, chatID, ackReply)
		return
	}

	// Delivery goes to the account's email, never to the requesting chat: an
	// unauthenticated chat must not be able to pull the link to itself.
	if _, _, err := b.issuer.Issue(user.ID, models.RESET_CHANNEL_EMAIL, user.Email); err != nil {
		log.Printf("telegram bot: issue failed user_id=%d err=%v", user.ID, err)
	}

	b.reply(ctx, chatID, ackReply)
}

func (b *TelegramBot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.client.SendMessage(ctx, chatID, text); err != nil {
		log.Printf("telegram bot: send error chat=%d: %v", chatID, err)
	}
}
