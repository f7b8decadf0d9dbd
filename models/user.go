package models

import (
	"ariadne/tools"
	"time"
)

const USER_STATUS_AVAILABLE = 0
const USER_STATUS_BLOCKED = 2

// User is an account in the credential store. TelegramChatID is filled the
// first time the user talks to the bot and is what the delivery worker uses as
// the chat recipient.
type User struct {
	ID             int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Name           string     `gorm:"not null" json:"name" form:"name"`
	Email          string     `gorm:"not null;unique" json:"email" form:"email"`
	Password       string     `gorm:"not null" json:"password" form:"password"`
	TelegramChatID int64      `gorm:"column:telegram_chat_id;default:0" json:"telegram_chat_id" form:"telegram_chat_id"`
	Status         int        `gorm:"default:0" json:"status" form:"status"`
	CreatedAt      *time.Time `json:"created_at" form:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at" form:"updated_at"`
}

func (user User) MissingFields() string {
	if user.Name == "" {
		return "name"
	} else if user.Email == "" {
		return "email"
	} else if user.Password == "" {
		return "password"
	} else if tools.CheckPassword(user.Password) != "" {
		return tools.CheckPassword(user.Password)
	}
	return ""
}
