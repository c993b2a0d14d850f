package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ninetyeight/builderbot/internal/bot"
)

// normalize converts a raw Telegram update into an engine event. Updates
// the engine has no use for are dropped.
func normalize(selfID int64, update tgbotapi.Update) (bot.Update, bool) {
	if update.MyChatMember != nil {
		m := update.MyChatMember
		if m.NewChatMember.User == nil || m.NewChatMember.User.ID != selfID {
			return bot.Update{}, false
		}
		return bot.Update{
			Actor: person(&m.From),
			Self: &bot.SelfChange{
				Chat: bot.ChatInfo{
					ID:    strconv.FormatInt(m.Chat.ID, 10),
					Title: m.Chat.Title,
					Type:  m.Chat.Type,
				},
				Status: m.NewChatMember.Status,
			},
		}, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return bot.Update{}, false
	}
	ev := bot.Update{
		Actor:  person(msg.From),
		ChatID: strconv.FormatInt(msg.Chat.ID, 10),
		Text:   msg.Text,
	}

	if len(msg.NewChatMembers) > 0 {
		for _, u := range msg.NewChatMembers {
			if u.ID == selfID {
				continue
			}
			ev.Joined = append(ev.Joined, person(&u))
		}
		if len(ev.Joined) == 0 {
			return bot.Update{}, false
		}
		return ev, true
	}
	if msg.LeftChatMember != nil {
		if msg.LeftChatMember.ID == selfID {
			return bot.Update{}, false
		}
		left := person(msg.LeftChatMember)
		ev.Left = &left
		return ev, true
	}

	if msg.IsCommand() {
		ev.Command = msg.Command()
	}
	return ev, true
}

func person(u *tgbotapi.User) bot.Person {
	if u == nil {
		return bot.Person{}
	}
	return bot.Person{
		ID:        strconv.FormatInt(u.ID, 10),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.UserName,
		IsBot:     u.IsBot,
	}
}
