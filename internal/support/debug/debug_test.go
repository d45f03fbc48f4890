package debug

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("я", 60)
	tests := []struct {
		name string
		upd  tgbotapi.Update
		want string
	}{
		{
			name: "message with username",
			upd: tgbotapi.Update{Message: &tgbotapi.Message{
				From: &tgbotapi.User{FirstName: "Ann", LastName: "Lee", UserName: "ann"},
				Text: "https://www.olx.pl/d/oferta/x",
			}},
			want: "message > 'Ann Lee' (@ann): https://www.olx.pl/d/oferta/x",
		},
		{
			name: "callback without name",
			upd: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				From: &tgbotapi.User{}, Data: "set_crop:5",
			}},
			want: "callback > '<unknown>': set_crop:5",
		},
		{
			name: "long text is cut by runes",
			upd:  tgbotapi.Update{Message: &tgbotapi.Message{Text: long}},
			want: "message > <unknown>: " + strings.Repeat("я", textMaxLen) + "...",
		},
		{
			name: "empty update",
			upd:  tgbotapi.Update{},
			want: "other > <unknown>: ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Describe(tt.upd))
		})
	}
}

func TestEnabledToggle(t *testing.T) {
	SetEnabled(true)
	assert.True(t, Enabled())
	SetEnabled(false)
	assert.False(t, Enabled())
}
