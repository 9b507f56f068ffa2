package bot

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// logUpdates tags every update with a request id and logs how it went.
func (b *Bot) logUpdates(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		fields := []zap.Field{
			zap.String("request_id", uuid.NewString()),
			zap.Int("update_id", c.Update().ID),
		}
		if chat := c.Chat(); chat != nil {
			fields = append(fields, zap.Int64("chat_id", chat.ID))
		}
		if u := c.Sender(); u != nil {
			fields = append(fields, zap.Int64("sender_id", u.ID))
		}

		err := next(c)
		fields = append(fields, zap.Duration("elapsed", time.Since(start)))
		if err != nil {
			b.log.Error("update failed", append(fields, zap.Error(err))...)
			return err
		}
		b.log.Debug("update handled", fields...)
		return nil
	}
}
