package middleware

import (
	"time"

	"github.com/m3rciful/marketbot/core/logger"
	tghelpers "github.com/m3rciful/marketbot/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Logger logs a single receipt line per update and seeds the request context
// (rid + update metadata) consumed by downstream handlers and services.
func Logger(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		user := c.Sender()
		chat := c.Chat()

		chatID, userID := int64(0), int64(0)
		if chat != nil {
			chatID = chat.ID
		}
		if user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)

		ctx := logger.WithRID(logger.Background(), rid)
		ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.Component("tg"))
		tghelpers.StoreContext(c, ctx)

		start := time.Now()
		err := next(c)

		attrs := []slog.Attr{
			slog.String("status", logger.Status(err)),
			slog.Int("update_id", upd.ID),
			slog.Int64("user_id", userID),
			slog.Int64("chat_id", chatID),
			slog.String("rid", rid),
			slog.Duration("duration", logger.Took(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.String("err", err.Error()))
			logger.Error(ctx, "tg", "update.handled", attrs...)
			return err
		}
		logger.Debug(ctx, "tg", "update.handled", attrs...)
		return nil
	}
}
