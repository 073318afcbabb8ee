// Package bot binds the registration service to Telegram: commands, the
// text route that feeds active sessions, and the menu callbacks.
package bot

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
	"log/slog"

	"github.com/m3rciful/marketbot/core/logger"
	tghelpers "github.com/m3rciful/marketbot/core/telegram/helpers"
	"github.com/m3rciful/marketbot/otp"
	"github.com/m3rciful/marketbot/sellers"
	"github.com/m3rciful/marketbot/storage"
)

// Handlers holds the application services the bot routes dispatch into.
type Handlers struct {
	svc  *sellers.Service
	otps storage.OTPStore
}

// NewHandlers wires the registration service and the OTP store.
func NewHandlers(svc *sellers.Service, otps storage.OTPStore) *Handlers {
	return &Handlers{svc: svc, otps: otps}
}

func userFrom(c tele.Context) sellers.User {
	sender := c.Sender()
	if sender == nil {
		return sellers.User{}
	}
	name := strings.TrimSpace(strings.TrimSpace(sender.FirstName) + " " + strings.TrimSpace(sender.LastName))
	return sellers.User{ID: sender.ID, Name: name, Username: sender.Username}
}

// sendReply delivers a service reply; menu-bearing replies get the seller
// menu as a follow-up message.
func (h *Handlers) sendReply(c tele.Context, r sellers.Reply) error {
	if r.State == sellers.StateIdle || r.Text == "" {
		return nil
	}
	var err error
	if r.ShowMenu {
		// Plain text: these messages may interpolate user-provided names.
		err = tghelpers.SendText(c, r.Text)
	} else {
		err = tghelpers.SendMD(c, r.Text)
	}
	if err != nil {
		return err
	}
	if r.ShowMenu {
		return tghelpers.SendText(c, "Seller Menu:", &tele.SendOptions{ReplyMarkup: SellerMenu()})
	}
	return nil
}

// Start begins or resumes the seller onboarding conversation.
func (h *Handlers) Start(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "start")
	r, err := h.svc.Start(ctx, userFrom(c))
	if err != nil {
		// Already logged by the service; the user still gets the reply text.
		_ = h.sendReply(c, r)
		return nil
	}
	return h.sendReply(c, r)
}

// Cancel aborts the active registration session, if any.
func (h *Handlers) Cancel(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "cancel")
	return h.sendReply(c, h.svc.Cancel(ctx, c.Sender().ID))
}

// OnText feeds free-form text into the active session. Text outside a
// session is ignored, matching the conversation-handler behaviour.
func (h *Handlers) OnText(c tele.Context) error {
	userID := c.Sender().ID
	if !h.svc.InProgress(userID) {
		return nil
	}
	ctx := tghelpers.WithHandler(c, "registration")
	r, err := h.svc.HandleText(ctx, userFrom(c), c.Text())
	if err != nil {
		_ = h.sendReply(c, r)
		return nil
	}
	return h.sendReply(c, r)
}

// NewOTP issues a fresh registration code. The route is admin-gated; the
// code itself is handed to the seller out of band.
func (h *Handlers) NewOTP(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "newotp")

	code, err := otp.Generate()
	if err != nil {
		logger.Error(ctx, "tg", "otp.generate_failed", slog.String("err", err.Error()))
		return tghelpers.SendText(c, "⚠️ Could not issue a code right now. Try again later.")
	}
	expiresAt := time.Now().Add(otp.TTL)
	if err := h.otps.SaveOTP(ctx, code, expiresAt); err != nil {
		logger.Error(ctx, "tg", "otp.save_failed", slog.String("err", err.Error()))
		return tghelpers.SendText(c, "⚠️ Could not issue a code right now. Try again later.")
	}

	logger.Info(ctx, "tg", "otp.issued",
		slog.Int64("admin_id", c.Sender().ID),
		slog.Time("expires_at", expiresAt),
	)
	return tghelpers.SendMD(c, "🔑 New OTP: `"+code+"`\n\n⚠️ It will expire in 24 hours and can only be used once.")
}

// comingSoon answers menu buttons whose features are not built yet.
func (h *Handlers) comingSoon(c tele.Context) error {
	_ = c.Respond(&tele.CallbackResponse{})
	return tghelpers.EditOrSendMD(c, "🚧 Coming soon")
}

// unknownCallback answers button presses no handler claims.
func (h *Handlers) unknownCallback(c tele.Context) error {
	_ = c.Respond(&tele.CallbackResponse{})
	return tghelpers.EditOrSendMD(c, "Unknown action. Use /start to open the menu.")
}
