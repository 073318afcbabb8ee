package bot

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/marketbot/core/telegram"
	"github.com/m3rciful/marketbot/core/telegram/middleware"
)

// RouteOptions configures route construction.
type RouteOptions struct {
	AdminID int64
}

// Routes assembles all bot routes with the shared middleware applied.
func Routes(h *Handlers, opts RouteOptions) []tg.Route {
	wrap := func(fn tele.HandlerFunc) tele.HandlerFunc {
		return middleware.Recover(middleware.Logger(fn))
	}
	routes := []tg.Route{
		{Endpoint: "/start", Handler: wrap(h.Start)},
		{Endpoint: "/cancel", Handler: wrap(h.Cancel)},
		{Endpoint: tele.OnText, Handler: wrap(h.OnText)},

		{Endpoint: btnEndpoint(uniqueAddProduct), Handler: wrap(h.comingSoon)},
		{Endpoint: btnEndpoint(uniqueMyProducts), Handler: wrap(h.comingSoon)},
		{Endpoint: btnEndpoint(uniqueOrdersReceived), Handler: wrap(h.comingSoon)},
		{Endpoint: tele.OnCallback, Handler: wrap(h.unknownCallback)},
	}

	// Without a configured admin the OTP command would be open to anyone.
	if opts.AdminID != 0 {
		adminOnly := middleware.AdminOnly(middleware.AdminOptions{AdminID: opts.AdminID})
		routes = append(routes, tg.Route{Endpoint: "/newotp", Handler: wrap(adminOnly(h.NewOTP))})
	}

	return routes
}
