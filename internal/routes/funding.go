package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_bff/internal/funding"
)

// RegisterFundingRoutes wires the fund screen session endpoints. idem guards
// the routes that create a session or a deposit, keypad throttles PIN entry.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler, idem, keypad fiber.Handler) {
	r.Post("/sessions", idem, h.Open)
	r.Get("/sessions/:id", h.Get)
	r.Delete("/sessions/:id", h.Close)

	s := r.Group("/sessions/:id")
	s.Post("/country", h.SelectCountry)
	s.Post("/channel", h.SelectChannel)
	s.Post("/amount", h.SetAmount)
	s.Post("/provider", h.SelectProvider)
	s.Post("/phone", h.SetPhone)
	s.Post("/account-name", h.SetAccountName)
	s.Post("/picker", h.SetPicker)
	s.Post("/submit", idem, h.Submit)
	s.Post("/transfer-made", idem, h.TransferMade)
	s.Post("/pin/keys", keypad, h.PressKey)
	s.Post("/pin/confirm", h.ConfirmPIN)
	s.Post("/dismiss", h.Dismiss)
	s.Post("/notice/dismiss", h.DismissNotice)
	s.Post("/retry", h.Retry)
	s.Post("/receipt", h.Receipt)
}
