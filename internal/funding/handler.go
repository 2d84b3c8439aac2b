package funding

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_bff/internal/channel"
	"github.com/congo-pay/wallet_bff/internal/deposit"
	"github.com/congo-pay/wallet_bff/internal/middleware"
	"github.com/congo-pay/wallet_bff/internal/session"
	"github.com/congo-pay/wallet_bff/internal/shell"
)

// Handler exposes HTTP endpoints for the fund screen.
type Handler struct {
	service *Service
}

// NewHandler constructs a fund screen handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Open mounts a new screen session. Countries outside the currency table use
// the default currency.
func (h *Handler) Open(c *fiber.Ctx) error {
	var req OpenRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	input := OpenInput{Country: req.Country, TabBar: shell.TabBarConfig{Visible: true}}
	if req.TabBar != nil {
		input.TabBar = *req.TabBar
	}
	if req.Channel != "" {
		kind, err := channel.ParseKind(req.Channel)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		input.Channel = kind
	}

	sess := h.service.Open(c.UserContext(), middleware.Token(c), input)
	c.Locals(middleware.SessionIDKey, sess.ID)
	return c.Status(http.StatusCreated).JSON(OpenResponse{SessionID: sess.ID, Screen: sess.Screen()})
}

// Get renders the current screen.
func (h *Handler) Get(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(ScreenResponse{Screen: sess.Screen()})
}

// Close unmounts the screen and reports the restored tab bar.
func (h *Handler) Close(c *fiber.Ctx) error {
	id := c.Params("id")
	c.Locals(middleware.SessionIDKey, id)
	tabBar, err := h.service.Close(id, middleware.Token(c))
	if err != nil {
		return sessionError(err)
	}
	return c.Status(http.StatusOK).JSON(CloseResponse{TabBar: tabBar})
}

func (h *Handler) SelectCountry(c *fiber.Ctx) error {
	var req CountryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return h.act(c, func(ctx context.Context, sess *session.Session) error {
		return sess.Controller.SelectCountry(ctx, req.Code)
	})
}

func (h *Handler) SelectChannel(c *fiber.Ctx) error {
	var req ChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	kind, err := channel.ParseKind(req.Channel)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return h.act(c, func(ctx context.Context, sess *session.Session) error {
		return sess.Controller.SelectChannel(ctx, kind)
	})
}

func (h *Handler) SetAmount(c *fiber.Ctx) error {
	var req AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return h.act(c, func(_ context.Context, sess *session.Session) error {
		return sess.Controller.SetAmount(req.Amount)
	})
}

// SelectProvider also closes the provider picker.
func (h *Handler) SelectProvider(c *fiber.Ctx) error {
	var req ProviderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return h.act(c, func(_ context.Context, sess *session.Session) error {
		if err := sess.Controller.SelectProvider(req.ProviderID.String()); err != nil {
			return err
		}
		return sess.SetPicker(shell.PickerNone)
	})
}

func (h *Handler) SetPhone(c *fiber.Ctx) error {
	var req PhoneRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return h.act(c, func(_ context.Context, sess *session.Session) error {
		return sess.Controller.SetPhone(req.Phone)
	})
}

func (h *Handler) SetAccountName(c *fiber.Ctx) error {
	var req AccountNameRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return h.act(c, func(_ context.Context, sess *session.Session) error {
		return sess.Controller.SetAccountName(req.AccountName)
	})
}

func (h *Handler) SetPicker(c *fiber.Ctx) error {
	var req PickerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return h.act(c, func(_ context.Context, sess *session.Session) error {
		return sess.SetPicker(req.Picker)
	})
}

func (h *Handler) Submit(c *fiber.Ctx) error {
	return h.act(c, func(ctx context.Context, sess *session.Session) error {
		return sess.Controller.Submit(ctx)
	})
}

func (h *Handler) TransferMade(c *fiber.Ctx) error {
	return h.act(c, func(_ context.Context, sess *session.Session) error {
		return sess.Controller.AssertTransfer()
	})
}

func (h *Handler) PressKey(c *fiber.Ctx) error {
	var req KeyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return h.act(c, func(ctx context.Context, sess *session.Session) error {
		return sess.Controller.PressKey(ctx, req.Key)
	})
}

func (h *Handler) ConfirmPIN(c *fiber.Ctx) error {
	return h.act(c, func(ctx context.Context, sess *session.Session) error {
		return sess.Controller.ConfirmPIN(ctx)
	})
}

// Dismiss cancels the open modal or step, pickers included.
func (h *Handler) Dismiss(c *fiber.Ctx) error {
	return h.act(c, func(_ context.Context, sess *session.Session) error {
		sess.Controller.Dismiss()
		return sess.SetPicker(shell.PickerNone)
	})
}

func (h *Handler) DismissNotice(c *fiber.Ctx) error {
	return h.act(c, func(_ context.Context, sess *session.Session) error {
		sess.Controller.DismissNotice()
		return nil
	})
}

func (h *Handler) Retry(c *fiber.Ctx) error {
	var req RetryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return h.act(c, func(ctx context.Context, sess *session.Session) error {
		return sess.Controller.Retry(ctx, req.Resource)
	})
}

func (h *Handler) Receipt(c *fiber.Ctx) error {
	return h.act(c, func(ctx context.Context, sess *session.Session) error {
		return sess.Controller.LoadReceipt(ctx)
	})
}

func (h *Handler) session(c *fiber.Ctx) (*session.Session, error) {
	id := c.Params("id")
	c.Locals(middleware.SessionIDKey, id)
	sess, err := h.service.Session(id, middleware.Token(c))
	if err != nil {
		return nil, sessionError(err)
	}
	return sess, nil
}

func (h *Handler) act(c *fiber.Ctx, action func(ctx context.Context, sess *session.Session) error) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	err = action(c.UserContext(), sess)
	status := statusFor(err)
	resp := ScreenResponse{Screen: sess.Screen()}
	if status != http.StatusOK {
		resp.Error = err.Error()
	}
	return c.Status(status).JSON(resp)
}

// statusFor maps an action error to a status. Wallet API failures are shown
// in the screen notice and answer 200.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, deposit.ErrBusy),
		errors.Is(err, deposit.ErrFlowInProgress),
		errors.Is(err, deposit.ErrPinPadClosed),
		errors.Is(err, deposit.ErrNoCompletedDeposit):
		return http.StatusConflict
	case deposit.IsValidation(err),
		errors.Is(err, deposit.ErrUnknownResource),
		errors.Is(err, session.ErrUnknownPicker):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrForbidden):
		return fiber.NewError(http.StatusForbidden, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
