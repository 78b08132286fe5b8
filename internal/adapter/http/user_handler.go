package http

import (
	"net/http"

	"peerfund-backend/internal/usecase/user"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type UserHandler struct {
	uc  *user.Usecase
	log *zap.Logger
}

func NewUserHandler(uc *user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{uc: uc, log: log}
}

type registerReq struct {
	DisplayName string `json:"display_name" validate:"required"`
	Wallet      string `json:"wallet"       validate:"required,wallet"`
	Role        string `json:"role"         validate:"required,oneof=BORROWER SUPPORTER OPERATOR PROVIDER"`
	Score       *int   `json:"score"        validate:"omitempty,gte=0,lte=100"`
}

func (h *UserHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.Register(c.Request().Context(), user.RegisterInput{
		DisplayName: req.DisplayName,
		Wallet:      req.Wallet,
		Role:        req.Role,
		Score:       req.Score,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type loginReq struct {
	Wallet string `json:"wallet" validate:"required,wallet"`
	Role   string `json:"role"   validate:"omitempty,oneof=BORROWER SUPPORTER OPERATOR PROVIDER"`
}

func (h *UserHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.LoginOrSwitchRole(c.Request().Context(), req.Wallet, req.Role)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	view, err := h.uc.GetView(c.Request().Context(), c.Param("user_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view)
}
