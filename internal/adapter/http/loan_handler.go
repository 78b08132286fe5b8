package http

import (
	"net/http"

	"peerfund-backend/internal/usecase/loan"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LoanHandler struct {
	uc  *loan.Usecase
	log *zap.Logger
}

func NewLoanHandler(uc *loan.Usecase, log *zap.Logger) *LoanHandler {
	return &LoanHandler{uc: uc, log: log}
}

type createLoanReq struct {
	BorrowerID       string `json:"borrower_id"       validate:"required,hex32"`
	Principal        string `json:"principal"         validate:"required,dec2"`
	InstallmentCount int    `json:"installment_count" validate:"required,gte=1,lte=120"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req createLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid principal"})
	}
	dto, err := h.uc.Create(c.Request().Context(), loan.CreateLoanInput{
		BorrowerID:       req.BorrowerID,
		Principal:        principal,
		InstallmentCount: req.InstallmentCount,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	view, err := h.uc.GetView(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view)
}

type endorseReq struct {
	SupporterID string `json:"supporter_id" validate:"required,hex32"`
	Amount      string `json:"amount"       validate:"required,dec2"`
}

func (h *LoanHandler) AddEndorsement(c echo.Context) error {
	var req endorseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid amount"})
	}
	dto, err := h.uc.AddEndorsement(c.Request().Context(), loan.EndorsementInput{
		LoanID:      c.Param("loan_id"),
		SupporterID: req.SupporterID,
		Amount:      amount,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type paymentReq struct {
	InstallmentID string `json:"installment_id" validate:"required,hex32"`
}

func (h *LoanHandler) RecordPayment(c echo.Context) error {
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.RecordPayment(c.Request().Context(), loan.PaymentInput{
		LoanID:        c.Param("loan_id"),
		InstallmentID: req.InstallmentID,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) VerifyDecision(c echo.Context) error {
	dto, err := h.uc.ReplayDecision(c.Request().Context(), c.Param("decision_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) ListEvents(c echo.Context) error {
	events, err := h.uc.ListEvents(c.Request().Context(), c.Param("reference_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"events": events})
}
