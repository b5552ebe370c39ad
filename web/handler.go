package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tripledger/expense"
	"tripledger/ledger"
	"tripledger/money"
	"tripledger/mq/mq"
)

const dateLayout = "2006-01-02"

// Handler serves the expense REST routes for one wired service.
type Handler struct {
	svc    *expense.Service
	events mq.ExpenseMessageQueueWrapper
	logger *slog.Logger
}

func NewHandler(svc *expense.Service, events mq.ExpenseMessageQueueWrapper, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, events: events, logger: logger}
}

type expenseRequest struct {
	Description  string   `json:"description"`
	Amount       string   `json:"amount" binding:"required"`
	Currency     string   `json:"currency" binding:"required"`
	PaidBy       string   `json:"paidBy" binding:"required"`
	SplitBetween []string `json:"splitBetween" binding:"required"`
	Category     string   `json:"category" binding:"required"`
	Date         string   `json:"date" binding:"required"`
}

type expenseUpdateRequest struct {
	Description  *string   `json:"description"`
	Amount       *string   `json:"amount"`
	Currency     *string   `json:"currency"`
	PaidBy       *string   `json:"paidBy"`
	SplitBetween *[]string `json:"splitBetween"`
	Category     *string   `json:"category"`
	Date         *string   `json:"date"`
}

type expenseResponse struct {
	ID           string      `json:"id"`
	TripID       string      `json:"tripId"`
	Description  string      `json:"description"`
	Amount       money.Money `json:"amount"`
	PaidBy       string      `json:"paidBy"`
	SplitBetween []string    `json:"splitBetween"`
	Category     string      `json:"category"`
	Date         string      `json:"date"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func toExpenseResponse(r *ledger.ExpenseRecord) expenseResponse {
	split := make([]string, len(r.SplitBetween))
	for i, id := range r.SplitBetween {
		split[i] = string(id)
	}
	return expenseResponse{
		ID:           r.ID.String(),
		TripID:       r.TripID.String(),
		Description:  r.Description,
		Amount:       r.Amount,
		PaidBy:       string(r.PaidBy),
		SplitBetween: split,
		Category:     r.Category.String(),
		Date:         r.Date.Format(dateLayout),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toParticipants(ids []string) []ledger.ParticipantID {
	out := make([]ledger.ParticipantID, len(ids))
	for i, id := range ids {
		out[i] = ledger.ParticipantID(id)
	}
	return out
}

// writeError maps the service error taxonomy onto HTTP statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	if ve, ok := ledger.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(ve.Reason), "detail": ve.Detail})
		return
	}
	switch {
	case errors.Is(err, ledger.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "caller is not a member of this trip"})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		h.logger.Error("request failed", slog.String("path", c.FullPath()), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func (h *Handler) ListExpenses(c *gin.Context) {
	tripID, err := pathUUID(c, "tripId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records, err := h.svc.ListExpenses(c.Request.Context(), caller(c), tripID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]expenseResponse, 0, len(records))
	for i := range records {
		out = append(out, toExpenseResponse(&records[i]))
	}
	c.JSON(http.StatusOK, gin.H{"expenses": out})
}

func (h *Handler) CreateExpense(c *gin.Context) {
	tripID, err := pathUUID(c, "tripId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
		return
	}

	record, err := h.svc.CreateExpense(c.Request.Context(), caller(c), tripID, expense.CreateExpenseInput{
		Description:  req.Description,
		Amount:       req.Amount,
		Currency:     req.Currency,
		PaidBy:       ledger.ParticipantID(req.PaidBy),
		SplitBetween: toParticipants(req.SplitBetween),
		Category:     req.Category,
		Date:         date,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toExpenseResponse(record))
}

func (h *Handler) UpdateExpense(c *gin.Context) {
	tripID, err := pathUUID(c, "tripId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	expenseID, err := pathUUID(c, "expenseId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req expenseUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	input := expense.UpdateExpenseInput{
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Category:    req.Category,
	}
	if req.PaidBy != nil {
		id := ledger.ParticipantID(*req.PaidBy)
		input.PaidBy = &id
	}
	if req.SplitBetween != nil {
		split := toParticipants(*req.SplitBetween)
		input.SplitBetween = &split
	}
	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
			return
		}
		input.Date = &date
	}

	record, err := h.svc.UpdateExpense(c.Request.Context(), caller(c), tripID, expenseID, input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toExpenseResponse(record))
}

func (h *Handler) DeleteExpense(c *gin.Context) {
	tripID, err := pathUUID(c, "tripId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	expenseID, err := pathUUID(c, "expenseId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.DeleteExpense(c.Request.Context(), caller(c), tripID, expenseID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Summary(c *gin.Context) {
	tripID, err := pathUUID(c, "tripId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	summary, err := h.svc.Summarize(c.Request.Context(), caller(c), tripID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
