package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/segyhp/microloan-ledger/internal/domain"
	"github.com/segyhp/microloan-ledger/internal/middleware"
	"github.com/segyhp/microloan-ledger/internal/report"
	customError "github.com/segyhp/microloan-ledger/pkg/errors"
	"github.com/segyhp/microloan-ledger/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// Ledger is what the HTTP layer needs from the ledger service.
type Ledger interface {
	IssueLoan(ctx context.Context, req domain.IssueLoanRequest) (*domain.Loan, error)
	RecordPayment(ctx context.Context, loanID uuid.UUID, req domain.RecordPaymentRequest) (*domain.Payment, *domain.Loan, error)
	ApplyLateFee(ctx context.Context, loanID uuid.UUID, req domain.ApplyLateFeeRequest) (*domain.LateFee, *domain.Loan, error)
	WaiveLateFee(ctx context.Context, loanID, feeID uuid.UUID, req domain.WaiveLateFeeRequest) (*domain.Waiver, *domain.Loan, error)
	GrantWaiver(ctx context.Context, loanID uuid.UUID, req domain.GrantWaiverRequest) (*domain.Waiver, *domain.Loan, error)
	ExtendDueDate(ctx context.Context, loanID uuid.UUID, req domain.ExtendDueDateRequest) (*domain.Loan, error)
	GetLoanDetails(ctx context.Context, loanID uuid.UUID) (*domain.LoanDetails, error)
	GetBalance(ctx context.Context, loanID uuid.UUID) (*domain.BalanceSummary, error)
	SuggestLateFee(ctx context.Context, loanID uuid.UUID) (*domain.LateFeeSuggestion, error)
	ListLoans(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error)
	Dashboard(ctx context.Context, filter domain.LoanFilter) (*report.Dashboard, error)
	ListActivity(ctx context.Context, loanID uuid.UUID, limit int) ([]domain.Activity, error)
	EMISchedule(req domain.ScheduleRequest) (*domain.ScheduleResponse, error)
}

type LoanHandler struct {
	ledger    Ledger
	validator *validator.Validate
	logger    *slog.Logger
}

func NewLoanHandler(ledger Ledger, logger *slog.Logger) *LoanHandler {
	if ledger == nil {
		panic("ledger cannot be nil")
	}
	return &LoanHandler{
		ledger:    ledger,
		validator: newValidator(),
		logger:    logger.With("component", "LoanHandler"),
	}
}

// newValidator teaches the validator to compare decimals numerically, so
// tags like gt=0 work on money fields.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// IssueLoan handles POST /api/v1/loans
func (h *LoanHandler) IssueLoan(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r.Context())

	var body IssueLoanBody
	if !h.decode(w, r, &body) {
		return
	}
	req := body.toRequest(actor)
	if !h.validate(w, r, req) {
		return
	}

	loan, err := h.ledger.IssueLoan(r.Context(), req)
	if err != nil {
		h.fail(w, r, "Failed to issue loan", err)
		return
	}

	h.logger.InfoContext(r.Context(), "Loan issued", slog.String("loanID", loan.ID.String()))
	response.Created(w, newLoanResponse(loan))
}

// ListLoans handles GET /api/v1/loans
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		response.FromError(w, err)
		return
	}

	loans, err := h.ledger.ListLoans(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to list loans", err)
		return
	}

	out := LoanListResponse{Loans: make([]LoanResponse, 0, len(loans)), Count: len(loans), Limit: filter.Limit, Offset: filter.Offset}
	for _, loan := range loans {
		out.Loans = append(out.Loans, newLoanResponse(loan))
	}
	response.Success(w, out)
}

// GetLoan handles GET /api/v1/loans/{id}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	details, err := h.ledger.GetLoanDetails(r.Context(), loanID)
	if err != nil {
		h.fail(w, r, "Failed to get loan", err)
		return
	}
	response.Success(w, details)
}

// GetBalance handles GET /api/v1/loans/{id}/balance
func (h *LoanHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	summary, err := h.ledger.GetBalance(r.Context(), loanID)
	if err != nil {
		h.fail(w, r, "Failed to get balance", err)
		return
	}
	response.Success(w, summary)
}

// RecordPayment handles POST /api/v1/loans/{id}/payments
func (h *LoanHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := middleware.ActorFromContext(r.Context())

	var body RecordPaymentBody
	if !h.decode(w, r, &body) {
		return
	}
	req := body.toRequest(actor)
	if !h.validate(w, r, req) {
		return
	}

	payment, loan, err := h.ledger.RecordPayment(r.Context(), loanID, req)
	if err != nil {
		h.fail(w, r, "Failed to record payment", err)
		return
	}
	response.Created(w, EntryResponse{Entry: payment, Balance: loan.Summary()})
}

// ApplyLateFee handles POST /api/v1/loans/{id}/late-fees
func (h *LoanHandler) ApplyLateFee(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := middleware.ActorFromContext(r.Context())

	var req domain.ApplyLateFeeRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.AppliedBy = actor
	if !h.validate(w, r, req) {
		return
	}

	fee, loan, err := h.ledger.ApplyLateFee(r.Context(), loanID, req)
	if err != nil {
		h.fail(w, r, "Failed to apply late fee", err)
		return
	}
	response.Created(w, EntryResponse{Entry: fee, Balance: loan.Summary()})
}

// SuggestLateFee handles GET /api/v1/loans/{id}/late-fee-suggestion
func (h *LoanHandler) SuggestLateFee(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	suggestion, err := h.ledger.SuggestLateFee(r.Context(), loanID)
	if err != nil {
		h.fail(w, r, "Failed to suggest late fee", err)
		return
	}
	response.Success(w, suggestion)
}

// WaiveLateFee handles POST /api/v1/loans/{id}/late-fees/{feeId}/waive
func (h *LoanHandler) WaiveLateFee(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	feeID, ok := h.pathID(w, r, "feeId")
	if !ok {
		return
	}
	actor, _ := middleware.ActorFromContext(r.Context())

	var req domain.WaiveLateFeeRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.GrantedBy = actor
	if !h.validate(w, r, req) {
		return
	}

	waiver, loan, err := h.ledger.WaiveLateFee(r.Context(), loanID, feeID, req)
	if err != nil {
		h.fail(w, r, "Failed to waive late fee", err)
		return
	}
	response.Created(w, EntryResponse{Entry: waiver, Balance: loan.Summary()})
}

// GrantWaiver handles POST /api/v1/loans/{id}/waivers
func (h *LoanHandler) GrantWaiver(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := middleware.ActorFromContext(r.Context())

	var req domain.GrantWaiverRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.GrantedBy = actor
	if !h.validate(w, r, req) {
		return
	}

	waiver, loan, err := h.ledger.GrantWaiver(r.Context(), loanID, req)
	if err != nil {
		h.fail(w, r, "Failed to grant waiver", err)
		return
	}
	response.Created(w, EntryResponse{Entry: waiver, Balance: loan.Summary()})
}

// ExtendDueDate handles PUT /api/v1/loans/{id}/due-date
func (h *LoanHandler) ExtendDueDate(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := middleware.ActorFromContext(r.Context())

	var body ExtendDueDateBody
	if !h.decode(w, r, &body) {
		return
	}
	req := body.toRequest(actor)
	if !h.validate(w, r, req) {
		return
	}

	loan, err := h.ledger.ExtendDueDate(r.Context(), loanID, req)
	if err != nil {
		h.fail(w, r, "Failed to change due date", err)
		return
	}
	response.Success(w, newLoanResponse(loan))
}

// ListActivity handles GET /api/v1/loans/{id}/activity
func (h *LoanHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		response.FromError(w, err)
		return
	}

	activities, err := h.ledger.ListActivity(r.Context(), loanID, limit)
	if err != nil {
		h.fail(w, r, "Failed to list activity", err)
		return
	}
	response.Success(w, activities)
}

// EMISchedule handles POST /api/v1/emi/schedule
func (h *LoanHandler) EMISchedule(w http.ResponseWriter, r *http.Request) {
	var body ScheduleBody
	if !h.decode(w, r, &body) {
		return
	}
	req := body.toRequest()
	if !h.validate(w, r, req) {
		return
	}

	schedule, err := h.ledger.EMISchedule(req)
	if err != nil {
		h.fail(w, r, "Failed to build schedule", err)
		return
	}
	response.Success(w, schedule)
}

// Dashboard handles GET /api/v1/reports/dashboard
func (h *LoanHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		response.FromError(w, err)
		return
	}

	dashboard, err := h.ledger.Dashboard(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to build dashboard", err)
		return
	}
	response.Success(w, dashboard)
}

func (h *LoanHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		response.FromError(w, customError.InvalidInput("request body is required"))
		return false
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		response.FromError(w, customError.InvalidInput("invalid request body: %v", err))
		return false
	}
	return true
}

func (h *LoanHandler) validate(w http.ResponseWriter, r *http.Request, v any) bool {
	err := h.validator.Struct(v)
	if err == nil {
		return true
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, describeFieldError(fe))
		}
		err = customError.InvalidInput("%s", strings.Join(msgs, "; "))
	} else {
		err = customError.InvalidInput("%v", err)
	}

	h.logger.DebugContext(r.Context(), "Request validation failed", slog.Any("error", err))
	response.FromError(w, err)
	return false
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt", "gte", "lt", "lte", "max", "min":
		return fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

func (h *LoanHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		response.FromError(w, customError.InvalidInput("%s %q is not a valid uuid", name, raw))
		return uuid.Nil, false
	}
	return id, true
}

// fail logs at warn for caller mistakes and at error for everything else.
func (h *LoanHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	level := slog.LevelWarn
	if response.StatusFor(err) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, msg, slog.String("path", r.URL.Path), slog.Any("error", err))
	response.FromError(w, err)
}

func parseFilter(r *http.Request) (domain.LoanFilter, error) {
	q := r.URL.Query()
	filter := domain.LoanFilter{Status: domain.LoanStatus(q.Get("status"))}

	for param, dst := range map[string]**uuid.UUID{"borrower_id": &filter.BorrowerID, "issued_by": &filter.IssuedByID} {
		raw := q.Get(param)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return domain.LoanFilter{}, customError.InvalidInput("%s %q is not a valid uuid", param, raw)
		}
		*dst = &id
	}

	var err error
	if filter.Limit, err = intParam(r, "limit"); err != nil {
		return domain.LoanFilter{}, err
	}
	if filter.Offset, err = intParam(r, "offset"); err != nil {
		return domain.LoanFilter{}, err
	}
	return filter, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, customError.InvalidInput("%s must be a non-negative integer, got %q", name, raw)
	}
	return n, nil
}
