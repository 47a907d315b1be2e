package finance

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jobelinc/stocktrack/internal/common"
	"github.com/jobelinc/stocktrack/internal/ledger"
	"github.com/jobelinc/stocktrack/internal/money"
	"github.com/jobelinc/stocktrack/internal/repo"
)

// Handler exposes the accounting endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type createAccountRequest struct {
	Number string `json:"number" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Type   string `json:"type" validate:"required"`
}

// CreateAccount handles POST /api/v1/finance/accounts.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	acct, err := h.Svc.CreateAccount(r.Context(), req.Number, req.Name, ledger.AccountType(req.Type))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAccountNumber), errors.Is(err, ErrInvalidAccountType):
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create account", nil)
		}
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": accountResponse(acct)})
}

// Accounts handles GET /api/v1/finance/accounts, grouped by type.
func (h *Handler) Accounts(w http.ResponseWriter, r *http.Request) {
	grouped, err := h.Svc.AccountsByType(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list accounts", nil)
		return
	}
	out := make(map[string][]map[string]any, len(grouped))
	for typ, accounts := range grouped {
		rows := make([]map[string]any, 0, len(accounts))
		for _, acct := range accounts {
			rows = append(rows, accountResponse(acct))
		}
		out[string(typ)] = rows
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

type journalEntryRequest struct {
	AccountID string `json:"account_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Memo      string `json:"memo"`
	Type      string `json:"type" validate:"required,oneof=debit credit"`
	Amount    string `json:"amount" validate:"required"`
}

type postJournalRequest struct {
	Entries []journalEntryRequest `json:"entries" validate:"required,min=2,dive"`
}

// PostJournal handles POST /api/v1/finance/journal.
func (h *Handler) PostJournal(w http.ResponseWriter, r *http.Request) {
	var req postJournalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	entries := make([]ledger.Entry, 0, len(req.Entries))
	for _, e := range req.Entries {
		accountID, err := uuid.Parse(e.AccountID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid account id", nil)
			return
		}
		date, ok := parseDate(e.Date)
		if !ok {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid entry date", nil)
			return
		}
		amount, err := money.FromString(e.Amount)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "amount must be a decimal string", nil)
			return
		}
		entries = append(entries, ledger.Entry{
			AccountID: accountID,
			Date:      date,
			Memo:      e.Memo,
			Type:      ledger.EntryType(e.Type),
			Amount:    amount,
		})
	}

	journalID, err := h.Svc.PostJournal(r.Context(), entries)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrUnbalancedJournal), errors.Is(err, ledger.ErrInvalidEntryAmount), errors.Is(err, ErrEmptyJournal):
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		case errors.Is(err, repo.ErrAccountNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "entry account not found", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to post journal", nil)
		}
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]string{"journalId": journalID.String()}})
}

// LedgerReport handles GET /api/v1/finance/ledger/{accountId}.
func (h *Handler) LedgerReport(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "accountId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid account id", nil)
		return
	}
	from, to, ok := reportWindow(r)
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid report window", nil)
		return
	}
	rep, err := h.Svc.LedgerReport(r.Context(), accountID, from, to)
	if err != nil {
		if errors.Is(err, repo.ErrAccountNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "account not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute report", nil)
		return
	}
	rows := make([]map[string]any, 0, len(rep.Rows))
	for _, row := range rep.Rows {
		rows = append(rows, map[string]any{
			"date":    row.Date,
			"memo":    row.Memo,
			"debit":   money.String(row.Debit),
			"credit":  money.String(row.Credit),
			"balance": money.String(row.Balance),
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"openingBalance": money.String(rep.OpeningBalance),
		"rows":           rows,
		"totalDebit":     money.String(rep.TotalDebit),
		"totalCredit":    money.String(rep.TotalCredit),
		"closingBalance": money.String(rep.ClosingBalance),
	}})
}

// ProfitAndLoss handles GET /api/v1/finance/reports/pnl.
func (h *Handler) ProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	from, to, ok := reportWindow(r)
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid report window", nil)
		return
	}
	pl, err := h.Svc.ComputeProfitAndLoss(r.Context(), from, to)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute report", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": pl})
}

// BalanceSheet handles GET /api/v1/finance/reports/balance-sheet.
func (h *Handler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now().UTC()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, ok := parseDate(raw)
		if !ok {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid as_of date", nil)
			return
		}
		asOf = parsed
	}
	sheet, err := h.Svc.ComputeBalanceSheet(r.Context(), asOf)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute report", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sheet})
}

func accountResponse(acct repo.Account) map[string]any {
	return map[string]any{
		"id":     acct.ID.String(),
		"number": acct.Number,
		"name":   acct.Name,
		"type":   string(acct.Type),
	}
}

// parseDate accepts RFC3339 timestamps and bare dates.
func parseDate(raw string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func reportWindow(r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	fromStr := q.Get("from")
	toStr := q.Get("to")
	if fromStr == "" || toStr == "" {
		to := time.Now().UTC()
		return to.AddDate(0, -1, 0), to, true
	}
	from, ok := parseDate(fromStr)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	to, ok := parseDate(toStr)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return from, to, from.Before(to)
}
