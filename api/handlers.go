package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/xraph/bulkpay"
	"github.com/xraph/bulkpay/listid"
	"github.com/xraph/bulkpay/paylist"
)

// SubmitListRequest is the body of POST /submit-list.
type SubmitListRequest struct {
	ListID        string           `json:"list_id"`
	SubmitterID   string           `json:"submitter_id"`
	DAOContractID string           `json:"dao_contract_id"`
	TokenID       string           `json:"token_id"`
	Payments      []listid.Payment `json:"payments"`
}

// SubmitListResponse is returned by POST /submit-list.
type SubmitListResponse struct {
	Success bool   `json:"success"`
	ListID  string `json:"list_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ListView summarizes a payment list.
type ListView struct {
	ID                string    `json:"id"`
	TokenID           string    `json:"token_id"`
	Submitter         string    `json:"submitter"`
	Status            string    `json:"status"`
	TotalAmount       string    `json:"total_amount"`
	TotalPayments     int       `json:"total_payments"`
	PendingPayments   int       `json:"pending_payments"`
	ProcessedPayments int       `json:"processed_payments"`
	CreatedAt         time.Time `json:"created_at"`
}

// ListResponse is returned by GET /list/{id}.
type ListResponse struct {
	Success bool      `json:"success"`
	List    *ListView `json:"list,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Transaction is one settled payment.
type Transaction struct {
	Recipient   string `json:"recipient"`
	Amount      string `json:"amount"`
	BlockHeight uint64 `json:"block_height"`
}

// TransactionsResponse is returned by GET /list/{id}/transactions.
type TransactionsResponse struct {
	Success      bool          `json:"success"`
	Transactions []Transaction `json:"transactions,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// TransactionResponse is returned by GET /list/{id}/transaction/{recipient}.
type TransactionResponse struct {
	Success     bool   `json:"success"`
	Recipient   string `json:"recipient,omitempty"`
	Amount      string `json:"amount,omitempty"`
	BlockHeight uint64 `json:"block_height,omitempty"`
	Error       string `json:"error,omitempty"`
}

// CreditsResponse is returned by GET /credits/{account}.
type CreditsResponse struct {
	Success bool   `json:"success"`
	Account string `json:"account"`
	Credits uint64 `json:"credits"`
	Error   string `json:"error,omitempty"`
}

// QuoteResponse is returned by GET /quote/{records}.
type QuoteResponse struct {
	Success  bool   `json:"success"`
	Records  uint64 `json:"records,omitempty"`
	Cost     string `json:"cost,omitempty"`
	CostNEAR string `json:"cost_near,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Service: ServiceName, Version: s.version})
}

func (s *Server) submitList(w http.ResponseWriter, r *http.Request) {
	var req SubmitListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, SubmitListResponse{Error: "Malformed JSON body: " + err.Error()})
		return
	}

	s.logger.Info("received submit-list request",
		"list_id", req.ListID,
		"submitter", req.SubmitterID,
		"dao", req.DAOContractID,
		"payments", len(req.Payments),
	)

	if err := listid.Verify(req.ListID, req.SubmitterID, req.TokenID, req.Payments); err != nil {
		s.logger.Warn("list id does not match payload", "list_id", req.ListID, "error", err)
		respondWithJSON(w, http.StatusBadRequest, SubmitListResponse{Error: fmt.Sprintf(
			"Invalid list_id: %v. The list_id must be SHA-256(canonical_json(sorted_payments)).", err)})
		return
	}

	if req.DAOContractID == "" {
		respondWithJSON(w, http.StatusBadRequest, SubmitListResponse{Error: "dao_contract_id is required"})
		return
	}

	ok, err := s.gate.HasPendingReference(r.Context(), req.DAOContractID, req.ListID)
	if err != nil {
		s.logger.Error("failed to verify governance proposal",
			"list_id", req.ListID,
			"dao", req.DAOContractID,
			"error", err,
		)
		respondWithJSON(w, http.StatusInternalServerError, SubmitListResponse{Error: "Failed to verify DAO proposal: " + err.Error()})
		return
	}
	if !ok {
		respondWithJSON(w, http.StatusForbidden, SubmitListResponse{Error: fmt.Sprintf(
			"No pending DAO proposal found with list_id %s in DAO %s. Create a DAO proposal first with the list hash as reference.",
			req.ListID, req.DAOContractID)})
		return
	}

	l, err := s.engine.Submit(r.Context(), bulkpay.SubmitInput{
		ListID:    req.ListID,
		TokenID:   req.TokenID,
		Payments:  req.Payments,
		Submitter: req.SubmitterID,
		Caller:    s.engine.SystemIdentity(),
	})
	if err != nil {
		s.logger.Error("failed to submit payment list", "list_id", req.ListID, "error", err)
		respondWithJSON(w, statusFor(err), SubmitListResponse{Error: err.Error()})
		return
	}

	if s.tracker != nil {
		s.tracker.Track(l.ID)
	}
	respondWithJSON(w, http.StatusOK, SubmitListResponse{Success: true, ListID: l.ID})
}

func (s *Server) getList(w http.ResponseWriter, r *http.Request) {
	listID := mux.Vars(r)["id"]

	l, err := s.engine.ViewList(r.Context(), listID)
	if err != nil {
		respondWithJSON(w, statusFor(err), ListResponse{Error: err.Error()})
		return
	}

	total, err := l.Total()
	if err != nil {
		respondWithJSON(w, http.StatusInternalServerError, ListResponse{Error: err.Error()})
		return
	}

	respondWithJSON(w, http.StatusOK, ListResponse{Success: true, List: &ListView{
		ID:                l.ID,
		TokenID:           l.TokenID,
		Submitter:         l.Submitter,
		Status:            string(l.Status),
		TotalAmount:       total.String(),
		TotalPayments:     len(l.Payments),
		PendingPayments:   l.PendingCount(),
		ProcessedPayments: l.PaidCount(),
		CreatedAt:         l.CreatedAt,
	}})
}

func (s *Server) getTransactions(w http.ResponseWriter, r *http.Request) {
	settled, err := s.engine.ViewSettled(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithJSON(w, statusFor(err), TransactionsResponse{Error: err.Error()})
		return
	}

	txs := make([]Transaction, len(settled))
	for i, st := range settled {
		txs[i] = toTransaction(st)
	}
	respondWithJSON(w, http.StatusOK, TransactionsResponse{Success: true, Transactions: txs})
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	settled, err := s.engine.ViewSettled(r.Context(), vars["id"])
	if err != nil {
		respondWithJSON(w, statusFor(err), TransactionResponse{Error: err.Error()})
		return
	}

	for _, st := range settled {
		if st.Recipient == vars["recipient"] {
			tx := toTransaction(st)
			respondWithJSON(w, http.StatusOK, TransactionResponse{
				Success:     true,
				Recipient:   tx.Recipient,
				Amount:      tx.Amount,
				BlockHeight: tx.BlockHeight,
			})
			return
		}
	}

	respondWithJSON(w, http.StatusNotFound, TransactionResponse{
		Error: fmt.Sprintf("Recipient %s not found in list %s", vars["recipient"], vars["id"]),
	})
}

func (s *Server) getCredits(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]

	credits, err := s.engine.ViewCredits(r.Context(), account)
	if err != nil {
		respondWithJSON(w, statusFor(err), CreditsResponse{Account: account, Error: err.Error()})
		return
	}
	respondWithJSON(w, http.StatusOK, CreditsResponse{Success: true, Account: account, Credits: credits})
}

func (s *Server) getQuote(w http.ResponseWriter, r *http.Request) {
	records, err := strconv.ParseUint(mux.Vars(r)["records"], 10, 64)
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, QuoteResponse{Error: "records must be a positive integer"})
		return
	}

	cost, err := s.engine.Quote(records)
	if err != nil {
		respondWithJSON(w, statusFor(err), QuoteResponse{Error: err.Error()})
		return
	}
	respondWithJSON(w, http.StatusOK, QuoteResponse{
		Success:  true,
		Records:  records,
		Cost:     cost.String(),
		CostNEAR: cost.FormatNative(),
	})
}

func toTransaction(st paylist.Settlement) Transaction {
	return Transaction{Recipient: st.Recipient, Amount: st.Amount.String(), BlockHeight: st.Reference}
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, bulkpay.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, bulkpay.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, bulkpay.ErrAlreadyExists):
		return http.StatusConflict
	case bulkpay.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload) //nolint:errcheck // client went away
}
