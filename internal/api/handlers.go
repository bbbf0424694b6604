package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"token-presale/internal/domain"
	"token-presale/internal/observability"
	"token-presale/internal/pricing"
	"token-presale/internal/storage"
	"token-presale/internal/wallet"
)

// handleGetPresale returns the presale state with its raised percentage.
func (s *Server) handleGetPresale(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetPresaleState(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to fetch presale data", err)
		return
	}
	writeJSON(w, http.StatusOK, pricing.View(*st))
}

// amountParam accepts a JSON number or a numeric string. Anything else
// leaves it unset.
type amountParam struct {
	value decimal.Decimal
	set   bool
}

func (a *amountParam) UnmarshalJSON(b []byte) error {
	var raw string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil
		}
	} else {
		raw = string(b)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	a.value, a.set = d, true
	return nil
}

type calculateRequest struct {
	Currency  domain.Currency `json:"currency"`
	PayAmount amountParam     `json:"payAmount"`
}

// handleCalculate prices a prospective purchase at the current rate.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid currency or amount")
		return
	}
	if req.Currency == "" || !req.PayAmount.set || !req.PayAmount.value.IsPositive() {
		writeError(w, http.StatusBadRequest, "Invalid currency or amount")
		return
	}
	if s.opts.StrictCurrency && !pricing.Supported(req.Currency) {
		writeError(w, http.StatusBadRequest, "Unsupported currency")
		return
	}

	st, err := s.store.GetPresaleState(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to calculate token amount", err)
		return
	}

	observability.RecordQuote(currencyLabel(req.Currency))
	writeJSON(w, http.StatusOK, pricing.Quote(req.Currency, req.PayAmount.value, st.CurrentRate))
}

const invalidTransaction = "Invalid transaction data"

// readNewTransaction decodes and validates a transaction insert. It writes
// the 400 response itself and reports false on rejection.
func (s *Server) readNewTransaction(w http.ResponseWriter, r *http.Request, failure string) (*domain.NewTransaction, bool) {
	var in domain.NewTransaction
	if err := decodeJSON(r, &in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			writeValidationError(w, invalidTransaction, []domain.FieldError{{
				Field:   typeErr.Field,
				Message: typeMessage(typeErr),
			}})
			return nil, false
		}
		writeError(w, http.StatusBadRequest, invalidTransaction)
		return nil, false
	}
	if err := domain.Validate(&in); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeValidationError(w, invalidTransaction, verr.Fields)
			return nil, false
		}
		s.internalError(w, r, failure, err)
		return nil, false
	}
	if s.opts.StrictCurrency && !pricing.Supported(in.Currency) {
		writeValidationError(w, invalidTransaction, []domain.FieldError{{Field: "currency", Message: "is not supported"}})
		return nil, false
	}
	return &in, true
}

func typeMessage(err *json.UnmarshalTypeError) string {
	if err.Type.Kind() == reflect.String {
		return "must be a string"
	}
	return "must be a " + err.Type.Kind().String()
}

// storeTransaction persists a pending transaction, mapping malformed
// amounts to 400.
func (s *Server) storeTransaction(w http.ResponseWriter, r *http.Request, in *domain.NewTransaction, failure string) (*domain.Transaction, bool) {
	tx, err := s.store.CreateTransaction(r.Context(), in)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, invalidTransaction)
			return nil, false
		}
		s.internalError(w, r, failure, err)
		return nil, false
	}
	return tx, true
}

// handleCreateTransaction records a pending purchase and raises the total
// by its settlement value.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	const failure = "Failed to create transaction"

	in, ok := s.readNewTransaction(w, r, failure)
	if !ok {
		return
	}
	tx, ok := s.storeTransaction(w, r, in, failure)
	if !ok {
		return
	}

	ctx := r.Context()
	settlement := pricing.SettlementValue(tx.Currency, tx.PayAmount)
	st, err := s.store.AddRaised(ctx, settlement)
	if err != nil {
		s.internalError(w, r, failure, err)
		return
	}

	kind := wallet.Classify(tx.WalletAddress)
	settlementF, _ := settlement.Float64()
	raisedF, _ := st.TotalRaised.Float64()
	observability.RecordPurchase(currencyLabel(tx.Currency), kind.String(), settlementF)
	observability.UpdateTotalRaised(raisedF)

	s.recordPurchaseEvent(r, tx, kind, settlement, st.CurrentRate)
	s.feed.Broadcast(FeedMessage{Type: "presale", Data: pricing.View(*st)})

	writeJSON(w, http.StatusOK, tx)
}

// recordPurchaseEvent appends to the analytics sink. Failures are logged
// and counted only.
func (s *Server) recordPurchaseEvent(r *http.Request, tx *domain.Transaction, kind wallet.Kind, settlement, rate decimal.Decimal) {
	ev := &domain.PurchaseEvent{
		TransactionID:   tx.ID,
		WalletAddress:   tx.WalletAddress,
		WalletKind:      kind.String(),
		Currency:        tx.Currency,
		PayAmount:       tx.PayAmount,
		SettlementValue: settlement,
		TokenAmount:     settlement.Mul(rate),
		ReferralCode:    tx.ReferralCode,
		RecordedAt:      time.Now().UTC(),
	}
	if err := s.purchases.Record(r.Context(), ev); err != nil {
		observability.RecordSinkError()
		s.log.WithField("request_id", RequestIDFromContext(r.Context())).
			WithField("transaction_id", tx.ID).
			WithError(err).Warn("record purchase event")
	}
}

// handleGetTransactions lists a wallet's transactions, newest first.
func (s *Server) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["walletAddress"]

	txs, err := s.store.GetTransactionsByWallet(r.Context(), address)
	if err != nil {
		s.internalError(w, r, "Failed to fetch transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// handleGetReferral checks whether a referral code is usable.
func (s *Server) handleGetReferral(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	rc, err := s.store.GetReferralCode(r.Context(), code)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.internalError(w, r, "Failed to validate referral code", err)
		return
	}
	if err != nil || !rc.IsActive {
		observability.RecordReferralLookup("invalid")
		writeError(w, http.StatusNotFound, "Invalid or inactive referral code")
		return
	}

	observability.RecordReferralLookup("valid")
	writeJSON(w, http.StatusOK, domain.ReferralCheck{
		Code:            rc.Code,
		DiscountPercent: rc.DiscountPercent,
		IsValid:         true,
	})
}

type applyReferralRequest struct {
	Code string `json:"code"`
}

// handleApplyReferral increments a code's usage count.
func (s *Server) handleApplyReferral(w http.ResponseWriter, r *http.Request) {
	var req applyReferralRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "Referral code is required")
		return
	}

	rc, err := s.store.UseReferralCode(r.Context(), req.Code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Invalid or inactive referral code")
			return
		}
		s.internalError(w, r, "Failed to apply referral code", err)
		return
	}

	observability.RecordReferralApplied()
	writeJSON(w, http.StatusOK, domain.ReferralCheck{
		Code:            rc.Code,
		DiscountPercent: rc.DiscountPercent,
		Applied:         true,
	})
}

// handleWalletPurchases renders a wallet's transactions in the wallet
// panel's purchase-history shape.
func (s *Server) handleWalletPurchases(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "Wallet address is required")
		return
	}

	txs, err := s.store.GetTransactionsByWallet(r.Context(), address)
	if err != nil {
		s.internalError(w, r, "Failed to fetch wallet purchases", err)
		return
	}

	out := make([]domain.WalletPurchase, 0, len(txs))
	for _, tx := range txs {
		usdt, _ := pricing.SettlementValue(tx.Currency, tx.PayAmount).Float64()
		out = append(out, domain.WalletPurchase{
			WalletAddress:   tx.WalletAddress,
			WalletName:      tx.ReceiveAmount.String() + " " + s.opts.TokenSymbol,
			Amount:          tx.PayAmount.String(),
			TransactionHash: tx.TxHash,
			Timestamp:       tx.CreatedAt.UTC().Format(isoMillis),
			Currency:        tx.Currency.String(),
			UsdtValue:       usdt,
			TokenAmount:     tx.ReceiveAmount.String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRecordWalletPurchase records a pending transaction from the wallet
// panel. Unlike POST /api/transactions it leaves the raised total alone.
func (s *Server) handleRecordWalletPurchase(w http.ResponseWriter, r *http.Request) {
	const failure = "Failed to record wallet purchase"

	in, ok := s.readNewTransaction(w, r, failure)
	if !ok {
		return
	}
	tx, ok := s.storeTransaction(w, r, in, failure)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

const isoMillis = "2006-01-02T15:04:05.000Z"

type statsResponse struct {
	Totals []domain.CurrencyTotals `json:"totals"`
}

// handlePresaleStats returns per-currency purchase totals from the analytics sink.
func (s *Server) handlePresaleStats(w http.ResponseWriter, r *http.Request) {
	totals, err := s.purchases.TotalsByCurrency(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to fetch presale stats", err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Totals: totals})
}

// handleFeed upgrades to a WebSocket that receives the presale view on
// connect and after every recorded purchase.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetPresaleState(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to fetch presale data", err)
		return
	}
	if err := s.feed.Serve(w, r, FeedMessage{Type: "presale", Data: pricing.View(*st)}); err != nil {
		s.log.WithError(err).Debug("feed upgrade failed")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status           string    `json:"status"`
	Uptime           string    `json:"uptime"`
	StartedAt        time.Time `json:"started_at"`
	StorageBackend   string    `json:"storage_backend"`
	AnalyticsBackend string    `json:"analytics_backend"`
	StrictCurrency   bool      `json:"strict_currency"`
	FeedClients      int       `json:"feed_clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:           "running",
		Uptime:           time.Since(s.started).Round(time.Second).String(),
		StartedAt:        s.started,
		StorageBackend:   s.opts.StorageBackend,
		AnalyticsBackend: s.opts.AnalyticsBackend,
		StrictCurrency:   s.opts.StrictCurrency,
		FeedClients:      s.feed.Len(),
	})
}

// currencyLabel bounds metric label cardinality.
func currencyLabel(c domain.Currency) string {
	if pricing.Supported(c) {
		return c.String()
	}
	return "other"
}
