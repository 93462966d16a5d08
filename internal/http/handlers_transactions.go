package http

import (
	"net/http"

	applog "cardledger/internal/log"
	"cardledger/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	by := services.ParseTransactionSort(r.URL.Query().Get("sort"))
	txs, err := s.store.ListTransactions(r.Context(), cardID, by)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}

	views := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, newTransactionView(tx))
	}
	NewJSONResponse().Body(views).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	p, err := parseBody(r)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	amount, err := ParseAmountField(p)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	tx, err := s.store.CreateTransaction(r.Context(), cardID, amount)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	s.invalidateSummary(cardID)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/transactions/"+tx.ID.String()).
		Body(newTransactionView(tx)).
		Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	tx, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(newTransactionView(tx)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	// The card id is needed to drop its cached summary.
	tx, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.store.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	s.invalidateSummary(tx.CardID)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
