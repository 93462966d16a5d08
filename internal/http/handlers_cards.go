package http

import (
	"net/http"

	"cardledger/internal/core"
	applog "cardledger/internal/log"
	"cardledger/internal/services"
)

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	by := services.ParseCardSort(r.URL.Query().Get("sort"))
	cards, err := s.store.ListCards(r.Context(), by)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}

	now := s.now()
	views := make([]cardView, 0, len(cards))
	for _, c := range cards {
		views = append(views, newCardView(c, now))
	}
	NewJSONResponse().Body(views).Write(w)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(r)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	fields, err := ParseCardFields(p)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	c, err := s.store.CreateCard(r.Context(), fields)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/cards/"+c.ID.String()).
		Body(newCardView(c, s.now())).
		Write(w)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	c, err := s.store.GetCard(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(newCardView(c, s.now())).Write(w)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	p, err := parseBody(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	patch, err := ParseCardPatch(p)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}

	c, err := s.store.UpdateCard(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.invalidateSummary(id)
	NewJSONResponse().Body(newCardView(c, s.now())).Write(w)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.store.DeleteCard(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	s.invalidateSummary(id)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleCardSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	sum, err := s.getSummary(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	NewJSONResponse().Body(newSummaryView(sum, s.now())).Write(w)
}

// handleCardTypes lists the types offered when adding a card.
func handleCardTypes(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(cardTypes()).Write(w)
}

func cardTypes() []string {
	known := core.KnownCardTypes()
	out := make([]string, len(known))
	for i, t := range known {
		out[i] = t.String()
	}
	return out
}
