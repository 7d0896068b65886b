package settlement

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Server expõe as duas operações cron pro agendador externo. A resposta é
// sempre 200: falha aparece nos contadores do corpo, nunca como erro de
// transporte (o agendador só inspeciona o resumo).
type Server struct {
	log     *zap.Logger
	settle  *Cycle
	refresh *RefreshCycle
	lock    *PassLock
}

func NewServer(log *zap.Logger, settle *Cycle, refresh *RefreshCycle, lock *PassLock) *Server {
	return &Server{log: log, settle: settle, refresh: refresh, lock: lock}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/cron/place_pending_bets", s.placePendingBets) // POST
	mux.HandleFunc("/cron/refresh_tokens", s.refreshTokens)        // POST
	return mux
}

func (s *Server) placePendingBets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	release, ok := s.lock.Acquire(r.Context(), "place_pending_bets")
	if !ok {
		writeJSON(w, map[string]any{"message": "settlement pass already running"})
		return
	}
	defer release()

	sum := s.settle.Run(r.Context())
	writeJSON(w, struct {
		Message string `json:"message"`
		Summary
	}{
		Message: fmt.Sprintf("%d bets placed, %d expired, %d failed or skipped.", sum.Placed, sum.Expired, sum.Failed),
		Summary: sum,
	})
}

func (s *Server) refreshTokens(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	release, ok := s.lock.Acquire(r.Context(), "refresh_tokens")
	if !ok {
		writeJSON(w, map[string]any{"message": "refresh pass already running"})
		return
	}
	defer release()

	sum := s.refresh.Run(r.Context())
	writeJSON(w, struct {
		Message string `json:"message"`
		RefreshSummary
	}{
		Message: fmt.Sprintf("%d tokens refreshed, %d skipped (no refresh token), %d failed",
			sum.Refreshed, sum.Skipped, sum.Failed),
		RefreshSummary: sum,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
