package http

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/Dzasterpeace/xcloudbot/internal/tipster-service/dto"
	"github.com/Dzasterpeace/xcloudbot/internal/tipster-service/repo"
	"github.com/Dzasterpeace/xcloudbot/pkg/contracts/events"
)

// Store é o que os handlers precisam da persistência.
type Store interface {
	GetSystem(ctx context.Context, id string) (*repo.System, error)
	CreateTip(ctx context.Context, t *repo.Tip) (string, error)
	CreatePendingStake(ctx context.Context, userID, tipID string, stake float64) (string, error)
	ListPendingBets(ctx context.Context, userID string) ([]dto.PendingBetRow, error)
	ClearCredentials(ctx context.Context, userID string) error
}

// Venue é o pedaço do cliente Betfair usado pelo fluxo de conta.
type Venue interface {
	AuthorizeURL() string
	ExchangeCode(ctx context.Context, userID, code string) error
	RefreshUser(ctx context.Context, userID string) error
}

type Server struct {
	log   *zap.Logger
	repo  Store
	venue Venue
	publ  interface {
		PublishTipPublished(context.Context, events.TipPublished) error
	}
}

func NewServer(log *zap.Logger, r Store, venue Venue, p interface {
	PublishTipPublished(context.Context, events.TipPublished) error
}) *Server {
	return &Server{log: log, repo: r, venue: venue, publ: p}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tips/upload", s.uploadTips)         // POST
	mux.HandleFunc("/bets/create", s.createBet)          // POST
	mux.HandleFunc("/bets/pending", s.pendingBets)       // GET ?user_id=
	mux.HandleFunc("/betfair/oauth-url", s.oauthURL)     // GET
	mux.HandleFunc("/betfair/callback", s.oauthCallback) // GET ?code=&user_id=
	mux.HandleFunc("/betfair/refresh", s.refreshToken)   // POST
	mux.HandleFunc("/betfair/disconnect", s.disconnect)  // POST
	return mux
}

// uploadTips grava os palpites de um sistema e publica um evento por palpite;
// o fanout-worker cria as stakes pendentes dos seguidores de forma assíncrona.
func (s *Server) uploadTips(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.UploadTipsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.SystemID == "" || len(req.Tips) == 0 {
		http.Error(w, "missing system_id or tips", http.StatusBadRequest)
		return
	}

	system, err := s.repo.GetSystem(r.Context(), req.SystemID)
	if err != nil {
		http.Error(w, "system not found", http.StatusNotFound)
		return
	}
	if system.UserID != req.UserID {
		http.Error(w, "unauthorized", http.StatusForbidden)
		return
	}

	created := 0
	for _, t := range req.Tips {
		if t.Course == "" || t.Horse == "" || t.RaceTime.IsZero() {
			continue
		}
		tipID, err := s.repo.CreateTip(r.Context(), &repo.Tip{
			SystemID:  req.SystemID,
			RaceTime:  t.RaceTime,
			Course:    t.Course,
			Horse:     t.Horse,
			StakeType: t.StakeType,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if err := s.publ.PublishTipPublished(r.Context(), events.TipPublished{
			TipID:     tipID,
			SystemID:  req.SystemID,
			RaceTime:  t.RaceTime,
			Course:    t.Course,
			Horse:     t.Horse,
			StakeType: t.StakeType,
		}); err != nil {
			s.log.Error("publish tip_published", zap.String("tipId", tipID), zap.Error(err))
		}
		created++
	}

	writeJSON(w, dto.UploadTipsResponse{
		Message: "tips uploaded; follower stakes are created asynchronously",
		Tips:    created,
	})
}

// createBet registra uma aposta manual: um palpite novo + uma stake pendente
// pro próprio usuário. O ciclo de liquidação coloca a ordem depois.
func (s *Server) createBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.CreateBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.SystemID == "" || req.Course == "" || req.Horse == "" ||
		req.RaceTime.IsZero() || req.Stake <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	tipID, err := s.repo.CreateTip(r.Context(), &repo.Tip{
		SystemID: req.SystemID,
		RaceTime: req.RaceTime,
		Course:   req.Course,
		Horse:    req.Horse,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	stakeID, err := s.repo.CreatePendingStake(r.Context(), req.UserID, tipID, req.Stake)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, dto.CreateBetResponse{BetID: stakeID, Status: "pending"})
}

func (s *Server) pendingBets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	rowsOut, err := s.repo.ListPendingBets(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rowsOut)
}

func (s *Server) oauthURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, dto.OAuthURLResponse{URL: s.venue.AuthorizeURL()})
}

// oauthCallback troca o authorization code pelos tokens e grava selado.
func (s *Server) oauthCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	code := r.URL.Query().Get("code")
	userID := r.URL.Query().Get("user_id")
	if code == "" || userID == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	if err := s.venue.ExchangeCode(r.Context(), userID, code); err != nil {
		s.log.Warn("oauth code exchange failed", zap.String("userId", userID), zap.Error(err))
		http.Error(w, "token exchange failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, dto.MessageResponse{Message: "Betfair account successfully connected"})
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	if err := s.venue.RefreshUser(r.Context(), req.UserID); err != nil {
		http.Error(w, "failed to refresh token", http.StatusBadRequest)
		return
	}
	writeJSON(w, dto.MessageResponse{Message: "Betfair token refreshed"})
}

func (s *Server) disconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	if err := s.repo.ClearCredentials(r.Context(), req.UserID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.MessageResponse{Message: "Betfair account disconnected"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
