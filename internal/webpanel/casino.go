package webpanel

import (
	"context"
	"net/http"

	"arsenal-bot/internal/game"
	"arsenal-bot/internal/game/blackjack"
	"arsenal-bot/internal/game/cards"
	"arsenal-bot/internal/game/poker"
	"arsenal-bot/internal/game/roulette"
	"arsenal-bot/internal/model"
)

// Casino is the slice of the casino service the dashboard drives.
type Casino interface {
	StartBlackjack(ctx context.Context, userID string, bet int64) (blackjack.State, error)
	HitBlackjack(ctx context.Context, userID, id string) (blackjack.State, error)
	StandBlackjack(ctx context.Context, userID, id string) (blackjack.State, error)
	StartPoker(ctx context.Context, userID string, bet int64) (poker.State, error)
	DrawPoker(ctx context.Context, userID, id string, hold [5]bool) (poker.State, error)
	Play(ctx context.Context, command, userID string, bet int64, params map[string]any) (*game.Result, error)
}

// Wallets reads balances for the dashboard.
type Wallets interface {
	GetWallet(ctx context.Context, userID string) (*model.Wallet, error)
}

type betRequest struct {
	Bet int64 `json:"bet"`
}

type gameRequest struct {
	GameID string `json:"game_id"`
}

type drawRequest struct {
	GameID string `json:"game_id"`
	Hold   string `json:"hold"`
}

type rouletteRequest struct {
	Bet    int64  `json:"bet"`
	Choice string `json:"choice"`
}

type blackjackView struct {
	GameID      string   `json:"game_id"`
	Bet         int64    `json:"bet"`
	Player      []string `json:"player"`
	PlayerTotal int      `json:"player_total"`
	Dealer      []string `json:"dealer"`
	DealerTotal int      `json:"dealer_total"`
	Finished    bool     `json:"finished"`
	Outcome     string   `json:"outcome,omitempty"`
	Winnings    int64    `json:"winnings"`
}

type pokerView struct {
	GameID   string   `json:"game_id"`
	Bet      int64    `json:"bet"`
	Cards    []string `json:"cards"`
	Status   string   `json:"status"`
	Hand     string   `json:"hand,omitempty"`
	Winnings int64    `json:"winnings"`
}

type resultView struct {
	Winnings    int64          `json:"winnings"`
	Net         int64          `json:"net"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details,omitempty"`
}

type walletView struct {
	UserID      string `json:"user_id"`
	Balance     int64  `json:"balance"`
	TotalEarned int64  `json:"total_earned"`
	TotalSpent  int64  `json:"total_spent"`
}

func cardStrings(cs []cards.Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

func newBlackjackView(st blackjack.State) blackjackView {
	return blackjackView{
		GameID:      st.ID,
		Bet:         st.Bet,
		Player:      cardStrings(st.Player),
		PlayerTotal: st.PlayerTotal,
		Dealer:      cardStrings(st.Dealer),
		DealerTotal: st.DealerTotal,
		Finished:    st.Finished,
		Outcome:     string(st.Outcome),
		Winnings:    st.Winnings,
	}
}

func newPokerView(st poker.State) pokerView {
	v := pokerView{
		GameID:   st.ID,
		Bet:      st.Bet,
		Cards:    cardStrings(st.Cards[:]),
		Status:   string(st.Status),
		Winnings: st.Winnings,
	}
	if st.Finished() {
		v.Hand = st.Category.String()
	}
	return v
}

// userID is the dashboard user the request plays as.
func userID(r *http.Request) string {
	claims, _ := ClaimsFrom(r.Context())
	return claims.UserID
}

func (s *Server) handleBlackjackStart(w http.ResponseWriter, r *http.Request) {
	var req betRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st, err := s.casino.StartBlackjack(r.Context(), userID(r), req.Bet)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, newBlackjackView(st))
}

func (s *Server) handleBlackjackAction(action func(ctx context.Context, userID, id string) (blackjack.State, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gameRequest
		if err := decodeJSON(r, &req); err != nil || req.GameID == "" {
			respondError(w, http.StatusBadRequest, "game_id is required")
			return
		}
		st, err := action(r.Context(), userID(r), req.GameID)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondOK(w, newBlackjackView(st))
	}
}

func (s *Server) handlePokerStart(w http.ResponseWriter, r *http.Request) {
	var req betRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st, err := s.casino.StartPoker(r.Context(), userID(r), req.Bet)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, newPokerView(st))
}

func (s *Server) handlePokerDraw(w http.ResponseWriter, r *http.Request) {
	var req drawRequest
	if err := decodeJSON(r, &req); err != nil || req.GameID == "" {
		respondError(w, http.StatusBadRequest, "game_id is required")
		return
	}
	if req.Hold == "" {
		req.Hold = "00000"
	}
	hold, err := poker.ParseHoldMask(req.Hold)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := s.casino.DrawPoker(r.Context(), userID(r), req.GameID, hold)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, newPokerView(st))
}

func (s *Server) handleRoulette(w http.ResponseWriter, r *http.Request) {
	var req rouletteRequest
	if err := decodeJSON(r, &req); err != nil || req.Choice == "" {
		respondError(w, http.StatusBadRequest, "choice is required")
		return
	}
	if _, err := roulette.ParseBet(req.Choice); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.casino.Play(r.Context(), roulette.Command, userID(r), req.Bet, map[string]any{roulette.ParamBet: req.Choice})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, resultView{
		Winnings:    res.Winnings,
		Net:         res.Net(req.Bet),
		Description: res.Description,
		Details:     res.Details,
	})
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.wallets.GetWallet(r.Context(), userID(r))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, walletView{
		UserID:      wallet.UserID,
		Balance:     wallet.Balance,
		TotalEarned: wallet.TotalEarned,
		TotalSpent:  wallet.TotalSpent,
	})
}
