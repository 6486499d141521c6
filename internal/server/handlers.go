package server

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/mooveapp/auctiond/internal/bidding"
	"github.com/mooveapp/auctiond/internal/domain"
	"github.com/mooveapp/auctiond/internal/services"
)

type auctionJSON struct {
	AuctionID           uint64 `json:"auctionId"`
	NFTID               uint64 `json:"nftId"`
	OpeningTimestamp    int64  `json:"openingTimestamp"`
	ClosingTimestamp    int64  `json:"closingTimestamp"`
	RemainingSeconds    int64  `json:"remainingSeconds"`
	StartingPrice       string `json:"startingPrice"`
	MinimumBidIncrement string `json:"minimumBidIncrement"`
	CurrentHighestBid   string `json:"currentHighestBid"`
	HighestBidText      string `json:"highestBidText"`
	MinimumBid          string `json:"minimumBid"`
	MinimumBidText      string `json:"minimumBidText"`
	CurrentWinner       string `json:"currentWinner,omitempty"`
	IsOpen              bool   `json:"isOpen"`
}

func toAuctionJSON(snap *domain.AuctionSnapshot) auctionJSON {
	out := auctionJSON{
		AuctionID:           snap.AuctionID,
		NFTID:               snap.NFTID,
		OpeningTimestamp:    snap.OpeningTimestamp,
		ClosingTimestamp:    snap.ClosingTimestamp,
		RemainingSeconds:    int64(snap.RemainingTime(time.Now()) / time.Second),
		StartingPrice:       weiString(snap.StartingPrice),
		MinimumBidIncrement: weiString(snap.MinimumBidIncrement),
		CurrentHighestBid:   weiString(snap.CurrentHighestBid),
		HighestBidText:      domain.FormatWei(snap.CurrentHighestBid),
		MinimumBid:          snap.MinimumBid().String(),
		MinimumBidText:      domain.FormatWei(snap.MinimumBid()),
		IsOpen:              snap.IsOpen,
	}
	if snap.HasWinner() {
		out.CurrentWinner = snap.CurrentWinner.String()
	}
	return out
}

func weiString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func (s *Server) handleAuctionCurrent(w http.ResponseWriter, r *http.Request) {
	snap, info := s.auctions.Current()
	if !info.Ok {
		writeError(w, http.StatusServiceUnavailable, "auction snapshot not ready")
		return
	}

	resp := map[string]any{
		"auction":   toAuctionJSON(snap),
		"stale":     info.Stale,
		"fetchedAt": info.FetchedAt.Unix(),
	}
	if price, ok := s.auctions.FiatPrice(); ok {
		resp["fiat"] = map[string]any{
			"currency":        "USD",
			"unitPrice":       price,
			"highestBidValue": domain.FiatValue(snap.CurrentHighestBid, price),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type bidJSON struct {
	Bidder         string `json:"bidder"`
	Amount         string `json:"amount"`
	AmountText     string `json:"amountText"`
	BlockTimestamp int64  `json:"blockTimestamp"`
	TxHash         string `json:"txHash"`
}

func (s *Server) handleAuctionBids(w http.ResponseWriter, r *http.Request) {
	auctionID, err := strconv.ParseUint(pathParam(r, "auctionID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid auction id")
		return
	}

	bids, err := s.auctions.Bids(r.Context(), auctionID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	items := make([]bidJSON, 0, len(bids))
	for _, b := range bids {
		items = append(items, bidJSON{
			Bidder:         b.Bidder.String(),
			Amount:         weiString(b.Amount),
			AmountText:     domain.FormatWei(b.Amount),
			BlockTimestamp: b.BlockTimestamp,
			TxHash:         b.TxHash,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"auctionId": auctionID, "bids": items})
}

func (s *Server) handleUnsold(w http.ResponseWriter, r *http.Request) {
	nfts, err := s.wallets.UnsoldNFTs(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	type unsoldJSON struct {
		TokenID          uint64 `json:"tokenId"`
		SellingPrice     string `json:"sellingPrice"`
		SellingPriceText string `json:"sellingPriceText"`
		ListedAt         int64  `json:"listedAt"`
	}
	items := make([]unsoldJSON, 0, len(nfts))
	for _, n := range nfts {
		items = append(items, unsoldJSON{
			TokenID:          n.TokenID,
			SellingPrice:     weiString(n.SellingPrice),
			SellingPriceText: domain.FormatWei(n.SellingPrice),
			ListedAt:         n.ListedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"nfts": items})
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	identity := domain.NewIdentity(pathParam(r, "address"))
	if identity.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	state, err := s.wallets.State(r.Context(), identity)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	// best-effort: a failed bidder-list read degrades to false
	hasActiveBid, err := s.auctions.HasBid(r.Context(), identity)
	if err != nil {
		hasActiveBid = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address":         state.Identity.String(),
		"connected":       state.Connected,
		"liquidBalance":   weiString(state.LiquidBalance),
		"escrowCredit":    weiString(state.EscrowCredit),
		"availableFunds":  state.AvailableFunds().String(),
		"maxWithdrawText": bidding.MaxWithdrawText(state.EscrowCredit),
		"hasActiveBid":    hasActiveBid,
	})
}

func (s *Server) handleOwnedNFTs(w http.ResponseWriter, r *http.Request) {
	identity := domain.NewIdentity(pathParam(r, "address"))
	if identity.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	gallery, err := s.wallets.OwnedNFTs(r.Context(), identity)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	type ownedJSON struct {
		TokenID  uint64 `json:"tokenId"`
		TokenURI string `json:"tokenUri,omitempty"`
		Name     string `json:"name"`
		ImageURL string `json:"imageUrl,omitempty"`
	}
	items := make([]ownedJSON, 0, len(gallery))
	for _, n := range gallery {
		item := ownedJSON{
			TokenID:  n.TokenID,
			TokenURI: n.TokenURI,
			Name:     n.Metadata.DisplayName(),
		}
		if n.Metadata != nil {
			item.ImageURL = n.Metadata.ImageURL
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": identity.String(), "nfts": items})
}

type bidRequest struct {
	Amount  string `json:"amount"`
	Address string `json:"address"`
}

// bidResponse is shared by validate and submit; validation failures are 200s
// carrying valid=false, only transport/contract failures become 4xx/5xx.
type bidResponse struct {
	Valid   bool              `json:"valid"`
	Neutral bool              `json:"neutral,omitempty"`
	Message string            `json:"message,omitempty"`
	Info    string            `json:"info,omitempty"`
	Amount  string            `json:"amount,omitempty"`
	Plan    string            `json:"plan,omitempty"`
	Receipt *services.Receipt `json:"receipt,omitempty"`
}

func toBidResponse(result bidding.BidResult) bidResponse {
	resp := bidResponse{
		Valid:   result.Valid(),
		Neutral: result.Neutral,
		Message: result.ErrorMessage,
		Info:    result.InfoMessage,
	}
	if result.Amount != nil {
		resp.Amount = result.Amount.String()
	}
	if result.Plan != nil {
		resp.Plan = string(result.Plan.Kind)
	}
	return resp
}

func (s *Server) handleBidValidate(w http.ResponseWriter, r *http.Request) {
	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	result, err := s.bids.Validate(r.Context(), req.Amount, domain.NewIdentity(req.Address))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toBidResponse(result))
}

func (s *Server) handleBidSubmit(w http.ResponseWriter, r *http.Request) {
	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	result, receipt, err := s.bids.Submit(r.Context(), req.Amount, domain.NewIdentity(req.Address))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	resp := toBidResponse(result)
	resp.Receipt = receipt
	writeJSON(w, http.StatusOK, resp)
}

type withdrawResponse struct {
	Valid   bool              `json:"valid"`
	Neutral bool              `json:"neutral,omitempty"`
	Message string            `json:"message,omitempty"`
	Amount  string            `json:"amount,omitempty"`
	Receipt *services.Receipt `json:"receipt,omitempty"`
}

func toWithdrawResponse(result bidding.WithdrawResult) withdrawResponse {
	resp := withdrawResponse{
		Valid:   result.Valid(),
		Neutral: result.Neutral,
		Message: result.ErrorMessage,
	}
	if result.Amount != nil {
		resp.Amount = result.Amount.String()
	}
	return resp
}

func (s *Server) handleWithdrawValidate(w http.ResponseWriter, r *http.Request) {
	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	result, err := s.withdraws.Validate(r.Context(), req.Amount, domain.NewIdentity(req.Address))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toWithdrawResponse(result))
}

func (s *Server) handleWithdrawSubmit(w http.ResponseWriter, r *http.Request) {
	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	result, receipt, err := s.withdraws.Submit(r.Context(), req.Amount, domain.NewIdentity(req.Address))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	resp := toWithdrawResponse(result)
	resp.Receipt = receipt
	writeJSON(w, http.StatusOK, resp)
}

type buyRequest struct {
	TokenID uint64 `json:"tokenId"`
	Address string `json:"address"`
}

type buyResponse struct {
	Valid   bool              `json:"valid"`
	Message string            `json:"message,omitempty"`
	Info    string            `json:"info,omitempty"`
	Price   string            `json:"price,omitempty"`
	Plan    string            `json:"plan,omitempty"`
	Receipt *services.Receipt `json:"receipt,omitempty"`
}

func toBuyResponse(result services.BuyResult) buyResponse {
	resp := buyResponse{
		Valid:   result.Valid(),
		Message: result.ErrorMessage,
		Info:    result.InfoMessage,
	}
	if result.Price != nil {
		resp.Price = result.Price.String()
	}
	if result.Plan != nil {
		resp.Plan = string(result.Plan.Kind)
	}
	return resp
}

func (s *Server) handleBuyValidate(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	result, err := s.buys.Validate(r.Context(), req.TokenID, domain.NewIdentity(req.Address))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toBuyResponse(result))
}

func (s *Server) handleBuySubmit(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	result, receipt, err := s.buys.Submit(r.Context(), req.TokenID, domain.NewIdentity(req.Address))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	resp := toBuyResponse(result)
	resp.Receipt = receipt
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdminStart(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.admin.StartAuction(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"receipt": receipt})
}

func (s *Server) handleAdminClose(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.admin.CloseAuction(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"receipt": receipt})
}
