package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mooveapp/auctiond/internal/bidding"
	"github.com/mooveapp/auctiond/internal/domain"
	"github.com/mooveapp/auctiond/internal/services"
	"github.com/mooveapp/auctiond/internal/subgraph"
)

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type fakeBackend struct {
	snapshot *domain.AuctionSnapshot
	liquid   *big.Int
	escrow   *big.Int
	bids     []domain.Bid
	unsold   []domain.UnsoldNFT
	listed   map[uint64]bool
	prices   map[uint64]*big.Int
	bidders  []domain.Identity

	submitted []string
}

func (f *fakeBackend) CurrentAuction(ctx context.Context) (*domain.AuctionSnapshot, error) {
	return f.snapshot, nil
}

func (f *fakeBackend) Bidders(ctx context.Context) ([]domain.Identity, error) {
	return f.bidders, nil
}

func (f *fakeBackend) LiquidBalance(ctx context.Context, id domain.Identity) (*big.Int, error) {
	if f.liquid == nil {
		return big.NewInt(0), nil
	}
	return f.liquid, nil
}

func (f *fakeBackend) EscrowCredit(ctx context.Context, id domain.Identity) (*big.Int, error) {
	if f.escrow == nil {
		return big.NewInt(0), nil
	}
	return f.escrow, nil
}

func (f *fakeBackend) OwnedNFTs(ctx context.Context, id domain.Identity) ([]uint64, error) {
	return []uint64{1}, nil
}

func (f *fakeBackend) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	return "ipfs://bafy/1.json", nil
}

func (f *fakeBackend) UnsoldNFTPrice(ctx context.Context, tokenID uint64) (*big.Int, error) {
	return f.prices[tokenID], nil
}

func (f *fakeBackend) IsTokenListed(ctx context.Context, tokenID uint64) (bool, error) {
	return f.listed[tokenID], nil
}

func (f *fakeBackend) CanSubmit() bool { return true }

func (f *fakeBackend) SubmitBid(ctx context.Context, plan bidding.SubmissionPlan) (common.Hash, error) {
	f.submitted = append(f.submitted, "bid:"+string(plan.Kind))
	return common.HexToHash("0xb1d"), nil
}

func (f *fakeBackend) SubmitWithdraw(ctx context.Context, amount *big.Int) (common.Hash, error) {
	f.submitted = append(f.submitted, "withdraw")
	return common.HexToHash("0xd0a"), nil
}

func (f *fakeBackend) SubmitBuy(ctx context.Context, tokenID uint64, plan bidding.SubmissionPlan) (common.Hash, error) {
	f.submitted = append(f.submitted, "buy:"+string(plan.Kind))
	return common.HexToHash("0xb0b"), nil
}

func (f *fakeBackend) StartAuction(ctx context.Context) (common.Hash, error) {
	f.submitted = append(f.submitted, "start")
	return common.HexToHash("0x51a"), nil
}

func (f *fakeBackend) CloseAuction(ctx context.Context) (common.Hash, error) {
	f.submitted = append(f.submitted, "close")
	return common.HexToHash("0xc10"), nil
}

func (f *fakeBackend) WaitForReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, TxHash: txHash}, nil
}

func (f *fakeBackend) Bids(ctx context.Context, auctionID uint64) ([]domain.Bid, error) {
	return f.bids, nil
}

func (f *fakeBackend) UnsoldNFTs(ctx context.Context) ([]domain.UnsoldNFT, error) {
	return f.unsold, nil
}

func (f *fakeBackend) Transfers(ctx context.Context, id domain.Identity) ([]subgraph.Transfer, []subgraph.Transfer, error) {
	return nil, nil, nil
}

type fakeResolver struct{}

func (fakeResolver) Resolve(ctx context.Context, uri string) domain.NFTMetadata {
	return domain.NFTMetadata{Vehicle: "Scooter", ImageURL: "https://img/1.png"}
}

func newTestServer(t *testing.T, backend *fakeBackend) (*Server, *httptest.Server) {
	return newTestServerWithPrice(t, backend, nil)
}

func newTestServerWithPrice(t *testing.T, backend *fakeBackend, price *services.PriceFeed) (*Server, *httptest.Server) {
	t.Helper()

	auctions := services.NewAuctionService(backend, backend, price, time.Second)
	auctions.Refresh(context.Background())
	wallets := services.NewWalletService(backend, backend, backend, fakeResolver{}, time.Minute)
	t.Cleanup(func() {
		auctions.Stop()
		wallets.Close()
	})

	srv := New(Deps{
		Auctions:  auctions,
		Wallets:   wallets,
		Bids:      services.NewBidService(auctions, wallets, backend),
		Withdraws: services.NewWithdrawService(wallets, backend),
		Buys:      services.NewBuyService(backend, wallets, backend),
		Admin:     services.NewAdminService(backend, auctions),
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func defaultBackend() *fakeBackend {
	return &fakeBackend{
		snapshot: &domain.AuctionSnapshot{
			AuctionID:           4,
			NFTID:               9,
			ClosingTimestamp:    time.Now().Add(time.Hour).Unix(),
			StartingPrice:       eth(1),
			MinimumBidIncrement: big.NewInt(5e17),
			CurrentHighestBid:   eth(1),
			CurrentWinner:       domain.NewIdentity("0xB0B0000000000000000000000000000000000000"),
			IsOpen:              true,
		},
		liquid: eth(10),
		escrow: big.NewInt(0),
		listed: map[uint64]bool{7: true},
		prices: map[uint64]*big.Int{7: eth(2)},
	}
}

func postJSON(t *testing.T, url string, body any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func getJSON(t *testing.T, url string) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, defaultBackend())
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuctionCurrent(t *testing.T) {
	_, ts := newTestServer(t, defaultBackend())
	out := getJSON(t, ts.URL+"/api/auction/current")

	auction := out["auction"].(map[string]any)
	assert.Equal(t, float64(4), auction["auctionId"])
	assert.Equal(t, "1", auction["highestBidText"])
	assert.Equal(t, "1.5", auction["minimumBidText"])
	assert.Equal(t, "0xb0b0000000000000000000000000000000000000", auction["currentWinner"])
	assert.Equal(t, true, auction["isOpen"])
	assert.Equal(t, false, out["stale"])

	// fiat block is absent until a price is known
	_, hasFiat := out["fiat"]
	assert.False(t, hasFiat)
}

func TestAuctionCurrentFiat(t *testing.T) {
	price := services.NewPriceFeed("", time.Minute)
	price.SetPrice(decimal.NewFromInt(2000))
	_, ts := newTestServerWithPrice(t, defaultBackend(), price)

	out := getJSON(t, ts.URL+"/api/auction/current")
	fiat := out["fiat"].(map[string]any)
	assert.Equal(t, "USD", fiat["currency"])
	// highest bid is 1 ETH at 2000 per unit
	assert.Equal(t, "2000", fiat["highestBidValue"])
}

func TestAuctionBids(t *testing.T) {
	backend := defaultBackend()
	backend.bids = []domain.Bid{
		{Bidder: domain.NewIdentity("0xB0B"), AuctionID: 4, Amount: eth(1), BlockTimestamp: 200, TxHash: "0x2"},
		{Bidder: domain.NewIdentity("0xA11CE"), AuctionID: 4, Amount: big.NewInt(5e17), BlockTimestamp: 100, TxHash: "0x1"},
	}
	_, ts := newTestServer(t, backend)

	out := getJSON(t, ts.URL+"/api/auction/4/bids")
	bids := out["bids"].([]any)
	require.Len(t, bids, 2)
	first := bids[0].(map[string]any)
	assert.Equal(t, "1", first["amountText"])

	// non-numeric auction id is a client error
	resp, err := http.Get(ts.URL + "/api/auction/nope/bids")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWalletEndpoint(t *testing.T) {
	backend := defaultBackend()
	backend.escrow = eth(3)
	backend.bidders = []domain.Identity{domain.NewIdentity("0xA11CE00000000000000000000000000000000000")}
	_, ts := newTestServer(t, backend)

	out := getJSON(t, ts.URL+"/api/wallet/0xA11CE00000000000000000000000000000000000")
	assert.Equal(t, true, out["connected"])
	assert.Equal(t, eth(3).String(), out["escrowCredit"])
	assert.Equal(t, eth(13).String(), out["availableFunds"])
	assert.Equal(t, "3", out["maxWithdrawText"])
	assert.Equal(t, true, out["hasActiveBid"])

	out = getJSON(t, ts.URL+"/api/wallet/0xCAB0000000000000000000000000000000000000")
	assert.Equal(t, false, out["hasActiveBid"])
}

func TestBidValidateEndpoint(t *testing.T) {
	_, ts := newTestServer(t, defaultBackend())

	// below minimum: still HTTP 200, valid=false with user-facing message
	out := postJSON(t, ts.URL+"/api/bid/validate", map[string]any{
		"amount":  "1.2",
		"address": "0xA11CE00000000000000000000000000000000000",
	})
	assert.Equal(t, false, out["valid"])
	assert.Equal(t, "Bid must be at least 1.5 ETH", out["message"])

	// disconnected wallet
	out = postJSON(t, ts.URL+"/api/bid/validate", map[string]any{"amount": "2"})
	assert.Equal(t, "Connect wallet to place your bid", out["message"])

	// valid bid
	out = postJSON(t, ts.URL+"/api/bid/validate", map[string]any{
		"amount":  "2",
		"address": "0xA11CE00000000000000000000000000000000000",
	})
	assert.Equal(t, true, out["valid"])
	assert.Equal(t, "direct", out["plan"])
}

func TestBidSubmitEndpoint(t *testing.T) {
	backend := defaultBackend()
	_, ts := newTestServer(t, backend)

	out := postJSON(t, ts.URL+"/api/bid", map[string]any{
		"amount":  "2",
		"address": "0xA11CE00000000000000000000000000000000000",
	})
	require.Equal(t, true, out["valid"])
	receipt := out["receipt"].(map[string]any)
	assert.NotEmpty(t, receipt["requestId"])
	assert.NotEmpty(t, receipt["txHash"])
	assert.Equal(t, []string{"bid:direct"}, backend.submitted)
}

func TestWithdrawEndpoints(t *testing.T) {
	backend := defaultBackend()
	backend.escrow = eth(2)
	_, ts := newTestServer(t, backend)

	// exceeding balance fails validation with the formatted cap
	out := postJSON(t, ts.URL+"/api/withdraw/validate", map[string]any{
		"amount":  "2.5",
		"address": "0xA11CE00000000000000000000000000000000000",
	})
	assert.Equal(t, false, out["valid"])
	assert.Equal(t, "Amount cannot exceed 2 ETH", out["message"])

	out = postJSON(t, ts.URL+"/api/withdraw", map[string]any{
		"amount":  "2",
		"address": "0xA11CE00000000000000000000000000000000000",
	})
	assert.Equal(t, true, out["valid"])
	assert.NotNil(t, out["receipt"])
	assert.Equal(t, []string{"withdraw"}, backend.submitted)
}

func TestBuyEndpoints(t *testing.T) {
	backend := defaultBackend()
	backend.escrow = eth(2)
	_, ts := newTestServer(t, backend)

	out := postJSON(t, ts.URL+"/api/buy/validate", map[string]any{
		"tokenId": 7,
		"address": "0xA11CE00000000000000000000000000000000000",
	})
	assert.Equal(t, true, out["valid"])
	assert.Equal(t, "covered", out["plan"])

	out = postJSON(t, ts.URL+"/api/buy", map[string]any{
		"tokenId": 7,
		"address": "0xA11CE00000000000000000000000000000000000",
	})
	assert.Equal(t, true, out["valid"])
	assert.Equal(t, []string{"buy:covered"}, backend.submitted)

	// delisted token
	out = postJSON(t, ts.URL+"/api/buy/validate", map[string]any{
		"tokenId": 99,
		"address": "0xA11CE00000000000000000000000000000000000",
	})
	assert.Equal(t, false, out["valid"])
	assert.Equal(t, "This NFT is no longer available", out["message"])
}

func TestOwnedNFTs(t *testing.T) {
	_, ts := newTestServer(t, defaultBackend())
	out := getJSON(t, ts.URL+"/api/nfts/0xA11CE00000000000000000000000000000000000")
	nfts := out["nfts"].([]any)
	require.Len(t, nfts, 1)
	assert.Equal(t, "Scooter", nfts[0].(map[string]any)["name"])
}

func TestUnsoldEndpoint(t *testing.T) {
	backend := defaultBackend()
	backend.unsold = []domain.UnsoldNFT{{TokenID: 7, SellingPrice: eth(2), ListedAt: 1234}}
	_, ts := newTestServer(t, backend)

	out := getJSON(t, ts.URL+"/api/unsold")
	nfts := out["nfts"].([]any)
	require.Len(t, nfts, 1)
	assert.Equal(t, "2", nfts[0].(map[string]any)["sellingPriceText"])
}

func TestAdminEndpoints(t *testing.T) {
	backend := defaultBackend()
	_, ts := newTestServer(t, backend)

	out := postJSON(t, ts.URL+"/api/admin/auction/start", map[string]any{})
	assert.NotNil(t, out["receipt"])
	out = postJSON(t, ts.URL+"/api/admin/auction/close", map[string]any{})
	assert.NotNil(t, out["receipt"])
	assert.Equal(t, []string{"start", "close"}, backend.submitted)
}
