package services

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mooveapp/auctiond/internal/bidding"
	"github.com/mooveapp/auctiond/internal/domain"
	"github.com/mooveapp/auctiond/internal/subgraph"
)

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

// fakeChain 同时扮演链上读取和交易提交
type fakeChain struct {
	snapshot *domain.AuctionSnapshot
	liquid   map[domain.Identity]*big.Int
	escrow   map[domain.Identity]*big.Int
	listed   map[uint64]bool
	prices   map[uint64]*big.Int
	owned    map[domain.Identity][]uint64
	ownedErr error
	bidders  []domain.Identity

	canSubmit bool
	bidPlans  []bidding.SubmissionPlan
	buyPlans  []bidding.SubmissionPlan
	withdrawn []*big.Int
}

func (f *fakeChain) CurrentAuction(ctx context.Context) (*domain.AuctionSnapshot, error) {
	return f.snapshot, nil
}

func (f *fakeChain) Bidders(ctx context.Context) ([]domain.Identity, error) {
	return f.bidders, nil
}

func (f *fakeChain) LiquidBalance(ctx context.Context, id domain.Identity) (*big.Int, error) {
	if v, ok := f.liquid[id]; ok {
		return v, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeChain) EscrowCredit(ctx context.Context, id domain.Identity) (*big.Int, error) {
	if v, ok := f.escrow[id]; ok {
		return v, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeChain) OwnedNFTs(ctx context.Context, id domain.Identity) ([]uint64, error) {
	if f.ownedErr != nil {
		return nil, f.ownedErr
	}
	return f.owned[id], nil
}

func (f *fakeChain) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	return "ipfs://bafy/meta.json", nil
}

func (f *fakeChain) UnsoldNFTPrice(ctx context.Context, tokenID uint64) (*big.Int, error) {
	return f.prices[tokenID], nil
}

func (f *fakeChain) IsTokenListed(ctx context.Context, tokenID uint64) (bool, error) {
	return f.listed[tokenID], nil
}

func (f *fakeChain) CanSubmit() bool { return f.canSubmit }

func (f *fakeChain) SubmitBid(ctx context.Context, plan bidding.SubmissionPlan) (common.Hash, error) {
	f.bidPlans = append(f.bidPlans, plan)
	return common.HexToHash("0x1111"), nil
}

func (f *fakeChain) SubmitWithdraw(ctx context.Context, amount *big.Int) (common.Hash, error) {
	f.withdrawn = append(f.withdrawn, amount)
	return common.HexToHash("0x2222"), nil
}

func (f *fakeChain) SubmitBuy(ctx context.Context, tokenID uint64, plan bidding.SubmissionPlan) (common.Hash, error) {
	f.buyPlans = append(f.buyPlans, plan)
	return common.HexToHash("0x3333"), nil
}

func (f *fakeChain) StartAuction(ctx context.Context) (common.Hash, error) {
	return common.HexToHash("0x4444"), nil
}

func (f *fakeChain) CloseAuction(ctx context.Context) (common.Hash, error) {
	return common.HexToHash("0x5555"), nil
}

func (f *fakeChain) WaitForReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, TxHash: txHash}, nil
}

type fakeIndexer struct {
	bids     []domain.Bid
	unsold   []domain.UnsoldNFT
	incoming []subgraph.Transfer
	outgoing []subgraph.Transfer
}

func (f *fakeIndexer) Bids(ctx context.Context, auctionID uint64) ([]domain.Bid, error) {
	return f.bids, nil
}

func (f *fakeIndexer) UnsoldNFTs(ctx context.Context) ([]domain.UnsoldNFT, error) {
	return f.unsold, nil
}

func (f *fakeIndexer) Transfers(ctx context.Context, id domain.Identity) ([]subgraph.Transfer, []subgraph.Transfer, error) {
	return f.incoming, f.outgoing, nil
}

type fakeMetadata struct{}

func (fakeMetadata) Resolve(ctx context.Context, uri string) domain.NFTMetadata {
	return domain.NFTMetadata{Name: "Moove #1", Vehicle: "Scooter"}
}

func newFixture(chain *fakeChain) (*AuctionService, *WalletService) {
	indexer := &fakeIndexer{}
	auctions := NewAuctionService(chain, indexer, nil, time.Second)
	auctions.Refresh(context.Background())
	wallets := NewWalletService(chain, chain, indexer, fakeMetadata{}, time.Minute)
	return auctions, wallets
}

func TestBidServiceSubmit(t *testing.T) {
	alice := domain.NewIdentity("0xA11CE00000000000000000000000000000000000")
	chain := &fakeChain{
		snapshot: &domain.AuctionSnapshot{
			AuctionID:           4,
			CurrentHighestBid:   eth(1),
			MinimumBidIncrement: eth(1),
		},
		liquid:    map[domain.Identity]*big.Int{alice: eth(10)},
		escrow:    map[domain.Identity]*big.Int{alice: big.NewInt(0)},
		canSubmit: true,
	}
	auctions, wallets := newFixture(chain)
	defer auctions.Stop()
	defer wallets.Close()

	svc := NewBidService(auctions, wallets, chain)
	result, receipt, err := svc.Submit(context.Background(), "2.5", alice)
	require.NoError(t, err)
	require.True(t, result.Valid())
	require.NotNil(t, receipt)
	assert.NotEmpty(t, receipt.RequestID)
	assert.Equal(t, common.HexToHash("0x1111").Hex(), receipt.TxHash)

	require.Len(t, chain.bidPlans, 1)
	assert.Equal(t, bidding.PlanDirect, chain.bidPlans[0].Kind)
	wantValue := new(big.Int).Add(eth(2), big.NewInt(5e17))
	assert.Equal(t, 0, chain.bidPlans[0].Value.Cmp(wantValue))
}

func TestBidServiceRejectsWithoutSubmitting(t *testing.T) {
	alice := domain.NewIdentity("0xA11CE00000000000000000000000000000000000")
	chain := &fakeChain{
		snapshot: &domain.AuctionSnapshot{
			AuctionID:           4,
			CurrentHighestBid:   eth(2),
			MinimumBidIncrement: eth(1),
		},
		liquid:    map[domain.Identity]*big.Int{alice: eth(10)},
		canSubmit: true,
	}
	auctions, wallets := newFixture(chain)
	defer auctions.Stop()
	defer wallets.Close()

	svc := NewBidService(auctions, wallets, chain)
	result, receipt, err := svc.Submit(context.Background(), "2.5", alice)
	require.NoError(t, err)
	assert.False(t, result.Valid())
	assert.Equal(t, "Bid must be at least 3 ETH", result.ErrorMessage)
	assert.Nil(t, receipt)
	assert.Empty(t, chain.bidPlans)
}

func TestWithdrawServiceSubmit(t *testing.T) {
	alice := domain.NewIdentity("0xA11CE00000000000000000000000000000000000")
	chain := &fakeChain{
		snapshot:  &domain.AuctionSnapshot{AuctionID: 4},
		escrow:    map[domain.Identity]*big.Int{alice: eth(3)},
		canSubmit: true,
	}
	auctions, wallets := newFixture(chain)
	defer auctions.Stop()
	defer wallets.Close()

	svc := NewWithdrawService(wallets, chain)

	// MAX预填文案必须能原样通过校验
	maxText, err := svc.MaxWithdraw(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "3", maxText)

	result, receipt, err := svc.Submit(context.Background(), maxText, alice)
	require.NoError(t, err)
	require.True(t, result.Valid())
	require.NotNil(t, receipt)
	require.Len(t, chain.withdrawn, 1)
	assert.Equal(t, 0, chain.withdrawn[0].Cmp(eth(3)))
}

func TestBuyServiceCoveredPath(t *testing.T) {
	alice := domain.NewIdentity("0xA11CE00000000000000000000000000000000000")
	chain := &fakeChain{
		snapshot:  &domain.AuctionSnapshot{AuctionID: 4},
		listed:    map[uint64]bool{7: true},
		prices:    map[uint64]*big.Int{7: eth(2)},
		escrow:    map[domain.Identity]*big.Int{alice: eth(2)},
		canSubmit: true,
	}
	auctions, wallets := newFixture(chain)
	defer auctions.Stop()
	defer wallets.Close()

	svc := NewBuyService(chain, wallets, chain)
	result, receipt, err := svc.Submit(context.Background(), 7, alice)
	require.NoError(t, err)
	require.True(t, result.Valid())
	require.NotNil(t, receipt)

	// 代管余额恰好等于价格：非严格比较，走covered路径
	require.Len(t, chain.buyPlans, 1)
	assert.Equal(t, bidding.PlanCovered, chain.buyPlans[0].Kind)
	assert.Equal(t, 0, chain.buyPlans[0].Amount.Cmp(eth(2)))
}

func TestBuyServiceDelistedToken(t *testing.T) {
	alice := domain.NewIdentity("0xA11CE00000000000000000000000000000000000")
	chain := &fakeChain{
		snapshot:  &domain.AuctionSnapshot{AuctionID: 4},
		listed:    map[uint64]bool{},
		canSubmit: true,
	}
	auctions, wallets := newFixture(chain)
	defer auctions.Stop()
	defer wallets.Close()

	svc := NewBuyService(chain, wallets, chain)
	result, receipt, err := svc.Submit(context.Background(), 7, alice)
	require.NoError(t, err)
	assert.Equal(t, MsgNFTNotAvailable, result.ErrorMessage)
	assert.Nil(t, receipt)
	assert.Empty(t, chain.buyPlans)
}

func TestAdminServiceRequiresKey(t *testing.T) {
	chain := &fakeChain{snapshot: &domain.AuctionSnapshot{AuctionID: 4}}
	auctions, wallets := newFixture(chain)
	defer auctions.Stop()
	defer wallets.Close()

	svc := NewAdminService(chain, auctions)
	_, err := svc.StartAuction(context.Background())
	assert.Error(t, err)
}

func TestWalletServiceGallery(t *testing.T) {
	alice := domain.NewIdentity("0xA11CE00000000000000000000000000000000000")
	chain := &fakeChain{
		snapshot: &domain.AuctionSnapshot{AuctionID: 4},
		owned:    map[domain.Identity][]uint64{alice: {1, 2}},
	}
	auctions, wallets := newFixture(chain)
	defer auctions.Stop()
	defer wallets.Close()

	gallery, err := wallets.OwnedNFTs(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, gallery, 2)
	assert.Equal(t, "Scooter", gallery[0].Metadata.DisplayName())
}

func TestWalletServiceGalleryFallsBackToTransfers(t *testing.T) {
	alice := domain.NewIdentity("0xA11CE00000000000000000000000000000000000")
	chain := &fakeChain{
		snapshot: &domain.AuctionSnapshot{AuctionID: 4},
		ownedErr: errors.New("rpc unavailable"),
	}
	indexer := &fakeIndexer{
		incoming: []subgraph.Transfer{{TokenID: 5}, {TokenID: 3}, {TokenID: 9}},
		outgoing: []subgraph.Transfer{{TokenID: 9}},
	}
	wallets := NewWalletService(chain, chain, indexer, fakeMetadata{}, time.Minute)
	defer wallets.Close()

	// 链上读取失败：转入减转出重建持仓，已转出的 9 不在画廊里
	gallery, err := wallets.OwnedNFTs(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, gallery, 2)
	assert.Equal(t, uint64(3), gallery[0].TokenID)
	assert.Equal(t, uint64(5), gallery[1].TokenID)
}
