package services

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/mooveapp/auctiond/internal/bidding"
	"github.com/mooveapp/auctiond/internal/domain"
	"github.com/mooveapp/auctiond/internal/subgraph"
)

// AuctionReader 链上拍卖状态读取
type AuctionReader interface {
	CurrentAuction(ctx context.Context) (*domain.AuctionSnapshot, error)
	Bidders(ctx context.Context) ([]domain.Identity, error)
}

// WalletReader 链上钱包状态读取
type WalletReader interface {
	LiquidBalance(ctx context.Context, identity domain.Identity) (*big.Int, error)
	EscrowCredit(ctx context.Context, identity domain.Identity) (*big.Int, error)
}

// NFTReader 链上NFT读取
type NFTReader interface {
	OwnedNFTs(ctx context.Context, identity domain.Identity) ([]uint64, error)
	TokenURI(ctx context.Context, tokenID uint64) (string, error)
	UnsoldNFTPrice(ctx context.Context, tokenID uint64) (*big.Int, error)
	IsTokenListed(ctx context.Context, tokenID uint64) (bool, error)
}

// TxSubmitter 链上交易提交
type TxSubmitter interface {
	CanSubmit() bool
	SubmitBid(ctx context.Context, plan bidding.SubmissionPlan) (common.Hash, error)
	SubmitWithdraw(ctx context.Context, amount *big.Int) (common.Hash, error)
	SubmitBuy(ctx context.Context, tokenID uint64, plan bidding.SubmissionPlan) (common.Hash, error)
	StartAuction(ctx context.Context) (common.Hash, error)
	CloseAuction(ctx context.Context) (common.Hash, error)
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// Indexer 索引服务读取
type Indexer interface {
	Bids(ctx context.Context, auctionID uint64) ([]domain.Bid, error)
	UnsoldNFTs(ctx context.Context) ([]domain.UnsoldNFT, error)
	Transfers(ctx context.Context, identity domain.Identity) (incoming, outgoing []subgraph.Transfer, err error)
}

// MetadataResolver NFT元数据解析
type MetadataResolver interface {
	Resolve(ctx context.Context, tokenURI string) domain.NFTMetadata
}

// Receipt 一次交易提交的回执
// RequestID 是服务端生成的请求标识，TxHash 是链上交易哈希
type Receipt struct {
	RequestID string `json:"requestId"`
	TxHash    string `json:"txHash"`
}
