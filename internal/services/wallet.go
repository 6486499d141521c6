package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mooveapp/auctiond/internal/domain"
	"github.com/mooveapp/auctiond/pkg/logger"
)

// WalletService 钱包与画廊读模型
type WalletService struct {
	wallets  WalletReader
	nfts     NFTReader
	indexer  Indexer
	metadata MetadataResolver
	owned    *Lookup[[]domain.OwnedNFT]
	unsold   *Lookup[[]domain.UnsoldNFT]
}

// NewWalletService 创建钱包服务
func NewWalletService(wallets WalletReader, nfts NFTReader, indexer Indexer, metadata MetadataResolver, cacheTTL time.Duration) *WalletService {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &WalletService{
		wallets:  wallets,
		nfts:     nfts,
		indexer:  indexer,
		metadata: metadata,
		owned:    NewLookup[[]domain.OwnedNFT](cacheTTL),
		unsold:   NewLookup[[]domain.UnsoldNFT](cacheTTL),
	}
}

// Close 释放缓存后台资源
func (s *WalletService) Close() {
	s.owned.Close()
	s.unsold.Close()
}

// State 地址的钱包状态：链上余额 + 合约内代管余额
func (s *WalletService) State(ctx context.Context, identity domain.Identity) (*domain.WalletState, error) {
	if identity.IsZero() {
		return &domain.WalletState{Connected: false}, nil
	}

	liquid, err := s.wallets.LiquidBalance(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("读取链上余额失败: %w", err)
	}
	escrow, err := s.wallets.EscrowCredit(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("读取代管余额失败: %w", err)
	}
	return &domain.WalletState{
		Connected:     true,
		Identity:      identity,
		LiquidBalance: liquid,
		EscrowCredit:  escrow,
	}, nil
}

// OwnedNFTs 地址持有的NFT画廊（带元数据），相同地址并发查询合并
// 链上读取失败时退回到索引服务的转移事件重建持仓
func (s *WalletService) OwnedNFTs(ctx context.Context, identity domain.Identity) ([]domain.OwnedNFT, error) {
	key := "owned/" + string(identity)
	return s.owned.Get(ctx, key, func(ctx context.Context) ([]domain.OwnedNFT, error) {
		ids, err := s.nfts.OwnedNFTs(ctx, identity)
		if err != nil {
			logger.Warnf("链上读取持仓失败，改用转移事件重建: identity=%s err=%v", identity, err)
			ids, err = s.ownedFromTransfers(ctx, identity)
			if err != nil {
				return nil, fmt.Errorf("读取持有NFT列表失败: %w", err)
			}
		}

		gallery := make([]domain.OwnedNFT, 0, len(ids))
		for _, id := range ids {
			item := domain.OwnedNFT{TokenID: id}
			uri, err := s.nfts.TokenURI(ctx, id)
			if err == nil {
				item.TokenURI = uri
				meta := s.metadata.Resolve(ctx, uri)
				item.Metadata = &meta
			}
			gallery = append(gallery, item)
		}
		return gallery, nil
	})
}

// ownedFromTransfers 按转入减转出重建某地址的持仓 token 集合
// 转出事件按 tokenID 抵销一次对应的转入，剩余即当前持仓
func (s *WalletService) ownedFromTransfers(ctx context.Context, identity domain.Identity) ([]uint64, error) {
	incoming, outgoing, err := s.indexer.Transfers(ctx, identity)
	if err != nil {
		return nil, err
	}

	held := make(map[uint64]int)
	for _, t := range incoming {
		held[t.TokenID]++
	}
	for _, t := range outgoing {
		held[t.TokenID]--
	}

	ids := make([]uint64, 0, len(held))
	for id, n := range held {
		if n > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// UnsoldNFTs 当前可直售的流拍NFT目录（带元数据）
func (s *WalletService) UnsoldNFTs(ctx context.Context) ([]domain.UnsoldNFT, error) {
	return s.unsold.Get(ctx, "unsold", func(ctx context.Context) ([]domain.UnsoldNFT, error) {
		return s.indexer.UnsoldNFTs(ctx)
	})
}

// InvalidateUnsold 购买成交后使目录缓存失效
func (s *WalletService) InvalidateUnsold() {
	s.unsold.Invalidate("unsold")
}

// InvalidateOwned 持仓变动后使画廊缓存失效
func (s *WalletService) InvalidateOwned(identity domain.Identity) {
	s.owned.Invalidate("owned/" + string(identity))
}
