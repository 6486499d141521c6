package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mooveapp/auctiond/internal/domain"
)

// AuctionService 拍卖读模型的聚合入口
// 当前拍卖快照由轮询器维护，历史出价按拍卖ID做带缓存的按需查询
type AuctionService struct {
	reader       AuctionReader
	poller       *Poller[*domain.AuctionSnapshot]
	indexer      Indexer
	price        *PriceFeed
	bids         *Lookup[[]domain.Bid]
	participants *Lookup[[]domain.Identity]
}

// NewAuctionService 创建拍卖服务
func NewAuctionService(reader AuctionReader, indexer Indexer, price *PriceFeed, pollInterval time.Duration) *AuctionService {
	return &AuctionService{
		reader: reader,
		poller: NewPoller("当前拍卖", func(ctx context.Context) (*domain.AuctionSnapshot, error) {
			return reader.CurrentAuction(ctx)
		}, pollInterval),
		indexer:      indexer,
		price:        price,
		bids:         NewLookup[[]domain.Bid](pollInterval),
		participants: NewLookup[[]domain.Identity](pollInterval),
	}
}

// Start 启动后台轮询
func (s *AuctionService) Start(ctx context.Context) {
	s.poller.Start(ctx)
}

// Stop 停止后台轮询并释放资源
func (s *AuctionService) Stop() {
	s.poller.Stop()
	s.bids.Close()
	s.participants.Close()
}

// Current 当前拍卖快照及其新鲜度
func (s *AuctionService) Current() (*domain.AuctionSnapshot, SnapshotInfo) {
	return s.poller.Snapshot()
}

// Refresh 主动刷新快照（交易提交后的状态同步）
func (s *AuctionService) Refresh(ctx context.Context) {
	s.poller.Refresh(ctx)
}

// Bids 某场拍卖的历史出价，相同拍卖的并发查询合并为一次
func (s *AuctionService) Bids(ctx context.Context, auctionID uint64) ([]domain.Bid, error) {
	key := fmt.Sprintf("bids/%d", auctionID)
	return s.bids.Get(ctx, key, func(ctx context.Context) ([]domain.Bid, error) {
		return s.indexer.Bids(ctx, auctionID)
	})
}

// InvalidateBids 新出价落块后使历史缓存失效
func (s *AuctionService) InvalidateBids(auctionID uint64) {
	s.bids.Invalidate(fmt.Sprintf("bids/%d", auctionID))
	s.participants.Invalidate("bidders")
}

// HasBid 某地址是否已参与当前拍卖出价
func (s *AuctionService) HasBid(ctx context.Context, identity domain.Identity) (bool, error) {
	bidders, err := s.participants.Get(ctx, "bidders", func(ctx context.Context) ([]domain.Identity, error) {
		return s.reader.Bidders(ctx)
	})
	if err != nil {
		return false, err
	}
	for _, b := range bidders {
		if b.Equal(identity) {
			return true, nil
		}
	}
	return false, nil
}

// FiatPrice 原生币法币单价，未获取到时 ok 为 false
func (s *AuctionService) FiatPrice() (decimal.Decimal, bool) {
	if s.price == nil {
		return decimal.Zero, false
	}
	return s.price.Price()
}
