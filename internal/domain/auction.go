package domain

import (
	"math/big"
	"time"
)

// AuctionSnapshot 某一时刻的拍卖只读状态
// 由轮询整体替换，读取后不再修改（永远不做原地 patch）
type AuctionSnapshot struct {
	AuctionID           uint64
	NFTID               uint64
	OpeningTimestamp    int64
	ClosingTimestamp    int64
	StartingPrice       *big.Int // wei
	MinimumBidIncrement *big.Int // wei
	CurrentHighestBid   *big.Int // wei
	CurrentWinner       Identity // 零地址表示尚无出价
	IsOpen              bool
}

// MinimumBid 当前可接受的最低出价：currentHighestBid + minimumBidIncrement
// 整数加法，不做任何舍入
func (s *AuctionSnapshot) MinimumBid() *big.Int {
	min := new(big.Int)
	if s.CurrentHighestBid != nil {
		min.Set(s.CurrentHighestBid)
	}
	if s.MinimumBidIncrement != nil {
		min.Add(min, s.MinimumBidIncrement)
	}
	return min
}

// HasWinner 当前是否已有最高出价者
func (s *AuctionSnapshot) HasWinner() bool {
	return !s.CurrentWinner.IsZero()
}

// RemainingTime 距离计划关闭时间的剩余时长，已过期返回 0
func (s *AuctionSnapshot) RemainingTime(now time.Time) time.Duration {
	closing := time.Unix(s.ClosingTimestamp, 0)
	if !now.Before(closing) {
		return 0
	}
	return closing.Sub(now)
}

// Bid 一条历史出价记录（来自索引服务）
type Bid struct {
	Bidder         Identity
	AuctionID      uint64
	Amount         *big.Int // wei
	BlockTimestamp int64
	TxHash         string
}
