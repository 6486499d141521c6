package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mooveapp/auctiond/internal/bidding"
	"github.com/mooveapp/auctiond/internal/domain"
	"github.com/mooveapp/auctiond/pkg/logger"
)

// BidService 出价流程编排：校验 + 按提交路径提交
type BidService struct {
	auctions  *AuctionService
	wallets   *WalletService
	submitter TxSubmitter
}

// NewBidService 创建出价服务
func NewBidService(auctions *AuctionService, wallets *WalletService, submitter TxSubmitter) *BidService {
	return &BidService{auctions: auctions, wallets: wallets, submitter: submitter}
}

// Validate 按当前快照和钱包状态评估一笔出价输入
func (s *BidService) Validate(ctx context.Context, raw string, identity domain.Identity) (bidding.BidResult, error) {
	snap, info := s.auctions.Current()
	if !info.Ok {
		return bidding.BidResult{}, fmt.Errorf("拍卖快照尚未就绪")
	}

	wallet := &domain.WalletState{Connected: false}
	if !identity.IsZero() {
		var err error
		wallet, err = s.wallets.State(ctx, identity)
		if err != nil {
			return bidding.BidResult{}, err
		}
	}
	return bidding.ValidateBid(raw, snap, wallet), nil
}

// Submit 校验通过后提交出价交易
// 校验失败不是错误：result 携带用户可见文案，receipt 为空
func (s *BidService) Submit(ctx context.Context, raw string, identity domain.Identity) (bidding.BidResult, *Receipt, error) {
	result, err := s.Validate(ctx, raw, identity)
	if err != nil {
		return bidding.BidResult{}, nil, err
	}
	if !result.Valid() {
		return result, nil, nil
	}
	if !s.submitter.CanSubmit() {
		return result, nil, fmt.Errorf("服务未配置提交能力")
	}

	txHash, err := s.submitter.SubmitBid(ctx, *result.Plan)
	if err != nil {
		// 不重试：交易失败作为可关闭的提示返回给前端
		return result, nil, fmt.Errorf("出价交易提交失败: %w", err)
	}

	receipt := &Receipt{RequestID: uuid.NewString(), TxHash: txHash.Hex()}
	logger.Infof("出价已提交: bidder=%s amount=%s kind=%s tx=%s",
		identity, domain.FormatWei(result.Amount), result.Plan.Kind, receipt.TxHash)

	// 提交后主动同步读模型
	snap, _ := s.auctions.Current()
	if snap != nil {
		s.auctions.InvalidateBids(snap.AuctionID)
	}
	s.auctions.Refresh(ctx)
	return result, receipt, nil
}
