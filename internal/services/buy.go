package services

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/mooveapp/auctiond/internal/bidding"
	"github.com/mooveapp/auctiond/internal/domain"
	"github.com/mooveapp/auctiond/pkg/logger"
)

// 直售流程的用户可见文案
const (
	MsgConnectWalletToBuy = "Connect wallet to buy this NFT"
	MsgNFTNotAvailable    = "This NFT is no longer available"
)

// BuyResult 直售购买校验结果
type BuyResult struct {
	ErrorMessage string
	InfoMessage  string
	Price        *big.Int // wei，链上直售价格
	Plan         *bidding.SubmissionPlan
}

// Valid 是否允许提交
func (r BuyResult) Valid() bool {
	return r.ErrorMessage == ""
}

// BuyService 流拍NFT直售流程编排
type BuyService struct {
	nfts      NFTReader
	wallets   *WalletService
	submitter TxSubmitter
}

// NewBuyService 创建直售服务
func NewBuyService(nfts NFTReader, wallets *WalletService, submitter TxSubmitter) *BuyService {
	return &BuyService{nfts: nfts, wallets: wallets, submitter: submitter}
}

// Validate 评估一次直售购买
//
// 与出价不同，直售价格是固定的，资金校验用非严格比较：
// 可用资金 >= 价格即可购买（代管余额足额时走 non-payable 路径）。
func (s *BuyService) Validate(ctx context.Context, tokenID uint64, identity domain.Identity) (BuyResult, error) {
	if identity.IsZero() {
		return BuyResult{ErrorMessage: MsgConnectWalletToBuy}, nil
	}

	listed, err := s.nfts.IsTokenListed(ctx, tokenID)
	if err != nil {
		return BuyResult{}, fmt.Errorf("查询直售状态失败: %w", err)
	}
	if !listed {
		return BuyResult{ErrorMessage: MsgNFTNotAvailable}, nil
	}

	price, err := s.nfts.UnsoldNFTPrice(ctx, tokenID)
	if err != nil {
		return BuyResult{}, fmt.Errorf("查询直售价格失败: %w", err)
	}

	wallet, err := s.wallets.State(ctx, identity)
	if err != nil {
		return BuyResult{}, err
	}
	if wallet.AvailableFunds().Cmp(price) < 0 {
		return BuyResult{ErrorMessage: bidding.MsgInsufficientFunds, Price: price}, nil
	}

	plan := bidding.PlanBuy(wallet.EscrowCredit, price)
	result := BuyResult{Price: price, Plan: &plan}
	if plan.Kind == bidding.PlanCovered {
		result.InfoMessage = "No additional funds needed, your balance covers the full price"
	}
	return result, nil
}

// Submit 校验通过后提交购买交易
func (s *BuyService) Submit(ctx context.Context, tokenID uint64, identity domain.Identity) (BuyResult, *Receipt, error) {
	result, err := s.Validate(ctx, tokenID, identity)
	if err != nil {
		return BuyResult{}, nil, err
	}
	if !result.Valid() {
		return result, nil, nil
	}
	if !s.submitter.CanSubmit() {
		return result, nil, fmt.Errorf("服务未配置提交能力")
	}

	txHash, err := s.submitter.SubmitBuy(ctx, tokenID, *result.Plan)
	if err != nil {
		return result, nil, fmt.Errorf("购买交易提交失败: %w", err)
	}

	receipt := &Receipt{RequestID: uuid.NewString(), TxHash: txHash.Hex()}
	logger.Infof("直售购买已提交: buyer=%s token=%d price=%s tx=%s",
		identity, tokenID, domain.FormatWei(result.Price), receipt.TxHash)

	// 成交后目录和画廊都会变化
	s.wallets.InvalidateUnsold()
	s.wallets.InvalidateOwned(identity)
	return result, receipt, nil
}

// AdminService 管理操作：开启/关闭拍卖
type AdminService struct {
	submitter TxSubmitter
	auctions  *AuctionService
}

// NewAdminService 创建管理服务
func NewAdminService(submitter TxSubmitter, auctions *AuctionService) *AdminService {
	return &AdminService{submitter: submitter, auctions: auctions}
}

// receiptWait 管理操作等待交易上链的最长时间
const receiptWait = 90 * time.Second

// StartAuction 开启新一轮拍卖
// 管理操作等交易上链后再刷新快照，避免读到旧状态
func (s *AdminService) StartAuction(ctx context.Context) (*Receipt, error) {
	if !s.submitter.CanSubmit() {
		return nil, fmt.Errorf("服务未配置提交能力")
	}
	txHash, err := s.submitter.StartAuction(ctx)
	if err != nil {
		return nil, fmt.Errorf("开启拍卖失败: %w", err)
	}
	receipt := &Receipt{RequestID: uuid.NewString(), TxHash: txHash.Hex()}
	logger.Infof("开启拍卖已提交: tx=%s", receipt.TxHash)
	s.confirmAndRefresh(ctx, txHash)
	return receipt, nil
}

// CloseAuction 关闭当前拍卖
func (s *AdminService) CloseAuction(ctx context.Context) (*Receipt, error) {
	if !s.submitter.CanSubmit() {
		return nil, fmt.Errorf("服务未配置提交能力")
	}
	txHash, err := s.submitter.CloseAuction(ctx)
	if err != nil {
		return nil, fmt.Errorf("关闭拍卖失败: %w", err)
	}
	receipt := &Receipt{RequestID: uuid.NewString(), TxHash: txHash.Hex()}
	logger.Infof("关闭拍卖已提交: tx=%s", receipt.TxHash)
	s.confirmAndRefresh(ctx, txHash)
	return receipt, nil
}

func (s *AdminService) confirmAndRefresh(ctx context.Context, txHash common.Hash) {
	waitCtx, cancel := context.WithTimeout(ctx, receiptWait)
	defer cancel()
	if _, err := s.submitter.WaitForReceipt(waitCtx, txHash); err != nil {
		// 超时不算失败：快照轮询最终会追上
		logger.Warnf("等待交易回执未完成: tx=%s err=%v", txHash.Hex(), err)
	}
	s.auctions.Refresh(ctx)
}
