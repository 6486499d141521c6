package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mooveapp/auctiond/internal/bidding"
	"github.com/mooveapp/auctiond/internal/domain"
	"github.com/mooveapp/auctiond/pkg/logger"
)

// WithdrawService 提现流程编排
type WithdrawService struct {
	wallets   *WalletService
	submitter TxSubmitter
}

// NewWithdrawService 创建提现服务
func NewWithdrawService(wallets *WalletService, submitter TxSubmitter) *WithdrawService {
	return &WithdrawService{wallets: wallets, submitter: submitter}
}

// Validate 评估一笔提现输入
func (s *WithdrawService) Validate(ctx context.Context, raw string, identity domain.Identity) (bidding.WithdrawResult, error) {
	if identity.IsZero() {
		return bidding.ValidateWithdraw(raw, false, nil), nil
	}
	wallet, err := s.wallets.State(ctx, identity)
	if err != nil {
		return bidding.WithdrawResult{}, err
	}
	return bidding.ValidateWithdraw(raw, wallet.Connected, wallet.EscrowCredit), nil
}

// MaxWithdraw 全额提现的预填文案，结果保证能通过校验
func (s *WithdrawService) MaxWithdraw(ctx context.Context, identity domain.Identity) (string, error) {
	wallet, err := s.wallets.State(ctx, identity)
	if err != nil {
		return "", err
	}
	return bidding.MaxWithdrawText(wallet.EscrowCredit), nil
}

// Submit 校验通过后提交提现交易
func (s *WithdrawService) Submit(ctx context.Context, raw string, identity domain.Identity) (bidding.WithdrawResult, *Receipt, error) {
	result, err := s.Validate(ctx, raw, identity)
	if err != nil {
		return bidding.WithdrawResult{}, nil, err
	}
	if !result.Valid() {
		return result, nil, nil
	}
	if !s.submitter.CanSubmit() {
		return result, nil, fmt.Errorf("服务未配置提交能力")
	}

	txHash, err := s.submitter.SubmitWithdraw(ctx, result.Amount)
	if err != nil {
		return result, nil, fmt.Errorf("提现交易提交失败: %w", err)
	}

	receipt := &Receipt{RequestID: uuid.NewString(), TxHash: txHash.Hex()}
	logger.Infof("提现已提交: identity=%s amount=%s tx=%s",
		identity, domain.FormatWei(result.Amount), receipt.TxHash)
	return result, receipt, nil
}
