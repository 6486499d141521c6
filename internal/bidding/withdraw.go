package bidding

import (
	"math/big"

	"github.com/mooveapp/auctiond/internal/domain"
)

const (
	MsgConnectWalletToWithdraw = "Connect wallet to withdraw funds"
	MsgAmountMustBePositive    = "Amount must be greater than 0"
	MsgNoFundsToWithdraw       = "No funds to withdraw"
)

// WithdrawResult 提取校验结果
type WithdrawResult struct {
	Neutral      bool
	ErrorMessage string
	Amount       *big.Int // 校验通过时的解析金额（wei）
}

// Valid 是否允许提交
func (r WithdrawResult) Valid() bool {
	return !r.Neutral && r.ErrorMessage == ""
}

// ValidateWithdraw 按固定优先级校验提取金额
// withdrawable 为合约代管的可提取余额；零余额错误优先于超额错误
func ValidateWithdraw(raw string, connected bool, withdrawable *big.Int) WithdrawResult {
	if raw == "" {
		return WithdrawResult{Neutral: true}
	}
	if !connected {
		return WithdrawResult{ErrorMessage: MsgConnectWalletToWithdraw}
	}
	amount, err := ParseAmount(raw)
	if err != nil {
		return WithdrawResult{ErrorMessage: MsgInvalidNumber}
	}
	if amount.Sign() == 0 {
		return WithdrawResult{ErrorMessage: MsgAmountMustBePositive}
	}
	if withdrawable == nil || withdrawable.Sign() == 0 {
		return WithdrawResult{ErrorMessage: MsgNoFundsToWithdraw}
	}
	if amount.Cmp(withdrawable) > 0 {
		return WithdrawResult{
			ErrorMessage: "Amount cannot exceed " + domain.FormatWeiWithSymbol(withdrawable),
		}
	}
	return WithdrawResult{Amount: amount}
}

// MaxWithdrawText "MAX" 快捷键填入的文本：可提取余额的完整精度格式化
// 该值必须永远能通过 ValidateWithdraw（格式化不允许引入 off-by-one）
func MaxWithdrawText(withdrawable *big.Int) string {
	return domain.FormatWei(withdrawable)
}
