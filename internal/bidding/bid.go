package bidding

import (
	"math/big"

	"github.com/mooveapp/auctiond/internal/domain"
)

// 出价校验的用户可见文案（全部是本地可恢复的提示，不是内部错误码）
const (
	MsgConnectWalletToBid  = "Connect wallet to place your bid"
	MsgAlreadyHighestBidder = "You are already the highest bidder"
	MsgInvalidNumber        = "Please enter a valid number"
	MsgInsufficientFunds    = "Insufficient funds"
)

// BidResult 出价校验结果
// Neutral 表示输入为空的待机状态：既不报错也不放行提交
type BidResult struct {
	Neutral      bool
	ErrorMessage string
	InfoMessage  string
	Amount       *big.Int // 校验通过时的解析金额（wei）
	Plan         *SubmissionPlan
}

// Valid 是否允许提交
func (r BidResult) Valid() bool {
	return !r.Neutral && r.ErrorMessage == ""
}

// ValidateBid 按固定优先级依次评估出价规则，第一条命中即返回
//
// 优先级刻意编码为：空输入 > 连接状态 > 身份 > 格式 > 经济规则。
// 注意两处边界的不对称：最低出价边界用严格 < 判拒（等于最低价可接受），
// 资金边界用非严格 >= 判拒（等于可用资金也拒绝，保守处理整数/小数近似误差）。
func ValidateBid(raw string, snap *domain.AuctionSnapshot, wallet *domain.WalletState) BidResult {
	if raw == "" {
		return BidResult{Neutral: true}
	}
	if wallet == nil || !wallet.Connected {
		return BidResult{ErrorMessage: MsgConnectWalletToBid}
	}
	if snap.HasWinner() && wallet.Identity.Equal(snap.CurrentWinner) {
		return BidResult{ErrorMessage: MsgAlreadyHighestBidder}
	}
	amount, err := ParseAmount(raw)
	if err != nil {
		return BidResult{ErrorMessage: MsgInvalidNumber}
	}

	minimumBid := snap.MinimumBid()
	if amount.Cmp(minimumBid) < 0 {
		return BidResult{
			ErrorMessage: "Bid must be at least " + domain.FormatWeiWithSymbol(minimumBid),
		}
	}
	// 保守校验：可能误报不足（向用户说明存在误差的可能），绝不漏报
	if amount.Cmp(wallet.AvailableFunds()) >= 0 {
		return BidResult{ErrorMessage: MsgInsufficientFunds}
	}

	plan := PlanBid(wallet.EscrowCredit, amount)
	return BidResult{
		Amount:      amount,
		Plan:        &plan,
		InfoMessage: EscrowInfoMessage(wallet.EscrowCredit, amount),
	}
}
