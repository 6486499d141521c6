package domain

import "math/big"

// WalletState 出价人钱包的只读状态
// EscrowCredit 是合约已代管、可直接抵扣新出价的金额（例如被超价后的退款）
type WalletState struct {
	Connected     bool
	Identity      Identity
	LiquidBalance *big.Int // wei，链上钱包余额
	EscrowCredit  *big.Int // wei，合约内可提取/可抵扣余额
}

// AvailableFunds 可用于出价的总额：liquidBalance + escrowCredit
func (w *WalletState) AvailableFunds() *big.Int {
	total := new(big.Int)
	if w.LiquidBalance != nil {
		total.Set(w.LiquidBalance)
	}
	if w.EscrowCredit != nil {
		total.Add(total, w.EscrowCredit)
	}
	return total
}
