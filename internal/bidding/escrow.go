package bidding

import (
	"math/big"

	"github.com/mooveapp/auctiond/internal/domain"
)

// PlanKind 提交路径的标签
type PlanKind string

const (
	// PlanDirect 需要随交易附带转账金额（payable 调用）
	PlanDirect PlanKind = "direct"
	// PlanCovered 代管余额已完全覆盖，金额作为参数传入（non-payable 调用）
	PlanCovered PlanKind = "covered"
)

// SubmissionPlan 代管余额抵扣计算的结果
// 提交层必须对 Kind 做穷举匹配来选择 payable / non-payable 调用路径
type SubmissionPlan struct {
	Kind PlanKind
	// Value 随交易附带的转账金额（仅 PlanDirect 有意义）
	Value *big.Int
	// Amount 目标出价/购买金额，non-payable 路径下作为 data 参数传入
	Amount *big.Int
}

// EscrowDelta 计算达到目标金额还需转入多少新资金
// delta = target - escrowCredit，带符号减法，可能为负或零
func EscrowDelta(escrowCredit, target *big.Int) *big.Int {
	delta := new(big.Int)
	if target != nil {
		delta.Set(target)
	}
	if escrowCredit != nil {
		delta.Sub(delta, escrowCredit)
	}
	return delta
}

// PlanBid 出价流程的提交路径决策
//
//   - escrowCredit > 0 且 delta <= 0：代管余额足够，non-payable 提交，不附带转账
//   - escrowCredit > 0 且 delta > 0：只需附带 delta
//   - escrowCredit == 0：附带完整出价金额
func PlanBid(escrowCredit, targetBid *big.Int) SubmissionPlan {
	delta := EscrowDelta(escrowCredit, targetBid)
	if escrowCredit != nil && escrowCredit.Sign() > 0 && delta.Sign() <= 0 {
		return SubmissionPlan{Kind: PlanCovered, Amount: new(big.Int).Set(targetBid)}
	}
	return SubmissionPlan{Kind: PlanDirect, Value: delta, Amount: new(big.Int).Set(targetBid)}
}

// PlanBuy 直售（流拍 NFT 购买）流程的提交路径决策
//
// 与出价流程不同，这里"余额足够"的判定是非严格比较 escrowCredit >= sellingPrice，
// 历史上两个流程的比较方式就不一致，刻意保留差异，不做统一。
func PlanBuy(escrowCredit, sellingPrice *big.Int) SubmissionPlan {
	credit := new(big.Int)
	if escrowCredit != nil {
		credit.Set(escrowCredit)
	}
	if credit.Cmp(sellingPrice) >= 0 {
		return SubmissionPlan{Kind: PlanCovered, Amount: new(big.Int).Set(sellingPrice)}
	}
	return SubmissionPlan{
		Kind:   PlanDirect,
		Value:  EscrowDelta(credit, sellingPrice),
		Amount: new(big.Int).Set(sellingPrice),
	}
}

// EscrowInfoMessage 出价流程的补充提示文案（仅当存在代管余额时返回非空）
func EscrowInfoMessage(escrowCredit, targetBid *big.Int) string {
	if escrowCredit == nil || escrowCredit.Sign() <= 0 {
		return ""
	}
	delta := EscrowDelta(escrowCredit, targetBid)
	if delta.Sign() > 0 {
		return "You only need to send " + domain.FormatWeiWithSymbol(delta)
	}
	return "No additional funds needed, your balance covers the full bid amount"
}
