package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol 原生币展示符号
const CurrencySymbol = "ETH"

// CurrencyDecimals 原生币小数位数（wei 精度）
const CurrencyDecimals = 18

// WeiPerEth 1 ETH 对应的 wei 数量（10^18）
var WeiPerEth = new(big.Int).Exp(big.NewInt(10), big.NewInt(CurrencyDecimals), nil)

// FormatWei 将 wei 金额格式化为完整精度的十进制字符串（不丢失任何小数位）
// 例如：1500000000000000000 -> "1.5"，500000000000000000 -> "0.5"，0 -> "0"
// 输出满足回环不变量：ParseAmount(FormatWei(x)) == x
func FormatWei(amount *big.Int) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}
	q := new(big.Int)
	r := new(big.Int)
	q.QuoRem(amount, WeiPerEth, r)

	if r.Sign() == 0 {
		return q.String()
	}
	frac := fmt.Sprintf("%018s", r.String())
	frac = strings.TrimRight(frac, "0")
	return q.String() + "." + frac
}

// FormatWeiWithSymbol 格式化金额并附带币种符号，用于用户可见的提示文案
func FormatWeiWithSymbol(amount *big.Int) string {
	return FormatWei(amount) + " " + CurrencySymbol
}

// WeiToDecimal 将 wei 转换为 decimal 表示的 ETH 数量（仅用于展示/法币换算，校验路径不使用）
func WeiToDecimal(amount *big.Int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -CurrencyDecimals)
}

// FiatValue 按法币单价计算金额的法币价值（展示用）
func FiatValue(amount *big.Int, unitPrice decimal.Decimal) decimal.Decimal {
	return WeiToDecimal(amount).Mul(unitPrice).Round(2)
}
