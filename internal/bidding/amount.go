package bidding

import (
	"errors"
	"math/big"
	"strings"

	"github.com/mooveapp/auctiond/internal/domain"
)

// ErrNotANumber 输入不符合十进制金额文法
var ErrNotANumber = errors.New("amount is not a number")

// ErrTooManyDecimals 小数位超过币种精度（18 位），按规则拒绝而不是静默截断
var ErrTooManyDecimals = errors.New("amount has too many decimal places")

// normalizeAmountText 金额文本规范化：以小数点开头时前面补 "0"
// 与输入框的行为保持一致（".5" 等价于 "0.5"）
func normalizeAmountText(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	return s
}

// ParseAmount 将自由文本解析为 wei 金额
//
// 文法：非负十进制数，可带小数部分；小数位最多 18 位，超出直接拒绝。
// 解析结果永远非负（文法不接受符号）。
// 满足回环不变量：ParseAmount(domain.FormatWei(x)) == x。
func ParseAmount(raw string) (*big.Int, error) {
	s := normalizeAmountText(raw)
	if s == "" {
		return nil, ErrNotANumber
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		fracPart = s[i+1:]
		// 不允许第二个小数点
		if strings.IndexByte(fracPart, '.') >= 0 {
			return nil, ErrNotANumber
		}
	}
	if intPart == "" || !isDigits(intPart) {
		return nil, ErrNotANumber
	}
	if fracPart != "" && !isDigits(fracPart) {
		return nil, ErrNotANumber
	}
	if len(fracPart) > domain.CurrencyDecimals {
		return nil, ErrTooManyDecimals
	}

	// 整数部分先放大 10^18，再加上按位补齐的小数部分
	amount, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, ErrNotANumber
	}
	amount.Mul(amount, domain.WeiPerEth)

	if fracPart != "" {
		padded := fracPart + strings.Repeat("0", domain.CurrencyDecimals-len(fracPart))
		frac, ok := new(big.Int).SetString(padded, 10)
		if !ok {
			return nil, ErrNotANumber
		}
		amount.Add(amount, frac)
	}
	return amount, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// AllowedAmountKey 输入控件按键过滤：数字、单个小数点和编辑/导航键
// current 为当前已输入内容，用于拒绝第二个小数点
func AllowedAmountKey(key string, current string) bool {
	switch key {
	case "Backspace", "Delete", "ArrowLeft", "ArrowRight":
		return true
	case ".":
		return !strings.Contains(current, ".")
	}
	return len(key) == 1 && key[0] >= '0' && key[0] <= '9'
}
