package domain

import "strings"

// ZeroAddress 合约侧表示"无人"的地址（例如尚无出价时的 winner）
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Identity 外部定义的不透明地址字符串
// 相等性判断不区分大小写，内部统一存小写
type Identity string

// NewIdentity 规范化地址字符串
func NewIdentity(addr string) Identity {
	return Identity(strings.ToLower(strings.TrimSpace(addr)))
}

// Equal 判断两个地址是否相同（大小写不敏感）
func (i Identity) Equal(other Identity) bool {
	return strings.EqualFold(string(i), string(other))
}

// IsZero 是否为空地址或零地址
func (i Identity) IsZero() bool {
	return i == "" || strings.EqualFold(string(i), ZeroAddress)
}

func (i Identity) String() string {
	return string(i)
}
