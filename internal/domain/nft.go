package domain

import "math/big"

// UnsoldNFT 流拍后按起拍价直售的 NFT
type UnsoldNFT struct {
	TokenID      uint64
	SellingPrice *big.Int // wei，等于当期起拍价
	ListedAt     int64    // 上架区块时间戳
}

// OwnedNFT 用户画廊中的一件 NFT
type OwnedNFT struct {
	TokenID  uint64
	TokenURI string
	Metadata *NFTMetadata // 解析失败时为 nil，展示层使用占位符
}

// NFTMetadata 内容寻址元数据文档（展示用，不参与校验核心）
type NFTMetadata struct {
	Name     string
	ImageURL string // 已改写为 HTTP 网关地址
	Vehicle  string // attributes 中 trait_type=Vehicle 的值
}

// DisplayName 展示名称：优先 Vehicle 属性，其次 name，都没有则占位
func (m *NFTMetadata) DisplayName() string {
	if m == nil {
		return "Unknown NFT"
	}
	if m.Vehicle != "" {
		return m.Vehicle
	}
	if m.Name != "" {
		return m.Name
	}
	return "Unknown NFT"
}
