package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ChainConfig 链访问配置
type ChainConfig struct {
	RPCURL          string `yaml:"rpc_url"`
	ChainID         int64  `yaml:"chain_id"`
	AuctionContract string `yaml:"auction_contract"`
	NFTContract     string `yaml:"nft_contract"`
}

// SubgraphConfig 索引服务（subgraph）端点配置
type SubgraphConfig struct {
	AuctionURL string `yaml:"auction_url"`
	NFTURL     string `yaml:"nft_url"`
}

// MetadataConfig 元数据解析配置
type MetadataConfig struct {
	GatewayHost      string `yaml:"gateway_host"`      // IPFS 子域网关，默认 ipfs.w3s.link
	PlaceholderImage string `yaml:"placeholder_image"` // 解析失败时的占位图
	CacheTTLSeconds  int    `yaml:"cache_ttl_seconds"`
}

// PriceFeedConfig 法币价格源配置
type PriceFeedConfig struct {
	URL              string `yaml:"url"`             // 返回 {"ethereum":{"usd":N}} 形式的端点
	RefreshSeconds   int    `yaml:"refresh_seconds"` // 刷新间隔，默认 60s
	DisablePriceFeed bool   `yaml:"disable"`         // 测试/离线环境可关闭
}

// WalletConfig 运营方钱包配置
// 私钥优先级：环境变量 > secretstore > 空（只读模式，不能提交交易）
type WalletConfig struct {
	PrivateKey        string `yaml:"private_key"`
	SecretStorePath   string `yaml:"secretstore_path"`
	SecretStoreKeyHex string `yaml:"secretstore_key_hex"` // badger 加密密钥（hex，32 字节）
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`
	OutputFile string `yaml:"output_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Config 应用配置
type Config struct {
	Chain       ChainConfig     `yaml:"chain"`
	Subgraph    SubgraphConfig  `yaml:"subgraph"`
	Metadata    MetadataConfig  `yaml:"metadata"`
	PriceFeed   PriceFeedConfig `yaml:"price_feed"`
	Wallet      WalletConfig    `yaml:"wallet"`
	Server      ServerConfig    `yaml:"server"`
	Log         LogConfig       `yaml:"log"`
	PollSeconds int             `yaml:"poll_seconds"` // 读模型轮询间隔，默认 5s
}

// PollInterval 轮询间隔
func (c *Config) PollInterval() time.Duration {
	if c.PollSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.PollSeconds) * time.Second
}

// PriceRefreshInterval 法币价格刷新间隔
func (c *Config) PriceRefreshInterval() time.Duration {
	if c.PriceFeed.RefreshSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.PriceFeed.RefreshSeconds) * time.Second
}

// MetadataCacheTTL 元数据缓存时长
func (c *Config) MetadataCacheTTL() time.Duration {
	if c.Metadata.CacheTTLSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Metadata.CacheTTLSeconds) * time.Second
}

// Default 返回带默认值的配置
func Default() *Config {
	return &Config{
		Chain: ChainConfig{
			RPCURL:  "http://127.0.0.1:8545",
			ChainID: 11155111, // Sepolia
		},
		Metadata: MetadataConfig{
			GatewayHost:      "ipfs.w3s.link",
			PlaceholderImage: "/nft-placeholder.jpg",
		},
		PriceFeed: PriceFeedConfig{
			URL: "https://api.coingecko.com/api/v3/simple/price?ids=ethereum&vs_currencies=usd",
		},
		Server:      ServerConfig{Listen: ":8080"},
		Log:         LogConfig{Level: "info", OutputFile: "logs/auctiond.log", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 7, Compress: true},
		PollSeconds: 5,
	}
}

// LoadFromFile 从 YAML 文件加载配置并套用环境变量覆盖
// path 为空时只使用默认值 + 环境变量
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides 环境变量覆盖（AUCTIOND_ 前缀）
func (c *Config) applyEnvOverrides() {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setStr(&c.Chain.RPCURL, "AUCTIOND_RPC_URL")
	setStr(&c.Chain.AuctionContract, "AUCTIOND_AUCTION_CONTRACT")
	setStr(&c.Chain.NFTContract, "AUCTIOND_NFT_CONTRACT")
	setStr(&c.Subgraph.AuctionURL, "AUCTIOND_SUBGRAPH_AUCTION_URL")
	setStr(&c.Subgraph.NFTURL, "AUCTIOND_SUBGRAPH_NFT_URL")
	setStr(&c.Wallet.PrivateKey, "AUCTIOND_PRIVATE_KEY")
	setStr(&c.Wallet.SecretStorePath, "AUCTIOND_SECRETSTORE_PATH")
	setStr(&c.Wallet.SecretStoreKeyHex, "AUCTIOND_SECRETSTORE_KEY")
	setStr(&c.Server.Listen, "AUCTIOND_LISTEN")
	setStr(&c.Log.Level, "AUCTIOND_LOG_LEVEL")

	if v := os.Getenv("AUCTIOND_CHAIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Chain.ChainID = id
		}
	}
	if v := os.Getenv("AUCTIOND_POLL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PollSeconds = n
		}
	}
}

// Validate 基本校验：缺少合约地址时直接拒绝启动
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Chain.RPCURL) == "" {
		return fmt.Errorf("chain.rpc_url 不能为空")
	}
	if strings.TrimSpace(c.Chain.AuctionContract) == "" {
		return fmt.Errorf("chain.auction_contract 不能为空")
	}
	if strings.TrimSpace(c.Chain.NFTContract) == "" {
		return fmt.Errorf("chain.nft_contract 不能为空")
	}
	return nil
}
