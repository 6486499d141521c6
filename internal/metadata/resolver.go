package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mooveapp/auctiond/internal/domain"
	"github.com/mooveapp/auctiond/pkg/cache"
	"github.com/mooveapp/auctiond/pkg/logger"
	"github.com/mooveapp/auctiond/pkg/ratelimit"
)

// Resolver NFT元数据解析器
// 把 tokenURI（通常是 ipfs:// 链接）解析成展示用的元数据
// 解析失败永远不向调用方报错，降级为占位内容
type Resolver struct {
	http        *resty.Client
	gatewayHost string
	placeholder string
	cache       *cache.TTLCache[string, domain.NFTMetadata]
	limiter     *ratelimit.TokenBucket
}

// Options 解析器配置
type Options struct {
	GatewayHost      string // IPFS 子域网关主机，如 ipfs.w3s.link
	PlaceholderImage string
	CacheTTL         time.Duration
}

// NewResolver 创建元数据解析器
func NewResolver(opts Options) *Resolver {
	if opts.GatewayHost == "" {
		opts.GatewayHost = "ipfs.w3s.link"
	}
	if opts.PlaceholderImage == "" {
		opts.PlaceholderImage = "/nft-placeholder.jpg"
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}

	return &Resolver{
		http: resty.New().
			SetTimeout(10 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond),
		gatewayHost: opts.GatewayHost,
		placeholder: opts.PlaceholderImage,
		cache:       cache.New[string, domain.NFTMetadata](opts.CacheTTL),
		// 网关限流：每秒最多5个未命中缓存的请求
		limiter: ratelimit.NewTokenBucket(5, 5),
	}
}

// Close 释放缓存后台资源
func (r *Resolver) Close() {
	r.cache.Close()
}

// GatewayURL 把 ipfs:// URI 转换成子域网关 HTTP 地址
// ipfs://{cid}/{path} -> https://{cid}.{gateway}/{path}
// 已经是 http(s) 的 URI 原样返回
func (r *Resolver) GatewayURL(uri string) string {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return uri
	}
	rest, ok := strings.CutPrefix(uri, "ipfs://")
	if !ok {
		return uri
	}
	cid, path, _ := strings.Cut(rest, "/")
	if path != "" {
		return fmt.Sprintf("https://%s.%s/%s", cid, r.gatewayHost, path)
	}
	return fmt.Sprintf("https://%s.%s/", cid, r.gatewayHost)
}

// rawMetadata IPFS 上的元数据JSON结构
type rawMetadata struct {
	Name       string `json:"name"`
	Image      string `json:"image"`
	Attributes []struct {
		TraitType string `json:"trait_type"`
		Value     any    `json:"value"`
	} `json:"attributes"`
}

// Placeholder 占位元数据
func (r *Resolver) Placeholder() domain.NFTMetadata {
	return domain.NFTMetadata{ImageURL: r.placeholder}
}

// Resolve 解析tokenURI对应的元数据
// 任何环节失败都返回占位元数据，err 永远为 nil 级别的降级
func (r *Resolver) Resolve(ctx context.Context, tokenURI string) domain.NFTMetadata {
	if strings.TrimSpace(tokenURI) == "" {
		return r.Placeholder()
	}
	if cached, ok := r.cache.Get(tokenURI); ok {
		return cached
	}

	if !r.limiter.Allow() {
		// 被限流时不阻塞调用方，直接降级
		logger.Debugf("元数据请求被限流，降级为占位内容: %s", tokenURI)
		return r.Placeholder()
	}

	meta, err := r.fetch(ctx, tokenURI)
	if err != nil {
		logger.Warnf("解析元数据失败，降级为占位内容: uri=%s err=%v", tokenURI, err)
		return r.Placeholder()
	}

	r.cache.Set(tokenURI, meta, 0)
	return meta
}

func (r *Resolver) fetch(ctx context.Context, tokenURI string) (domain.NFTMetadata, error) {
	resp, err := r.http.R().SetContext(ctx).Get(r.GatewayURL(tokenURI))
	if err != nil {
		return domain.NFTMetadata{}, err
	}
	if resp.StatusCode() != 200 {
		return domain.NFTMetadata{}, fmt.Errorf("网关返回异常状态码: %d", resp.StatusCode())
	}

	var raw rawMetadata
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return domain.NFTMetadata{}, fmt.Errorf("元数据JSON解析失败: %w", err)
	}

	meta := domain.NFTMetadata{
		Name:     raw.Name,
		ImageURL: r.GatewayURL(raw.Image),
	}
	for _, attr := range raw.Attributes {
		if strings.EqualFold(attr.TraitType, "Vehicle") {
			if s, ok := attr.Value.(string); ok {
				meta.Vehicle = s
			}
		}
	}
	if meta.ImageURL == "" {
		meta.ImageURL = r.placeholder
	}
	return meta, nil
}
