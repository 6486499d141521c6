package services

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/mooveapp/auctiond/pkg/logger"
)

// PriceFeed 原生币的法币价格源
//
// 价格只用于展示换算，校验路径从不依赖它。
// 价格值由定时刷新注入，消费方通过 Price() 显式读取，
// 没有进程级共享单例。
type PriceFeed struct {
	http     *resty.Client
	url      string
	interval time.Duration

	mu        sync.RWMutex
	price     decimal.Decimal
	hasPrice  bool
	fetchedAt time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewPriceFeed 创建价格源，url 需返回 {"ethereum":{"usd":N}} 形式的JSON
func NewPriceFeed(url string, interval time.Duration) *PriceFeed {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &PriceFeed{
		http: resty.New().
			SetTimeout(10 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(2 * time.Second),
		url:      url,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start 启动定时刷新
func (f *PriceFeed) Start(ctx context.Context) {
	go func() {
		f.refresh(ctx)
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-f.stop:
				return
			case <-ticker.C:
				f.refresh(ctx)
			}
		}
	}()
}

// Stop 停止定时刷新
func (f *PriceFeed) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
}

func (f *PriceFeed) refresh(ctx context.Context) {
	price, err := f.fetch(ctx)
	if err != nil {
		// 价格只影响展示，失败时沿用上一个值
		logger.Warnf("刷新法币价格失败: %v", err)
		return
	}
	f.mu.Lock()
	f.price = price
	f.hasPrice = true
	f.fetchedAt = time.Now()
	f.mu.Unlock()
}

func (f *PriceFeed) fetch(ctx context.Context) (decimal.Decimal, error) {
	var body struct {
		Ethereum struct {
			USD decimal.Decimal `json:"usd"`
		} `json:"ethereum"`
	}
	resp, err := f.http.R().SetContext(ctx).SetResult(&body).Get(f.url)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "请求价格源失败")
	}
	if resp.StatusCode() != 200 {
		return decimal.Zero, errors.Errorf("价格源返回异常状态码: %d", resp.StatusCode())
	}
	if body.Ethereum.USD.Sign() <= 0 {
		return decimal.Zero, errors.New("价格源返回非正价格")
	}
	return body.Ethereum.USD, nil
}

// SetPrice 直接注入价格（测试和离线模式）
func (f *PriceFeed) SetPrice(price decimal.Decimal) {
	f.mu.Lock()
	f.price = price
	f.hasPrice = true
	f.fetchedAt = time.Now()
	f.mu.Unlock()
}

// Price 当前法币价格，尚未获取到时 ok 为 false
func (f *PriceFeed) Price() (decimal.Decimal, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.price, f.hasPrice
}
