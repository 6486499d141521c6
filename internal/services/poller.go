package services

import (
	"context"
	"sync"
	"time"

	"github.com/mooveapp/auctiond/pkg/cache"
	"github.com/mooveapp/auctiond/pkg/logger"
)

// Source 一次完整的读模型拉取
type Source[T any] func(ctx context.Context) (T, error)

// SnapshotInfo 快照的新鲜度信息
type SnapshotInfo struct {
	Ok        bool      // 是否已经成功拉取过至少一次
	FetchedAt time.Time // 最近一次成功拉取的时间
	Stale     bool      // 距上次成功拉取已超过两个轮询周期
}

// Poller 固定周期的读模型轮询器
//
// 每个tick整体替换快照，失败的tick保留上一个成功值并最终把快照标记为stale。
// 上一次拉取未完成时跳过本次tick，不会堆积并发拉取。
type Poller[T any] struct {
	name     string
	source   Source[T]
	interval time.Duration

	mu        sync.RWMutex
	value     T
	hasValue  bool
	fetchedAt time.Time

	fetching sync.Mutex
	started  bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewPoller 创建轮询器，interval<=0 时使用5秒
func NewPoller[T any](name string, source Source[T], interval time.Duration) *Poller[T] {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller[T]{
		name:     name,
		source:   source,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start 启动轮询循环，立即执行第一次拉取（重复调用无效果）
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.done)

		p.tick(ctx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-ticker.C:
				p.tick(ctx)
			}
		}
	}()
}

// Stop 停止轮询；从未Start过的轮询器调用Stop直接返回
func (p *Poller[T]) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })

	p.mu.RLock()
	started := p.started
	p.mu.RUnlock()
	if started {
		<-p.done
	}
}

func (p *Poller[T]) tick(ctx context.Context) {
	// 上一次拉取还在进行时跳过本次tick
	if !p.fetching.TryLock() {
		return
	}
	defer p.fetching.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, p.interval*2)
	defer cancel()

	value, err := p.source(fetchCtx)
	if err != nil {
		// 保留上一个成功快照
		logger.Warnf("轮询%s失败，保留上一个快照: %v", p.name, err)
		return
	}

	p.mu.Lock()
	p.value = value
	p.hasValue = true
	p.fetchedAt = time.Now()
	p.mu.Unlock()
}

// Refresh 立即执行一次拉取（交易提交后的主动刷新）
func (p *Poller[T]) Refresh(ctx context.Context) {
	p.tick(ctx)
}

// Snapshot 返回最近一次成功的快照和新鲜度
func (p *Poller[T]) Snapshot() (T, SnapshotInfo) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	info := SnapshotInfo{
		Ok:        p.hasValue,
		FetchedAt: p.fetchedAt,
	}
	if p.hasValue {
		info.Stale = time.Since(p.fetchedAt) > 2*p.interval
	}
	return p.value, info
}

// lookupCall 进行中的按键拉取
type lookupCall[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Lookup 按 (查询种类, 参数) 键缓存的查询通道
// 相同键的并发拉取会合并为一次，结果带TTL缓存
type Lookup[T any] struct {
	cache    *cache.TTLCache[string, T]
	mu       sync.Mutex
	inflight map[string]*lookupCall[T]
}

// NewLookup 创建查询通道，ttl 为缓存时长
func NewLookup[T any](ttl time.Duration) *Lookup[T] {
	return &Lookup[T]{
		cache:    cache.New[string, T](ttl),
		inflight: make(map[string]*lookupCall[T]),
	}
}

// Close 释放缓存后台资源
func (l *Lookup[T]) Close() {
	l.cache.Close()
}

// Invalidate 使某个键的缓存失效
func (l *Lookup[T]) Invalidate(key string) {
	l.cache.Delete(key)
}

// Get 取键对应的值：缓存命中直接返回，未命中时拉取，
// 相同键已有拉取在途时等待其结果而不是重复发起
func (l *Lookup[T]) Get(ctx context.Context, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}

	l.mu.Lock()
	if call, ok := l.inflight[key]; ok {
		l.mu.Unlock()
		select {
		case <-call.done:
			return call.val, call.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}

	call := &lookupCall[T]{done: make(chan struct{})}
	l.inflight[key] = call
	l.mu.Unlock()

	call.val, call.err = fetch(ctx)
	close(call.done)

	l.mu.Lock()
	delete(l.inflight, key)
	l.mu.Unlock()

	if call.err == nil {
		l.cache.Set(key, call.val, 0)
	}
	return call.val, call.err
}
