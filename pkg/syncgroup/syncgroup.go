package syncgroup

import "sync"

// SyncGroup 是 sync.WaitGroup 的包装器，简化后台 goroutine 的生命周期管理
// 自动配对 Add/Done，避免遗漏 Done 导致的泄漏
type SyncGroup struct {
	wg sync.WaitGroup
}

// New 创建新的 SyncGroup
func New() *SyncGroup {
	return &SyncGroup{}
}

// Go 启动一个受管理的 goroutine
func (g *SyncGroup) Go(fn func()) {
	if fn == nil {
		return
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
}

// Wait 等待所有 goroutine 退出
func (g *SyncGroup) Wait() {
	g.wg.Wait()
}
