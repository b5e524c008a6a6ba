package engine

import "sync"

// keyedMutex 按合约名提供互斥：同一合约的持仓/槽位变更串行，
// 跨合约完全并行。锁集在启动时建满，运行期只读。
type keyedMutex struct {
	locks map[string]*sync.Mutex
}

func newKeyedMutex(names []string) *keyedMutex {
	m := &keyedMutex{locks: make(map[string]*sync.Mutex, len(names))}
	for _, n := range names {
		m.locks[n] = &sync.Mutex{}
	}
	return m
}

func (m *keyedMutex) Lock(name string) {
	if mu, ok := m.locks[name]; ok {
		mu.Lock()
	}
}

func (m *keyedMutex) Unlock(name string) {
	if mu, ok := m.locks[name]; ok {
		mu.Unlock()
	}
}
