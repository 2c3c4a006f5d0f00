package containers

import "sync"

var (
	internMu    sync.RWMutex
	internTable = map[string]string{}
)

// InternString returns a canonical copy of s, so that repeated display
// names across resources share one backing allocation. Safe for
// concurrent use.
func InternString(s string) string {
	if s == "" {
		return ""
	}

	internMu.RLock()
	canonical, ok := internTable[s]
	internMu.RUnlock()
	if ok {
		return canonical
	}

	internMu.Lock()
	defer internMu.Unlock()
	if canonical, ok = internTable[s]; ok {
		return canonical
	}
	internTable[s] = s
	return s
}

// InternCleanup drops the intern table. Interned strings already handed
// out remain valid.
func InternCleanup() {
	internMu.Lock()
	internTable = map[string]string{}
	internMu.Unlock()
}
