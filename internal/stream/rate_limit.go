package stream

import "sync"

// Reasons a stream slot is refused.
const (
	refusedPerIP = "per_ip_limit"
	refusedTotal = "total_limit"
)

// streamLimiter hands out stream slots, bounded per client and overall.
type streamLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newStreamLimiter(maxPerIP, maxTotal int) *streamLimiter {
	return &streamLimiter{perIP: make(map[string]int), maxPerIP: maxPerIP, maxTotal: maxTotal}
}

// acquire takes a slot for ip. On success it returns a release func that
// is safe to call more than once; otherwise it names the limit hit.
func (l *streamLimiter) acquire(ip string) (release func(), refused string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.total >= l.maxTotal:
		return nil, refusedTotal
	case l.perIP[ip] >= l.maxPerIP:
		return nil, refusedPerIP
	}
	l.perIP[ip]++
	l.total++

	var once sync.Once
	return func() { once.Do(func() { l.release(ip) }) }, ""
}

func (l *streamLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.total--
	if l.perIP[ip]--; l.perIP[ip] <= 0 {
		delete(l.perIP, ip)
	}
}

// usage reports the slots held by ip and in total.
func (l *streamLimiter) usage(ip string) (held, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip], l.total
}
