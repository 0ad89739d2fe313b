package bridge

import (
	"net"
	"sync"
	"time"
)

type ConnectionLimiter interface {
	Allow(addr net.Addr) bool
	// Ban refuses every connection from the host of addr for a while.
	Ban(addr net.Addr)
}

func FilterIpFromAddr(addr net.Addr) string {
	s := addr.String()
	host, _, err := net.SplitHostPort(s)
	if err != nil {
		return s
	}
	return host
}

// NewConnLimiter allows rateLimit new connections per cooldown, a rateLimit
// of 0 or less means no limit. Banned hosts stay banned for banTime.
func NewConnLimiter(rateLimit int, cooldown, banTime time.Duration) ConnectionLimiter {
	if rateLimit <= 0 && banTime <= 0 {
		return AlwaysAllowConnection{}
	}
	return &absoluteConnLimiter{
		rateLimit:    rateLimit,
		rateCooldown: cooldown,
		banTime:      banTime,
		banList:      make(map[string]time.Time),
	}
}

type absoluteConnLimiter struct {
	mu            sync.Mutex
	rateCounter   int
	rateStartTime time.Time
	rateLimit     int
	rateCooldown  time.Duration

	banTime time.Duration
	banList map[string]time.Time
}

func (r *absoluteConnLimiter) Allow(addr net.Addr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ip := FilterIpFromAddr(addr)
	if bannedAt, ok := r.banList[ip]; ok {
		if time.Since(bannedAt) < r.banTime {
			return false
		}
		delete(r.banList, ip)
	}
	if r.rateLimit <= 0 {
		return true
	}
	if time.Since(r.rateStartTime) >= r.rateCooldown {
		r.rateCounter = 0
		r.rateStartTime = time.Now()
	}
	if r.rateCounter < r.rateLimit {
		r.rateCounter++
		return true
	}
	return false
}

func (r *absoluteConnLimiter) Ban(addr net.Addr) {
	if r.banTime <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.banList[FilterIpFromAddr(addr)] = time.Now()
}

type AlwaysAllowConnection struct{}

func (limiter AlwaysAllowConnection) Allow(addr net.Addr) bool {
	return true
}

func (limiter AlwaysAllowConnection) Ban(addr net.Addr) {}
