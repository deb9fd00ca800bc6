package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"forum_go/internal/core/config"
	"forum_go/internal/core/logger"

	"github.com/gin-gonic/gin"
)

// ipChecker IP 白名单/黑名单，支持单个 IP 与 CIDR
type ipChecker struct {
	allowNets []*net.IPNet
	denyNets  []*net.IPNet
	allowSet  map[string]bool
	denySet   map[string]bool
}

func newIPChecker(allow, deny []string) *ipChecker {
	c := &ipChecker{
		allowSet: make(map[string]bool),
		denySet:  make(map[string]bool),
	}
	c.allowNets = parseIPList(allow, c.allowSet)
	c.denyNets = parseIPList(deny, c.denySet)
	return c
}

func parseIPList(list []string, set map[string]bool) []*net.IPNet {
	var nets []*net.IPNet
	for _, ip := range list {
		ip = strings.TrimSpace(ip)
		if ip == "" {
			continue
		}
		if _, n, err := net.ParseCIDR(ip); err == nil {
			nets = append(nets, n)
		} else {
			set[ip] = true
		}
	}
	return nets
}

func (c *ipChecker) empty() bool {
	return len(c.allowSet) == 0 && len(c.allowNets) == 0 && len(c.denySet) == 0 && len(c.denyNets) == 0
}

func (c *ipChecker) denied(ipStr string, ip net.IP) bool {
	if c.denySet[ipStr] {
		return true
	}
	for _, n := range c.denyNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (c *ipChecker) allowed(ipStr string, ip net.IP) bool {
	if c.allowSet[ipStr] {
		return true
	}
	for _, n := range c.allowNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// isLocalIP 本机或内网地址（IPv4/IPv6）
func isLocalIP(ipStr string) bool {
	if ipStr == "localhost" {
		return true
	}
	ip := net.ParseIP(ipStr)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
}

// permit 黑名单优先；本地地址放行；其余按白名单
func (c *ipChecker) permit(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return isLocalIP(ipStr)
	}
	if c.denied(ipStr, ip) {
		return false
	}
	return isLocalIP(ipStr) || c.allowed(ipStr, ip)
}

func forbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"code": 403,
		"msg":  "access denied: IP not in whitelist",
	})
}

// PublicWhitelistMW 公开接口：未配置任何名单时全部放行
func PublicWhitelistMW(cfg *config.SecurityConfig) gin.HandlerFunc {
	checker := newIPChecker(cfg.AllowIPs, cfg.DenyIPs)
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if checker.empty() || checker.permit(clientIP) {
			c.Next()
			return
		}
		logger.Warn("public IP blocked by whitelist",
			logger.String("ip", clientIP),
			logger.String("path", c.Request.URL.Path))
		forbidden(c)
	}
}

// AdminWhitelistMW 管理接口：只放行本地/内网与白名单 IP
// 代理场景下 X-Real-IP 优先
func AdminWhitelistMW(cfg *config.SecurityConfig) gin.HandlerFunc {
	checker := newIPChecker(cfg.AllowIPs, cfg.DenyIPs)
	return func(c *gin.Context) {
		if realIP := c.GetHeader("X-Real-IP"); realIP != "" && checker.permit(realIP) {
			c.Next()
			return
		}
		clientIP := c.ClientIP()
		if checker.permit(clientIP) {
			c.Next()
			return
		}
		logger.Warn("admin access denied: IP not in whitelist",
			logger.String("ip", clientIP),
			logger.String("path", c.Request.URL.Path))
		forbidden(c)
	}
}

// IPLimiter 按 IP 的滑动窗口限流
type IPLimiter struct {
	mu     sync.Mutex
	visits map[string][]int64
	limit  int
	window int64
	now    func() time.Time
}

// NewIPLimiter 创建IP限制器；limit <= 0 时不限流
func NewIPLimiter(limit int, windowSeconds int) *IPLimiter {
	return &IPLimiter{
		visits: make(map[string][]int64),
		limit:  limit,
		window: int64(windowSeconds),
		now:    time.Now,
	}
}

// Allow 检查是否允许访问
func (l *IPLimiter) Allow(ip string) bool {
	if l.limit <= 0 {
		return true
	}
	now := l.now().Unix()

	l.mu.Lock()
	defer l.mu.Unlock()

	valid := l.visits[ip][:0]
	for _, ts := range l.visits[ip] {
		if now-ts < l.window {
			valid = append(valid, ts)
		}
	}
	if len(valid) >= l.limit {
		l.visits[ip] = valid
		return false
	}
	l.visits[ip] = append(valid, now)
	return true
}

// RateLimitMW 频率限制中间件
func RateLimitMW(limiter *IPLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.Allow(ip) {
			logger.Warn("rate limit exceeded",
				logger.String("ip", ip),
				logger.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code": 429,
				"msg":  "too many requests",
			})
			return
		}
		c.Next()
	}
}
