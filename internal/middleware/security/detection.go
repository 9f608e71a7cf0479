package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"
)

const (
	maxURLLength  = 2048
	maxProxyHops  = 5
	headerXFF     = "X-Forwarded-For"
	headerRealIP  = "X-Real-IP"
	reasonPath    = "path_pattern"
	reasonQuery   = "query_pattern"
	reasonAgent   = "scanner_user_agent"
	reasonMethod  = "unusual_method"
	reasonLongURL = "url_too_long"
	reasonHops    = "too_many_proxy_hops"
)

var (
	probePatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"base64", "0x", "etc/passwd", "cmd.exe",
	}
	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb",
		"scanner", "crawler", "spider", "scraper",
	}
	unusualMethods = map[string]bool{
		"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true,
	}
)

// DetectionMetrics counts what the detector has seen.
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
}

// Detector flags probing traffic and resolves the client address behind
// trusted proxies.
type Detector struct {
	suspicious     atomic.Int64
	invalidIP      atomic.Int64
	trustedProxies []netip.Prefix
}

// NewDetector trusts loopback and the private ranges as proxies.
func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []netip.Prefix{
			netip.MustParsePrefix("127.0.0.0/8"),
			netip.MustParsePrefix("10.0.0.0/8"),
			netip.MustParsePrefix("172.16.0.0/12"),
			netip.MustParsePrefix("192.168.0.0/16"),
		},
	}
}

// AddTrustedProxy trusts forwarded headers from cidr.
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, p.Masked())
	return nil
}

// Inspect returns the first rule r trips, if any.
func (d *Detector) Inspect(r *http.Request) (string, bool) {
	if containsAny(strings.ToLower(r.URL.Path), probePatterns) {
		return reasonPath, true
	}
	if containsAny(strings.ToLower(r.URL.RawQuery), probePatterns) {
		return reasonQuery, true
	}
	if containsAny(strings.ToLower(r.UserAgent()), scannerAgents) {
		return reasonAgent, true
	}
	if unusualMethods[r.Method] {
		return reasonMethod, true
	}
	if len(r.URL.String()) > maxURLLength {
		return reasonLongURL, true
	}
	if strings.Count(r.Header.Get(headerXFF), ",") > maxProxyHops {
		return reasonHops, true
	}
	return "", false
}

// DetectSuspiciousRequest reports whether r trips any rule and counts it.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	_, hit := d.Inspect(r)
	if hit {
		d.suspicious.Add(1)
	}
	return hit
}

func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the peer address, or the forwarded client address
// when the peer is a trusted proxy. Unparsable forwarded values are counted
// and ignored.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	direct, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		direct = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(direct)
	if err != nil || !d.trusted(peer) {
		return direct
	}

	if xff := r.Header.Get(headerXFF); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip, ok := d.validIP(first); ok {
			return ip
		}
	}
	if xri := r.Header.Get(headerRealIP); xri != "" {
		if ip, ok := d.validIP(xri); ok {
			return ip
		}
	}
	return direct
}

func (d *Detector) validIP(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if _, err := netip.ParseAddr(raw); err != nil {
		d.invalidIP.Add(1)
		return "", false
	}
	return raw, true
}

func (d *Detector) trusted(ip netip.Addr) bool {
	ip = ip.Unmap()
	for _, p := range d.trustedProxies {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns a snapshot of the counters.
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		InvalidIPAttempts:  d.invalidIP.Load(),
	}
}

// Middleware logs suspicious requests and counts them. Requests are never
// blocked here.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason, hit := d.Inspect(r); hit {
			d.suspicious.Add(1)
			slog.WarnContext(r.Context(), "Suspicious request",
				"component", "security",
				"reason", reason,
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", d.ExtractClientIP(r),
				"user_agent", r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}
