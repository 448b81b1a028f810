package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"unicode"
)

// Rejection reasons, also used as metric labels.
const (
	ReasonPathScan     = "path_scan"
	ReasonScannerAgent = "scanner_agent"
	ReasonMethod       = "method"
	ReasonOversizedURL = "oversized_url"
	ReasonOwnerHeader  = "owner_header"
)

const (
	maxURLLength = 2048
	maxOwnerID   = 128
)

// DetectionMetrics counts rejected requests, in total and per reason.
type DetectionMetrics struct {
	SuspiciousRequests int64
	ByReason           map[string]int64
}

// Detector resolves client addresses and turns away requests that are
// scanning the server rather than reading or writing a ledger.
type Detector struct {
	mu             sync.Mutex
	counts         map[string]int64 // by reason
	trustedProxies []*net.IPNet
}

// NewDetector trusts loopback and private networks to set forwarding headers.
func NewDetector() *Detector {
	return &Detector{
		counts: make(map[string]int64),
		trustedProxies: []*net.IPNet{
			mustCIDR("127.0.0.0/8"),
			mustCIDR("10.0.0.0/8"),
			mustCIDR("172.16.0.0/12"),
			mustCIDR("192.168.0.0/16"),
		},
	}
}

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// None of these ever appear in a report query or a transaction path.
var scanFragments = []string{
	"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", "<script", "union select", "etc/passwd", "cmd.exe",
}

var scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb"}

// inspect returns why r should be rejected, or "" when it looks legitimate.
func (d *Detector) inspect(r *http.Request) string {
	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", "CONNECT":
		return ReasonMethod
	}
	if len(r.URL.String()) > maxURLLength {
		return ReasonOversizedURL
	}

	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, f := range scanFragments {
		if strings.Contains(path, f) || strings.Contains(query, f) {
			return ReasonPathScan
		}
	}

	agent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, s := range scannerAgents {
		if strings.Contains(agent, s) {
			return ReasonScannerAgent
		}
	}

	// the owner id scopes every ledger query, so it must be a plain token
	if owner := r.Header.Get("X-User-ID"); len(owner) > maxOwnerID || strings.IndexFunc(owner, unicode.IsControl) >= 0 {
		return ReasonOwnerHeader
	}
	return ""
}

// Middleware answers rejected requests with a 400 in the API's error shape.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reason := d.inspect(r)
		if reason == "" {
			next.ServeHTTP(w, r)
			return
		}

		d.mu.Lock()
		d.counts[reason]++
		d.mu.Unlock()

		slog.WarnContext(r.Context(), "Suspicious request rejected",
			"reason", reason,
			"client_ip", d.ExtractClientIP(r),
			"method", r.Method,
			"path", r.URL.Path)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":"BAD_REQUEST","message":"request rejected"}}`+"\n")
	})
}

// ExtractClientIP returns the peer address, or the forwarded client address
// when the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	ip := net.ParseIP(peer)
	if ip == nil || !d.isTrustedProxy(ip) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := DetectionMetrics{ByReason: make(map[string]int64, len(d.counts))}
	for reason, n := range d.counts {
		m.ByReason[reason] = n
		m.SuspiciousRequests += n
	}
	return m
}
