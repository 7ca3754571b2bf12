package ratelimit

import "time"

// Policy is the budget for one endpoint class. Unauthenticated endpoints key
// by client IP; authenticated ones key by user.
type Policy struct {
	// Name namespaces the counter keys per endpoint class.
	Name   string
	Max    int
	Window time.Duration
	// ByUser keys the counter on the authenticated user instead of the
	// client IP.
	ByUser bool
}

// Endpoint budgets.
var (
	// Login is tight to slow credential stuffing.
	Login = Policy{Name: "login", Max: 5, Window: time.Minute}
	// Register is the tightest; account creation is rare.
	Register = Policy{Name: "register", Max: 3, Window: time.Minute}
	// Refresh caps token refresh bursts per IP.
	Refresh = Policy{Name: "refresh", Max: 10, Window: time.Minute}
	// Upload bounds file uploads per user. The upload routes live in the
	// file-handling service, which shares this limiter's Redis counters.
	Upload = Policy{Name: "upload", Max: 10, Window: time.Minute, ByUser: true}
	// API is the default budget for all other protected endpoints.
	API = Policy{Name: "api", Max: 100, Window: time.Minute, ByUser: true}
)
