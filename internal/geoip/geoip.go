// Package geoip resolves a client IP to a country code.
package geoip

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LocalCountry is returned for loopback and private-range addresses without
// touching the network.
const LocalCountry = "Local"

const lookupTimeout = 5 * time.Second

type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: lookupTimeout},
		logger:  logger,
	}
}

// CountryForIP returns the country for ip, LocalCountry for private and
// loopback addresses, or "" when the lookup fails or the address is
// unparseable. A failed lookup is never an error for the caller.
func (c *Client) CountryForIP(ctx context.Context, ip string) string {
	if ip == "" || ip == "unknown" {
		return LocalCountry
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		c.logger.Warn("Unparseable IP address", zap.String("ip", ip))
		return ""
	}

	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast() {
		return LocalCountry
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/country/", c.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.logger.Warn("Failed to build geo lookup request",
			zap.String("ip", ip),
			zap.Error(err))
		return ""
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("Geo lookup failed",
			zap.String("ip", ip),
			zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Geo lookup returned non-OK status",
			zap.String("ip", ip),
			zap.Int("status", resp.StatusCode))
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		c.logger.Warn("Failed to read geo lookup response",
			zap.String("ip", ip),
			zap.Error(err))
		return ""
	}

	return strings.TrimSpace(string(body))
}
