package requestcontext

import (
	"context"
	"log/slog"
	"net/netip"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

type clientIPKey struct{}

type WithClientIPConfig struct {
	// TrustedProxiesIP lists the CIDR ranges of every proxy between the server and the client.
	// When set, X-Forwarded-For is walked from the nearest hop and the first untrusted address wins.
	TrustedProxiesIP []string `mapstructure:"trusted_proxies_ip"`

	// TrustedHeader names a header carrying the client IP (X-Real-IP, CF-Connecting-IP).
	// A valid address in it takes precedence over everything else.
	TrustedHeader string `mapstructure:"trusted_proxies_header"`

	// EnableRejectMalformedRequest answers 403 to proxied requests whose client IP
	// cannot be resolved against TrustedProxiesIP.
	EnableRejectMalformedRequest bool `mapstructure:"enable_reject_malformed_request"`
}

// GetClientIP returns the client IP set by WithClientIP, or "".
func GetClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// WithClientIP resolves the client IP while guarding against X-Forwarded-For spoofing.
// It panics if a trusted proxy range is not a valid CIDR.
func WithClientIP(config WithClientIPConfig) Option {
	proxies, err := parsePrefixes(config.TrustedProxiesIP)
	if err != nil {
		logger.Panic("Invalid trusted proxies", slogx.Error(err))
	}

	return func(ctx context.Context, c *fiber.Ctx) (context.Context, error) {
		ip, err := resolveClientIP(ctx, c, config, proxies)
		if err != nil {
			return nil, err
		}
		return context.WithValue(ctx, clientIPKey{}, ip), nil
	}
}

func resolveClientIP(ctx context.Context, c *fiber.Ctx, config WithClientIPConfig, proxies []netip.Prefix) (string, error) {
	if config.TrustedHeader != "" {
		if addr, err := netip.ParseAddr(strings.TrimSpace(c.Get(config.TrustedHeader))); err == nil {
			return addr.String(), nil
		}
	}

	forwarded := c.IPs()
	if len(forwarded) == 0 {
		return c.IP(), nil
	}

	if len(proxies) > 0 {
		for i := len(forwarded) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(forwarded[i])
			if err != nil {
				break
			}
			if !lo.ContainsBy(proxies, func(p netip.Prefix) bool { return p.Contains(addr.Unmap()) }) {
				return addr.String(), nil
			}
			if i == 0 {
				// every hop is a trusted proxy
				return forwarded[0], nil
			}
		}
	}

	if config.EnableRejectMalformedRequest {
		logger.WarnContext(ctx, "Rejecting request with unresolvable client IP",
			slog.String("event", "requestcontext_ip_spoofing"),
			slog.String("remote_ip", c.IP()),
			slog.Any("x_forwarded_for", forwarded),
		)
		return "", &RejectError{Status: fiber.StatusForbidden, Message: "not allowed to access"}
	}
	return forwarded[0], nil
}

func parsePrefixes(ranges []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(ranges))
	for _, r := range ranges {
		p, err := netip.ParsePrefix(strings.TrimSpace(r))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid CIDR %q", r)
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes, nil
}
