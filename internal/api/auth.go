package api

import (
	"context"
	"crypto/subtle"
	"slices"
	"strings"
	"time"

	"hotelbooking/internal/config"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	defaultKeyHeader     = "x-api-key"
	defaultExtraHeader   = "x-api-extra"
	requestIDMetadataKey = "x-request-id"
	clientKeyUnknown     = "unknown"

	permReadAvailability = "read:availability"
	permReadCalendar     = "read:calendar"
)

// methodPermissions maps gRPC methods to the partner permission they need.
var methodPermissions = map[string]string{
	methodCheckAvailability: permReadAvailability,
	methodGetRoomCalendar:   permReadCalendar,
}

// PartnerAuth authenticates partner systems by API key pair and limits
// their call rate. Unauthenticated callers are limited by peer address.
type PartnerAuth struct {
	enabled     bool
	keyHeader   string
	extraHeader string
	partners    map[string]config.APIClientKey
	limiter     *rateLimiter
}

func NewPartnerAuth(cfg *config.APIConfig) *PartnerAuth {
	partners := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		partners[k.Key] = k
	}
	return &PartnerAuth{
		enabled:     cfg.Auth.Enabled,
		keyHeader:   headerName(cfg.Auth.HeaderAPIKey, defaultKeyHeader),
		extraHeader: headerName(cfg.Auth.HeaderExtra, defaultExtraHeader),
		partners:    partners,
		limiter:     newRateLimiter(cfg.RateLimit),
	}
}

func headerName(configured, fallback string) string {
	if h := strings.ToLower(strings.TrimSpace(configured)); h != "" {
		return h
	}
	return fallback
}

func (a *PartnerAuth) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)

		if a.enabled {
			if md == nil {
				return nil, status.Error(codes.Unauthenticated, "missing metadata")
			}
			partner, err := a.authenticate(md)
			if err != nil {
				return nil, err
			}
			if !allowed(partner, info.FullMethod) {
				return nil, status.Error(codes.PermissionDenied, "permission denied")
			}
		}

		if !a.limiter.allow(a.rateKey(ctx, md)) {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}

func (a *PartnerAuth) authenticate(md metadata.MD) (config.APIClientKey, error) {
	key := firstValue(md, a.keyHeader)
	extra := firstValue(md, a.extraHeader)
	if key == "" || extra == "" {
		return config.APIClientKey{}, status.Error(codes.Unauthenticated, "missing api key headers")
	}

	partner, ok := a.partners[key]
	if !ok {
		return config.APIClientKey{}, status.Error(codes.Unauthenticated, "invalid api key")
	}
	if subtle.ConstantTimeCompare([]byte(partner.Extra), []byte(extra)) != 1 {
		return config.APIClientKey{}, status.Error(codes.Unauthenticated, "invalid extra header")
	}
	return partner, nil
}

func allowed(partner config.APIClientKey, fullMethod string) bool {
	required := requiredPermission(fullMethod)
	// an empty permission list grants everything
	if required == "" || len(partner.Permissions) == 0 {
		return true
	}
	return slices.ContainsFunc(partner.Permissions, func(p string) bool {
		return strings.TrimSpace(p) == required
	})
}

func requiredPermission(fullMethod string) string {
	return methodPermissions[fullMethod]
}

func (a *PartnerAuth) rateKey(ctx context.Context, md metadata.MD) string {
	if key := firstValue(md, a.keyHeader); key != "" {
		return key
	}
	return peerAddr(ctx)
}

func firstValue(md metadata.MD, key string) string {
	vals := md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return clientKeyUnknown
}

// unaryAccessLog tags every call with a request id and logs its outcome.
func unaryAccessLog(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "grpc").Logger()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := requestIDFromMetadata(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, requestID))

		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		ev := base.Info()
		if code == codes.Internal || code == codes.Unknown {
			ev = base.Error().Err(err)
		}
		ev.Str("request_id", requestID).
			Str("method", info.FullMethod).
			Str("remote", peerAddr(ctx)).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Msg("grpc request")

		return resp, err
	}
}

func requestIDFromMetadata(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if id := firstValue(md, requestIDMetadataKey); id != "" {
			return id
		}
	}
	return uuid.NewString()
}
