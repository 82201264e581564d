package tenancy

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jawab-ai/jawab-platform/pkg/logging"
)

// Directory is the lookup surface the resolver needs from the tenant store.
type Directory interface {
	FindByWhatsAppNumber(ctx context.Context, number string) (*Tenant, error)
	FindByVoiceNumber(ctx context.Context, number string) (*Tenant, error)
	FindByMetaID(ctx context.Context, pageOrAccountID string) (*Tenant, error)
	First(ctx context.Context) (*Tenant, error)
}

// Resolver maps inbound channel identifiers to tenants. When no tenant owns
// the identifier and fallback is enabled, the oldest tenant handles the
// message so a single-tenant deployment keeps working without bindings.
type Resolver struct {
	dir             Directory
	fallbackToFirst bool
	logger          *logging.Logger
}

// NewResolver creates a resolver over the given directory.
func NewResolver(dir Directory, fallbackToFirst bool, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{dir: dir, fallbackToFirst: fallbackToFirst, logger: logger}
}

// ResolveWhatsApp resolves the destination WhatsApp number to a tenant.
// The second return reports whether the fallback policy was used.
func (r *Resolver) ResolveWhatsApp(ctx context.Context, toNumber string) (*Tenant, bool, error) {
	return r.resolve(ctx, "whatsapp", toNumber, r.dir.FindByWhatsAppNumber)
}

// ResolveVoice resolves the called phone number to a tenant.
func (r *Resolver) ResolveVoice(ctx context.Context, calledNumber string) (*Tenant, bool, error) {
	return r.resolve(ctx, "voice", calledNumber, r.dir.FindByVoiceNumber)
}

// ResolveMeta resolves a Facebook Page id or Instagram account id to a tenant.
func (r *Resolver) ResolveMeta(ctx context.Context, pageOrAccountID string) (*Tenant, bool, error) {
	return r.resolve(ctx, "meta", pageOrAccountID, r.dir.FindByMetaID)
}

func (r *Resolver) resolve(ctx context.Context, channel, identifier string, find func(context.Context, string) (*Tenant, error)) (*Tenant, bool, error) {
	tracer := otel.Tracer("jawab.internal.tenancy")
	ctx, span := tracer.Start(ctx, "resolver.resolve")
	defer span.End()
	span.SetAttributes(attribute.String("channel", channel))

	tenant, err := find(ctx, identifier)
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("tenancy: resolve %s identifier: %w", channel, err)
	}
	if tenant != nil {
		return tenant, false, nil
	}
	if !r.fallbackToFirst {
		return nil, false, nil
	}

	tenant, err = r.dir.First(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("tenancy: fallback lookup: %w", err)
	}
	if tenant == nil {
		return nil, false, nil
	}
	r.logger.Warn("no tenant bound to identifier, falling back to first tenant",
		"channel", channel,
		"identifier", identifier,
		"tenant_id", tenant.ID,
	)
	return tenant, true, nil
}
