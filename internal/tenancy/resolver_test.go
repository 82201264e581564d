package tenancy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	byWhatsApp map[string]*Tenant
	byVoice    map[string]*Tenant
	byMeta     map[string]*Tenant
	first      *Tenant
	err        error
}

func (f *fakeDirectory) FindByWhatsAppNumber(_ context.Context, number string) (*Tenant, error) {
	return f.byWhatsApp[NormalizeWhatsApp(number)], f.err
}

func (f *fakeDirectory) FindByVoiceNumber(_ context.Context, number string) (*Tenant, error) {
	return f.byVoice[number], f.err
}

func (f *fakeDirectory) FindByMetaID(_ context.Context, id string) (*Tenant, error) {
	return f.byMeta[id], f.err
}

func (f *fakeDirectory) First(_ context.Context) (*Tenant, error) {
	return f.first, f.err
}

func TestResolver_ResolveWhatsApp_ExactMatch(t *testing.T) {
	bound := &Tenant{ID: "tenant-1", Name: "Glamour Beauty Salon"}
	dir := &fakeDirectory{
		byWhatsApp: map[string]*Tenant{"+971501234567": bound},
		first:      &Tenant{ID: "tenant-0"},
	}
	resolver := NewResolver(dir, true, nil)

	tenant, fellBack, err := resolver.ResolveWhatsApp(context.Background(), "whatsapp:+971501234567")
	require.NoError(t, err)
	require.NotNil(t, tenant)
	assert.Equal(t, "tenant-1", tenant.ID)
	assert.False(t, fellBack)
}

func TestResolver_FallsBackToFirstTenant(t *testing.T) {
	first := &Tenant{ID: "tenant-0", Name: "Only Tenant"}
	dir := &fakeDirectory{first: first}
	resolver := NewResolver(dir, true, nil)

	tenant, fellBack, err := resolver.ResolveVoice(context.Background(), "+97140000000")
	require.NoError(t, err)
	require.NotNil(t, tenant)
	assert.Equal(t, "tenant-0", tenant.ID)
	assert.True(t, fellBack)
}

func TestResolver_FallbackDisabled(t *testing.T) {
	dir := &fakeDirectory{first: &Tenant{ID: "tenant-0"}}
	resolver := NewResolver(dir, false, nil)

	tenant, fellBack, err := resolver.ResolveMeta(context.Background(), "unknown-page")
	require.NoError(t, err)
	assert.Nil(t, tenant)
	assert.False(t, fellBack)
}

func TestResolver_NoTenantsAtAll(t *testing.T) {
	resolver := NewResolver(&fakeDirectory{}, true, nil)

	tenant, fellBack, err := resolver.ResolveWhatsApp(context.Background(), "whatsapp:+97150000000")
	require.NoError(t, err)
	assert.Nil(t, tenant)
	assert.False(t, fellBack)
}

func TestResolver_LookupError(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("connection refused")}
	resolver := NewResolver(dir, true, nil)

	tenant, _, err := resolver.ResolveMeta(context.Background(), "page-1")
	assert.Error(t, err)
	assert.Nil(t, tenant)
}
