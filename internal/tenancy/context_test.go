package tenancy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTenantIDContext(t *testing.T) {
	ctx := WithTenantID(context.Background(), "tenant-1")
	id, ok := TenantIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "tenant-1", id)
}

func TestTenantIDFromContext_Missing(t *testing.T) {
	id, ok := TenantIDFromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, id)
}
