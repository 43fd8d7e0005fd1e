package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndGetBreadcrumbs(t *testing.T) {
	ClearBreadcrumbs()
	defer ClearBreadcrumbs()

	RecordBreadcrumb("mutation", "set applied", map[string]interface{}{"key": "a"})
	RecordBreadcrumb("mutation", "delete applied", nil)

	crumbs := GetBreadcrumbs()
	require.Len(t, crumbs, 2)
	assert.Equal(t, "set applied", crumbs[0].Message)
	assert.Equal(t, "delete applied", crumbs[1].Message)
}

func TestBreadcrumbBuffer_DropsOldest(t *testing.T) {
	ClearBreadcrumbs()
	defer ClearBreadcrumbs()

	for i := 0; i < MaxBreadcrumbs+10; i++ {
		RecordBreadcrumb("mutation", "event", nil)
	}

	crumbs := GetBreadcrumbs()
	assert.Len(t, crumbs, MaxBreadcrumbs)
}

func TestClearBreadcrumbs(t *testing.T) {
	RecordBreadcrumb("mutation", "event", nil)
	ClearBreadcrumbs()
	assert.Empty(t, GetBreadcrumbs())
}
