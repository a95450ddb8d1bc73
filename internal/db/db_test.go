package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaDeclaresActiveClaimIndex(t *testing.T) {
	schema := Schema()

	assert.Contains(t, schema, "CREATE UNIQUE INDEX IF NOT EXISTS reservations_active_claim_idx")
	assert.Contains(t, schema, "WHERE status IN ('pending', 'approved')")
	for _, table := range []string{"lots", "garden_a_graves", "garden_b_graves", "garden_c_graves", "garden_d_graves", "columbarium_slots", "files", "reservations"} {
		assert.Contains(t, schema, "public."+table, table)
	}
}
