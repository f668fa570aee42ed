package core

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseInventoryLink(t *testing.T) {
	id := uuid.MustParse("3f2a9c1e-8b7d-4e6f-9a0b-1c2d3e4f5a6b")

	tests := []struct {
		name    string
		in      string
		found   bool
		cleaned string
	}{
		{"trailing token", "Cardamom purchase inventory_item_id:" + id.String(), true, "Cardamom purchase"},
		{"pipe separated", "Jars x200 | inventory_item_id:" + id.String(), true, "Jars x200"},
		{"bracketed", "Salt [inventory_item_id: " + id.String() + "] bulk", true, "Salt bulk"},
		{"uppercase key", "INVENTORY_ITEM_ID:" + id.String(), true, ""},
		{"no token", "Electricity bill", false, "Electricity bill"},
		{"malformed uuid", "inventory_item_id:not-a-uuid", false, "inventory_item_id:not-a-uuid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, cleaned, ok := ParseInventoryLink(tt.in)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.cleaned, cleaned)
			if tt.found {
				assert.Equal(t, id, got)
			}
		})
	}
}
