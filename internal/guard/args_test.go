package guard

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestHasTenantScope(t *testing.T) {
	tests := []struct {
		name  string
		where Filter
		want  bool
	}{
		{"nil", nil, false},
		{"empty", Filter{}, false},
		{"scalar equality", Filter{"tenantId": "t1"}, true},
		{"equals operator", Filter{"tenantId": map[string]any{"equals": "t1"}}, true},
		{"in operator", Filter{"tenantId": map[string]any{"in": []any{"t1", "t2"}}}, true},
		{"empty in", Filter{"tenantId": map[string]any{"in": []any{}}}, false},
		{"not operator only", Filter{"tenantId": map[string]any{"not": "t1"}}, false},
		{"explicit nil", Filter{"tenantId": nil}, false},
		{"other keys only", Filter{"role": "ADMIN", "id": "u1"}, false},
		{"relation filter", Filter{"client": map[string]any{"tenantId": "t1"}}, true},
		{"relation filter with is", Filter{"client": map[string]any{"is": map[string]any{"tenantId": "t1"}}}, true},
		{"relation two levels deep", Filter{"booking": map[string]any{"client": map[string]any{"tenantId": "t1"}}}, false},
		{"AND with scoped member", Filter{"AND": []any{Filter{"status": "PENDING"}, Filter{"tenantId": "t1"}}}, true},
		{"AND single map", Filter{"AND": map[string]any{"tenantId": "t1"}}, true},
		{"OR all scoped", Filter{"OR": []any{Filter{"tenantId": "t1"}, Filter{"tenantId": "t2"}}}, true},
		{"OR partially scoped", Filter{"OR": []any{Filter{"tenantId": "t1"}, Filter{"id": "x"}}}, false},
		{"NOT is never scope", Filter{"NOT": Filter{"tenantId": "t1"}}, false},
		{"operator map is not relation", Filter{"createdAt": map[string]any{"gt": "2024-01-01"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasTenantScope(tt.where))
		})
	}
}

func TestTenantFilterValues(t *testing.T) {
	id := uuid.MustParse("7f3c2a8e-6b1d-4c8e-9a2f-0d4b5e6c7a81")

	tests := []struct {
		name  string
		where Filter
		want  []string
	}{
		{"scalar", Filter{"tenantId": "t1"}, []string{"t1"}},
		{"equals", Filter{"tenantId": map[string]any{"equals": "t9"}}, []string{"t9"}},
		{"in", Filter{"tenantId": map[string]any{"in": []string{"t1", "t2", "t1"}}}, []string{"t1", "t2"}},
		{"uuid value", Filter{"tenantId": id}, []string{id.String()}},
		{"relation", Filter{"client": map[string]any{"tenantId": "t3"}}, []string{"t3"}},
		{"AND", Filter{"AND": []any{Filter{"tenantId": "t4"}}}, []string{"t4"}},
		{"none", Filter{"id": "x"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, TenantFilterValues(tt.where))
		})
	}
}

func TestDataTenant(t *testing.T) {
	_, ok := DataTenant(Record{"email": "a@x.com"})
	assert.False(t, ok)

	_, ok = DataTenant(Record{"tenantId": nil})
	assert.False(t, ok)

	v, ok := DataTenant(Record{"tenantId": "t1"})
	assert.True(t, ok)
	assert.Equal(t, "t1", v)

	v, ok = DataTenant(Record{"tenantId": map[string]any{"connect": "t2"}})
	assert.True(t, ok, "nested writes count as present so they are never overwritten")
	assert.NotEqual(t, "", v)
}

func TestArgsClone_IsDeep(t *testing.T) {
	orig := &Args{
		Where:     Filter{"AND": []any{map[string]any{"tenantId": "t1"}}},
		Data:      Record{"meta": map[string]any{"k": "v"}},
		OrderBy:   []Order{{Field: "createdAt", Desc: true}},
		Aggregate: &AggregateSpec{Sum: []string{"amount"}},
	}
	snapshot := orig.Clone()

	c := orig.Clone()
	c.Data["meta"].(map[string]any)["k"] = "changed"
	c.Where["AND"].([]any)[0].(map[string]any)["tenantId"] = "t2"
	c.OrderBy[0].Desc = false
	c.Aggregate.Count = true

	if diff := cmp.Diff(snapshot, orig); diff != "" {
		t.Fatalf("clone mutated original (-want +got):\n%s", diff)
	}
}
