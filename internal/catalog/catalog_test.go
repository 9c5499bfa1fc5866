package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	ok, errs, warnings := Validate()
	assert.True(t, ok)
	assert.Empty(t, errs)
	assert.Empty(t, warnings)
}

func TestValidateCollectsEveryFinding(t *testing.T) {
	origDefs, origRoles, origRules := Definitions, Roles, URLRules
	defer func() { Definitions, Roles, URLRules = origDefs, origRoles, origRules }()

	Definitions = []Definition{
		{Key: "a.view", StoredCodename: "a.view_a", Category: "alpha"},
		{Key: "a.view", StoredCodename: "a.view_a", Category: "alpha"},
		{Key: "b.view", StoredCodename: "", Category: "beta"},
	}
	Roles = []RoleDefinition{
		{Name: "keeper", Permissions: []string{"a.view", "retired.permission"}},
	}
	URLRules = []URLRule{
		{"alpha", "a.view"},
		{"gamma", "no.such"},
	}

	ok, errs, warnings := Validate()
	assert.False(t, ok)
	assert.Len(t, errs, 3)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "retired.permission")
}

func TestLookup(t *testing.T) {
	d, ok := Lookup("patients.view")
	require.True(t, ok)
	assert.Equal(t, "patients.view_patient", d.StoredCodename)
	assert.Equal(t, "patient_management", d.Category)

	_, ok = Lookup("nonexistent.permission")
	assert.False(t, ok)
}

func TestStoredCodename(t *testing.T) {
	assert.Equal(t, "pharmacy.view_dispensary", StoredCodename("pharmacy.view"))
	assert.Equal(t, "made.up", StoredCodename("made.up"))
}

func TestRoleByName(t *testing.T) {
	r, ok := RoleByName(RolePharmacist)
	require.True(t, ok)
	assert.Contains(t, r.Permissions, "pharmacy.dispense")
	assert.Contains(t, r.Permissions, "patients.view")

	_, ok = RoleByName("astronaut")
	assert.False(t, ok)
}

func TestRoleGrants(t *testing.T) {
	assert.True(t, RoleGrants(RoleDoctor, "prescriptions.create"))
	assert.False(t, RoleGrants(RoleLabTechnician, "pharmacy.dispense"))
	assert.False(t, RoleGrants("unknown_role", "patients.view"))
}

func TestMatchURL(t *testing.T) {
	tests := []struct {
		path    string
		perm    string
		matched bool
	}{
		{"/pharmacy/dispensaries/", "pharmacy.view", true},
		{"/dispensary/12/inventory/", "pharmacy.view", true},
		{"/bulk_store/", "pharmacy.view", true},
		{"/dashboard/", AuthenticatedOnly, true},
		{"/api/patients/42/", "patients.view", true},
		{"/api/v1/pharmacy/transfers/", "pharmacy.view", true},
		{"/theatre/schedule/", "inpatient.view", true},
		{"/nhia/claims/", "patients.view", true},
		{"/desk_office/pending/", "desk_office.view", true},
		{"/desk-office/pending/", "desk_office.view", true},
		{"/api/v1/desk-office/authorization-codes/", "desk_office.view", true},
		{"/api/v1/active-store/", "pharmacy.view", true},
		{"/totally/unknown/", "", false},
		{"/", "", false},
	}
	for _, tt := range tests {
		perm, matched := MatchURL(tt.path)
		assert.Equal(t, tt.matched, matched, tt.path)
		assert.Equal(t, tt.perm, perm, tt.path)
	}
}

func TestIsPublicURL(t *testing.T) {
	assert.True(t, IsPublicURL("/health/", nil))
	assert.True(t, IsPublicURL("/api/auth/login", nil))
	assert.True(t, IsPublicURL("/static/css/app.css", nil))
	assert.False(t, IsPublicURL("/pharmacy/", nil))
	assert.True(t, IsPublicURL("/kiosk/", []string{"/kiosk/"}))
}
