package catalog

// RoleDefinition declares a well-known role and the permission keys it
// grants. The database role rows are reconciled against this list.
type RoleDefinition struct {
	Name        string
	Description string
	Permissions []string
}

// Well-known role names.
const (
	RoleAdmin               = "admin"
	RoleDoctor              = "doctor"
	RoleNurse               = "nurse"
	RoleReceptionist        = "receptionist"
	RolePharmacist          = "pharmacist"
	RoleLabTechnician       = "lab_technician"
	RoleAccountant          = "accountant"
	RoleHealthRecordOfficer = "health_record_officer"
	RoleRadiologyStaff      = "radiology_staff"
	RoleDeskOfficer         = "desk_officer"
)

// Roles lists the well-known roles. Admin-created roles live only in
// the database and contribute whatever permissions were assigned to
// them there.
var Roles = []RoleDefinition{
	{
		Name:        RoleAdmin,
		Description: "System Administrator - Full access to all modules",
		Permissions: []string{
			"patients.view",
			"patients.create",
			"patients.edit",
			"patients.delete",
			"patients.toggle_status",
			"patients.wallet_manage",
			"patients.nhia_manage",
			"medical.view",
			"medical.create",
			"medical.edit",
			"medical.delete",
			"vitals.view",
			"vitals.create",
			"vitals.edit",
			"vitals.delete",
			"consultations.view",
			"consultations.create",
			"consultations.edit",
			"referrals.view",
			"referrals.create",
			"referrals.edit",
			"pharmacy.view",
			"pharmacy.create",
			"pharmacy.edit",
			"pharmacy.dispense",
			"prescriptions.view",
			"prescriptions.create",
			"prescriptions.edit",
			"lab.view",
			"lab.create",
			"lab.edit",
			"lab.results",
			"billing.view",
			"billing.create",
			"billing.edit",
			"billing.process_payment",
			"wallet.view",
			"wallet.create",
			"wallet.edit",
			"wallet.transactions",
			"wallet.manage",
			"appointments.view",
			"appointments.create",
			"appointments.edit",
			"inpatient.view",
			"inpatient.create",
			"inpatient.edit",
			"inpatient.discharge",
			"users.view",
			"users.create",
			"users.edit",
			"users.delete",
			"roles.view",
			"roles.create",
			"roles.edit",
			"desk_office.view",
			"desk_office.generate_auth_code",
			"desk_office.cancel_auth_code",
			"reports.view",
			"reports.generate",
		},
	},
	{
		Name:        RoleDoctor,
		Description: "Medical Doctor - Patient care and medical operations",
		Permissions: []string{
			"patients.view",
			"patients.edit",
			"medical.view",
			"medical.create",
			"medical.edit",
			"vitals.view",
			"vitals.create",
			"vitals.edit",
			"consultations.view",
			"consultations.create",
			"consultations.edit",
			"referrals.view",
			"referrals.create",
			"prescriptions.view",
			"prescriptions.create",
			"prescriptions.edit",
			"lab.view",
			"lab.create",
			"appointments.view",
			"appointments.create",
			"inpatient.view",
			"inpatient.create",
			"inpatient.edit",
			"reports.view",
		},
	},
	{
		Name:        RoleNurse,
		Description: "Registered Nurse - Patient care and vitals monitoring",
		Permissions: []string{
			"patients.view",
			"patients.edit",
			"medical.view",
			"medical.create",
			"medical.edit",
			"vitals.view",
			"vitals.create",
			"vitals.edit",
			"consultations.view",
			"referrals.view",
			"referrals.create",
			"prescriptions.view",
			"appointments.view",
			"inpatient.view",
			"inpatient.create",
			"inpatient.edit",
			"reports.view",
		},
	},
	{
		Name:        RoleReceptionist,
		Description: "Front Desk Receptionist & Health Records - Patient registration, appointments, and records",
		Permissions: []string{
			"patients.view",
			"patients.create",
			"patients.edit",
			"patients.delete",
			"medical.view",
			"medical.create",
			"medical.edit",
			"medical.delete",
			"vitals.view",
			"vitals.create",
			"vitals.edit",
			"vitals.delete",
			"consultations.view",
			"consultations.create",
			"appointments.view",
			"appointments.create",
			"appointments.edit",
			"desk_office.view",
			"desk_office.generate_auth_code",
			"desk_office.cancel_auth_code",
			"reports.view",
		},
	},
	{
		Name:        RolePharmacist,
		Description: "Licensed Pharmacist - Medication management and dispensing",
		Permissions: []string{
			"patients.view",
			"pharmacy.view",
			"pharmacy.create",
			"pharmacy.edit",
			"pharmacy.dispense",
			"prescriptions.view",
			"prescriptions.edit",
			"reports.view",
		},
	},
	{
		Name:        RoleLabTechnician,
		Description: "Laboratory Technician - Test management and results",
		Permissions: []string{
			"patients.view",
			"lab.view",
			"lab.create",
			"lab.edit",
			"lab.results",
			"prescriptions.view",
			"reports.view",
		},
	},
	{
		Name:        RoleAccountant,
		Description: "Hospital Accountant - Financial management and billing",
		Permissions: []string{
			"patients.view",
			"billing.view",
			"billing.create",
			"billing.edit",
			"billing.process_payment",
			"wallet.view",
			"wallet.edit",
			"wallet.transactions",
			"wallet.manage",
			"reports.view",
		},
	},
	{
		Name:        RoleHealthRecordOfficer,
		Description: "Health Record Officer & Receptionist - Medical records and front desk operations",
		Permissions: []string{
			"patients.view",
			"patients.create",
			"patients.edit",
			"patients.delete",
			"medical.view",
			"medical.create",
			"medical.edit",
			"medical.delete",
			"vitals.view",
			"vitals.create",
			"vitals.edit",
			"vitals.delete",
			"consultations.view",
			"consultations.create",
			"appointments.view",
			"appointments.create",
			"appointments.edit",
			"billing.view",
			"billing.create",
			"billing.edit",
			"billing.process_payment",
			"wallet.view",
			"wallet.edit",
			"wallet.transactions",
			"desk_office.view",
			"desk_office.generate_auth_code",
			"desk_office.cancel_auth_code",
			"reports.view",
		},
	},
	{
		Name:        RoleRadiologyStaff,
		Description: "Radiology Technician - Imaging services",
		Permissions: []string{
			"patients.view",
			"radiology.view",
			"radiology.create",
			"radiology.edit",
			"reports.view",
		},
	},
	{
		Name:        RoleDeskOfficer,
		Description: "Desk Officer - Front desk operations and NHIA authorization management",
		Permissions: []string{
			"patients.view",
			"patients.create",
			"patients.edit",
			"appointments.view",
			"appointments.create",
			"appointments.edit",
			"desk_office.view",
			"desk_office.generate_auth_code",
			"desk_office.cancel_auth_code",
			"patients.nhia_manage",
			"billing.view",
			"billing.create",
			"reports.view",
		},
	},
}

var roleIndex = buildRoleIndex()

func buildRoleIndex() map[string]RoleDefinition {
	idx := make(map[string]RoleDefinition, len(Roles))
	for _, r := range Roles {
		idx[r.Name] = r
	}
	return idx
}

// RoleByName returns the well-known role definition, if any.
func RoleByName(name string) (RoleDefinition, bool) {
	r, ok := roleIndex[name]
	return r, ok
}

// RoleNames returns the well-known role names in catalog order.
func RoleNames() []string {
	names := make([]string, 0, len(Roles))
	for _, r := range Roles {
		names = append(names, r.Name)
	}
	return names
}

// RoleGrants reports whether the catalog grants key to the named role,
// without consulting the database. Used as the role-based fallback in
// the access middleware.
func RoleGrants(name, key string) bool {
	r, ok := roleIndex[name]
	if !ok {
		return false
	}
	for _, p := range r.Permissions {
		if p == key {
			return true
		}
	}
	return false
}
