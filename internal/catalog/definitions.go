package catalog

// Definition binds a logical permission key to the stored permission
// row it maps to. Keys are immutable identifiers of the form
// "<domain>.<verb>".
type Definition struct {
	Key            string
	StoredCodename string
	Category       string
	Description    string
	Model          string
	IsCustom       bool
}

// Definitions is the authoritative permission catalog. The database is
// reconciled against it by the sync tools; code never invents keys
// outside this list.
var Definitions = []Definition{
	// Patient Management
	{Key: "patients.view", StoredCodename: "patients.view_patient", Category: "patient_management", Description: "Can view patient records", Model: "Patient", IsCustom: false},
	{Key: "patients.create", StoredCodename: "patients.add_patient", Category: "patient_management", Description: "Can add/create new patients", Model: "Patient", IsCustom: false},
	{Key: "patients.edit", StoredCodename: "patients.change_patient", Category: "patient_management", Description: "Can edit patient records", Model: "Patient", IsCustom: false},
	{Key: "patients.delete", StoredCodename: "patients.delete_patient", Category: "patient_management", Description: "Can delete patient records", Model: "Patient", IsCustom: false},
	{Key: "patients.toggle_status", StoredCodename: "patients.toggle_patientstatus", Category: "patient_management", Description: "Can toggle patient active/inactive status", Model: "Patient", IsCustom: true},
	{Key: "patients.wallet_manage", StoredCodename: "patients.manage_wallet", Category: "patient_management", Description: "Can manage patient wallet (add funds, adjust balances)", Model: "Patient", IsCustom: true},
	{Key: "patients.nhia_manage", StoredCodename: "patients.manage_nhiastatus", Category: "patient_management", Description: "Can manage NHIA insurance status", Model: "Patient", IsCustom: true},

	// Medical Records
	{Key: "medical.view", StoredCodename: "patients.view_medicalhistory", Category: "medical_records", Description: "Can view medical history records", Model: "MedicalHistory", IsCustom: false},
	{Key: "medical.create", StoredCodename: "patients.add_medicalhistory", Category: "medical_records", Description: "Can add medical history records", Model: "MedicalHistory", IsCustom: false},
	{Key: "medical.edit", StoredCodename: "patients.change_medicalhistory", Category: "medical_records", Description: "Can edit medical history records", Model: "MedicalHistory", IsCustom: false},
	{Key: "medical.delete", StoredCodename: "patients.delete_medicalhistory", Category: "medical_records", Description: "Can delete medical history records", Model: "MedicalHistory", IsCustom: false},
	{Key: "vitals.view", StoredCodename: "patients.view_vitals", Category: "medical_records", Description: "Can view vital signs records", Model: "Vitals", IsCustom: false},
	{Key: "vitals.create", StoredCodename: "patients.add_vitals", Category: "medical_records", Description: "Can add vital signs records", Model: "Vitals", IsCustom: false},
	{Key: "vitals.edit", StoredCodename: "patients.change_vitals", Category: "medical_records", Description: "Can edit vital signs records", Model: "Vitals", IsCustom: false},
	{Key: "vitals.delete", StoredCodename: "patients.delete_vitals", Category: "medical_records", Description: "Can delete vital signs records", Model: "Vitals", IsCustom: false},

	// Consultations
	{Key: "consultations.view", StoredCodename: "consultations.view_consultation", Category: "consultations", Description: "Can view consultation records", Model: "Consultation", IsCustom: false},
	{Key: "consultations.create", StoredCodename: "consultations.add_consultation", Category: "consultations", Description: "Can create consultations", Model: "Consultation", IsCustom: false},
	{Key: "consultations.edit", StoredCodename: "consultations.change_consultation", Category: "consultations", Description: "Can edit consultation records", Model: "Consultation", IsCustom: false},
	{Key: "consultations.delete", StoredCodename: "consultations.delete_consultation", Category: "consultations", Description: "Can delete consultation records", Model: "Consultation", IsCustom: false},
	{Key: "referrals.view", StoredCodename: "consultations.view_referral", Category: "consultations", Description: "Can view referral records", Model: "Referral", IsCustom: false},
	{Key: "referrals.create", StoredCodename: "consultations.add_referral", Category: "consultations", Description: "Can create referrals", Model: "Referral", IsCustom: false},
	{Key: "referrals.edit", StoredCodename: "consultations.change_referral", Category: "consultations", Description: "Can edit referral records", Model: "Referral", IsCustom: false},
	{Key: "referrals.delete", StoredCodename: "consultations.delete_referral", Category: "consultations", Description: "Can delete referral records", Model: "Referral", IsCustom: false},

	// Pharmacy
	{Key: "pharmacy.view", StoredCodename: "pharmacy.view_dispensary", Category: "pharmacy", Description: "Can view dispensary records", Model: "Dispensary", IsCustom: false},
	{Key: "pharmacy.create", StoredCodename: "pharmacy.add_dispensary", Category: "pharmacy", Description: "Can add dispensary records", Model: "Dispensary", IsCustom: false},
	{Key: "pharmacy.edit", StoredCodename: "pharmacy.change_dispensary", Category: "pharmacy", Description: "Can edit dispensary records", Model: "Dispensary", IsCustom: false},
	{Key: "pharmacy.dispense", StoredCodename: "pharmacy.dispense_medication", Category: "pharmacy", Description: "Can dispense medications to patients", Model: "Prescription", IsCustom: true},
	{Key: "prescriptions.view", StoredCodename: "pharmacy.view_prescription", Category: "pharmacy", Description: "Can view prescription records", Model: "Prescription", IsCustom: false},
	{Key: "prescriptions.create", StoredCodename: "pharmacy.add_prescription", Category: "pharmacy", Description: "Can create prescriptions", Model: "Prescription", IsCustom: false},
	{Key: "prescriptions.edit", StoredCodename: "pharmacy.change_prescription", Category: "pharmacy", Description: "Can edit prescription records", Model: "Prescription", IsCustom: false},
	{Key: "prescriptions.delete", StoredCodename: "pharmacy.delete_prescription", Category: "pharmacy", Description: "Can delete prescription records", Model: "Prescription", IsCustom: false},

	// Laboratory
	{Key: "lab.view", StoredCodename: "laboratory.view_test", Category: "laboratory", Description: "Can view lab test records", Model: "Test", IsCustom: false},
	{Key: "lab.create", StoredCodename: "laboratory.add_test", Category: "laboratory", Description: "Can create lab tests", Model: "Test", IsCustom: false},
	{Key: "lab.edit", StoredCodename: "laboratory.change_test", Category: "laboratory", Description: "Can edit lab test records", Model: "Test", IsCustom: false},
	{Key: "lab.delete", StoredCodename: "laboratory.delete_test", Category: "laboratory", Description: "Can delete lab test records", Model: "Test", IsCustom: false},
	{Key: "lab.results", StoredCodename: "laboratory.enter_testresults", Category: "laboratory", Description: "Can enter/edit lab test results", Model: "TestResult", IsCustom: true},

	// Billing
	{Key: "billing.view", StoredCodename: "billing.view_invoice", Category: "billing", Description: "Can view invoices", Model: "Invoice", IsCustom: false},
	{Key: "billing.create", StoredCodename: "billing.add_invoice", Category: "billing", Description: "Can create invoices", Model: "Invoice", IsCustom: false},
	{Key: "billing.edit", StoredCodename: "billing.change_invoice", Category: "billing", Description: "Can edit invoices", Model: "Invoice", IsCustom: false},
	{Key: "billing.delete", StoredCodename: "billing.delete_invoice", Category: "billing", Description: "Can delete invoices", Model: "Invoice", IsCustom: false},
	{Key: "billing.process_payment", StoredCodename: "billing.process_payment", Category: "billing", Description: "Can process payments", Model: "Payment", IsCustom: true},
	{Key: "wallet.view", StoredCodename: "patients.view_patientwallet", Category: "billing", Description: "Can view patient wallets", Model: "PatientWallet", IsCustom: false},
	{Key: "wallet.create", StoredCodename: "patients.add_patientwallet", Category: "billing", Description: "Can create patient wallets", Model: "PatientWallet", IsCustom: false},
	{Key: "wallet.edit", StoredCodename: "patients.change_patientwallet", Category: "billing", Description: "Can edit patient wallets", Model: "PatientWallet", IsCustom: false},
	{Key: "wallet.delete", StoredCodename: "patients.delete_patientwallet", Category: "billing", Description: "Can delete patient wallets", Model: "PatientWallet", IsCustom: false},
	{Key: "wallet.transactions", StoredCodename: "patients.view_wallettransaction", Category: "billing", Description: "Can view wallet transactions", Model: "WalletTransaction", IsCustom: false},
	{Key: "wallet.manage", StoredCodename: "patients.manage_patientwallet", Category: "billing", Description: "Can manage wallet operations (adjust balances, refunds)", Model: "PatientWallet", IsCustom: true},

	// Appointments
	{Key: "appointments.view", StoredCodename: "appointments.view_appointment", Category: "appointments", Description: "Can view appointment records", Model: "Appointment", IsCustom: false},
	{Key: "appointments.create", StoredCodename: "appointments.add_appointment", Category: "appointments", Description: "Can create appointments", Model: "Appointment", IsCustom: false},
	{Key: "appointments.edit", StoredCodename: "appointments.change_appointment", Category: "appointments", Description: "Can edit appointment records", Model: "Appointment", IsCustom: false},
	{Key: "appointments.delete", StoredCodename: "appointments.delete_appointment", Category: "appointments", Description: "Can delete appointment records", Model: "Appointment", IsCustom: false},

	// Inpatient
	{Key: "inpatient.view", StoredCodename: "inpatient.view_admission", Category: "inpatient", Description: "Can view admission records", Model: "Admission", IsCustom: false},
	{Key: "inpatient.create", StoredCodename: "inpatient.add_admission", Category: "inpatient", Description: "Can create admissions", Model: "Admission", IsCustom: false},
	{Key: "inpatient.edit", StoredCodename: "inpatient.change_admission", Category: "inpatient", Description: "Can edit admission records", Model: "Admission", IsCustom: false},
	{Key: "inpatient.delete", StoredCodename: "inpatient.delete_admission", Category: "inpatient", Description: "Can delete admission records", Model: "Admission", IsCustom: false},
	{Key: "inpatient.discharge", StoredCodename: "inpatient.discharge_patient", Category: "inpatient", Description: "Can discharge inpatients", Model: "Admission", IsCustom: true},

	// User Management
	{Key: "users.view", StoredCodename: "accounts.view_customuser", Category: "user_management", Description: "Can view user accounts", Model: "CustomUser", IsCustom: false},
	{Key: "users.create", StoredCodename: "accounts.add_customuser", Category: "user_management", Description: "Can create new user accounts", Model: "CustomUser", IsCustom: false},
	{Key: "users.edit", StoredCodename: "accounts.change_customuser", Category: "user_management", Description: "Can edit user accounts", Model: "CustomUser", IsCustom: false},
	{Key: "users.delete", StoredCodename: "accounts.delete_customuser", Category: "user_management", Description: "Can delete user accounts", Model: "CustomUser", IsCustom: false},
	{Key: "roles.view", StoredCodename: "accounts.view_role", Category: "user_management", Description: "Can view roles", Model: "Role", IsCustom: false},
	{Key: "roles.create", StoredCodename: "accounts.add_role", Category: "user_management", Description: "Can create roles", Model: "Role", IsCustom: false},
	{Key: "roles.edit", StoredCodename: "accounts.change_role", Category: "user_management", Description: "Can edit roles", Model: "Role", IsCustom: false},
	{Key: "roles.delete", StoredCodename: "accounts.delete_role", Category: "user_management", Description: "Can delete roles", Model: "Role", IsCustom: false},

	// Reports
	{Key: "reports.view", StoredCodename: "reporting.view_report", Category: "reports", Description: "Can view reports", Model: "Report", IsCustom: false},
	{Key: "reports.generate", StoredCodename: "reporting.generate_report", Category: "reports", Description: "Can generate reports", Model: "Report", IsCustom: true},

	// Radiology
	{Key: "radiology.view", StoredCodename: "radiology.view_radiologytest", Category: "radiology", Description: "Can view radiology tests/services", Model: "RadiologyTest", IsCustom: false},
	{Key: "radiology.create", StoredCodename: "radiology.add_radiologytest", Category: "radiology", Description: "Can create radiology tests/services", Model: "RadiologyTest", IsCustom: false},
	{Key: "radiology.edit", StoredCodename: "radiology.change_radiologytest", Category: "radiology", Description: "Can edit radiology tests/services", Model: "RadiologyTest", IsCustom: false},
	{Key: "radiology.delete", StoredCodename: "radiology.delete_radiologytest", Category: "radiology", Description: "Can delete radiology tests/services", Model: "RadiologyTest", IsCustom: false},

	// Desk Office
	{Key: "desk_office.view", StoredCodename: "nhia.view_authorizationcode", Category: "desk_office", Description: "Can view desk office records and operations", Model: "AuthorizationCode", IsCustom: false},
	{Key: "desk_office.generate_auth_code", StoredCodename: "nhia.add_authorizationcode", Category: "desk_office", Description: "Can generate NHIA authorization codes", Model: "AuthorizationCode", IsCustom: false},
	{Key: "desk_office.cancel_auth_code", StoredCodename: "nhia.change_authorizationcode", Category: "desk_office", Description: "Can cancel NHIA authorization codes", Model: "AuthorizationCode", IsCustom: false},

	// Specialty
	{Key: "dental.view", StoredCodename: "dental.view_dentalrecord", Category: "specialty", Description: "Can view dental records", Model: "DentalRecord", IsCustom: false},
	{Key: "dental.create", StoredCodename: "dental.add_dentalrecord", Category: "specialty", Description: "Can create dental records", Model: "DentalRecord", IsCustom: false},
	{Key: "dental.edit", StoredCodename: "dental.change_dentalrecord", Category: "specialty", Description: "Can edit dental records", Model: "DentalRecord", IsCustom: false},
	{Key: "ophthalmic.view", StoredCodename: "ophthalmic.view_ophthalmicrecord", Category: "specialty", Description: "Can view ophthalmic records", Model: "OphthalmicRecord", IsCustom: false},
	{Key: "ophthalmic.create", StoredCodename: "ophthalmic.add_ophthalmicrecord", Category: "specialty", Description: "Can create ophthalmic records", Model: "OphthalmicRecord", IsCustom: false},
	{Key: "ophthalmic.edit", StoredCodename: "ophthalmic.change_ophthalmicrecord", Category: "specialty", Description: "Can edit ophthalmic records", Model: "OphthalmicRecord", IsCustom: false},
	{Key: "ent.view", StoredCodename: "ent.view_entrecord", Category: "specialty", Description: "Can view ENT records", Model: "ENTRecord", IsCustom: false},
	{Key: "ent.create", StoredCodename: "ent.add_entrecord", Category: "specialty", Description: "Can create ENT records", Model: "ENTRecord", IsCustom: false},
	{Key: "ent.edit", StoredCodename: "ent.change_entrecord", Category: "specialty", Description: "Can edit ENT records", Model: "ENTRecord", IsCustom: false},
	{Key: "oncology.view", StoredCodename: "oncology.view_oncologyrecord", Category: "specialty", Description: "Can view oncology records", Model: "OncologyRecord", IsCustom: false},
	{Key: "oncology.create", StoredCodename: "oncology.add_oncologyrecord", Category: "specialty", Description: "Can create oncology records", Model: "OncologyRecord", IsCustom: false},
	{Key: "oncology.edit", StoredCodename: "oncology.change_oncologyrecord", Category: "specialty", Description: "Can edit oncology records", Model: "OncologyRecord", IsCustom: false},
	{Key: "scbu.view", StoredCodename: "scbu.view_scburecord", Category: "specialty", Description: "Can view SCBU records", Model: "SCBURecord", IsCustom: false},
	{Key: "scbu.create", StoredCodename: "scbu.add_scburecord", Category: "specialty", Description: "Can create SCBU records", Model: "SCBURecord", IsCustom: false},
	{Key: "scbu.edit", StoredCodename: "scbu.change_scburecord", Category: "specialty", Description: "Can edit SCBU records", Model: "SCBURecord", IsCustom: false},
	{Key: "anc.view", StoredCodename: "anc.view_ancrecord", Category: "specialty", Description: "Can view ANC records", Model: "ANCRecord", IsCustom: false},
	{Key: "anc.create", StoredCodename: "anc.add_ancrecord", Category: "specialty", Description: "Can create ANC records", Model: "ANCRecord", IsCustom: false},
	{Key: "anc.edit", StoredCodename: "anc.change_ancrecord", Category: "specialty", Description: "Can edit ANC records", Model: "ANCRecord", IsCustom: false},
	{Key: "labor.view", StoredCodename: "labor.view_laborrecord", Category: "specialty", Description: "Can view labor records", Model: "LaborRecord", IsCustom: false},
	{Key: "labor.create", StoredCodename: "labor.add_laborrecord", Category: "specialty", Description: "Can create labor records", Model: "LaborRecord", IsCustom: false},
	{Key: "labor.edit", StoredCodename: "labor.change_laborrecord", Category: "specialty", Description: "Can edit labor records", Model: "LaborRecord", IsCustom: false},
	{Key: "icu.view", StoredCodename: "icu.view_icurecord", Category: "specialty", Description: "Can view ICU records", Model: "ICURecord", IsCustom: false},
	{Key: "icu.create", StoredCodename: "icu.add_icurecord", Category: "specialty", Description: "Can create ICU records", Model: "ICURecord", IsCustom: false},
	{Key: "icu.edit", StoredCodename: "icu.change_icurecord", Category: "specialty", Description: "Can edit ICU records", Model: "ICURecord", IsCustom: false},
	{Key: "family_planning.view", StoredCodename: "family_planning.view_familyplanningrecord", Category: "specialty", Description: "Can view family planning records", Model: "FamilyPlanningRecord", IsCustom: false},
	{Key: "family_planning.create", StoredCodename: "family_planning.add_familyplanningrecord", Category: "specialty", Description: "Can create family planning records", Model: "FamilyPlanningRecord", IsCustom: false},
	{Key: "family_planning.edit", StoredCodename: "family_planning.change_familyplanningrecord", Category: "specialty", Description: "Can edit family planning records", Model: "FamilyPlanningRecord", IsCustom: false},
	{Key: "gynae_emergency.view", StoredCodename: "gynae_emergency.view_gynaeemergencyrecord", Category: "specialty", Description: "Can view gynae emergency records", Model: "GynaeEmergencyRecord", IsCustom: false},
	{Key: "gynae_emergency.create", StoredCodename: "gynae_emergency.add_gynaeemergencyrecord", Category: "specialty", Description: "Can create gynae emergency records", Model: "GynaeEmergencyRecord", IsCustom: false},
	{Key: "gynae_emergency.edit", StoredCodename: "gynae_emergency.change_gynaeemergencyrecord", Category: "specialty", Description: "Can edit gynae emergency records", Model: "GynaeEmergencyRecord", IsCustom: false},
	{Key: "neurology.view", StoredCodename: "neurology.view_neurologyrecord", Category: "specialty", Description: "Can view neurology records", Model: "NeurologyRecord", IsCustom: false},
	{Key: "neurology.create", StoredCodename: "neurology.add_neurologyrecord", Category: "specialty", Description: "Can create neurology records", Model: "NeurologyRecord", IsCustom: false},
	{Key: "neurology.edit", StoredCodename: "neurology.change_neurologyrecord", Category: "specialty", Description: "Can edit neurology records", Model: "NeurologyRecord", IsCustom: false},
	{Key: "dermatology.view", StoredCodename: "dermatology.view_dermatologyrecord", Category: "specialty", Description: "Can view dermatology records", Model: "DermatologyRecord", IsCustom: false},
	{Key: "dermatology.create", StoredCodename: "dermatology.add_dermatologyrecord", Category: "specialty", Description: "Can create dermatology records", Model: "DermatologyRecord", IsCustom: false},
	{Key: "dermatology.edit", StoredCodename: "dermatology.change_dermatologyrecord", Category: "specialty", Description: "Can edit dermatology records", Model: "DermatologyRecord", IsCustom: false},
	{Key: "emergency.view", StoredCodename: "emergency.view_emergencyrecord", Category: "specialty", Description: "Can view emergency records", Model: "EmergencyRecord", IsCustom: false},
	{Key: "emergency.create", StoredCodename: "emergency.add_emergencyrecord", Category: "specialty", Description: "Can create emergency records", Model: "EmergencyRecord", IsCustom: false},
	{Key: "emergency.edit", StoredCodename: "emergency.change_emergencyrecord", Category: "specialty", Description: "Can edit emergency records", Model: "EmergencyRecord", IsCustom: false},
	{Key: "general_medicine.view", StoredCodename: "general_medicine.view_generalmedicinerecord", Category: "specialty", Description: "Can view general medicine records", Model: "GeneralMedicineRecord", IsCustom: false},
	{Key: "general_medicine.create", StoredCodename: "general_medicine.add_generalmedicinerecord", Category: "specialty", Description: "Can create general medicine records", Model: "GeneralMedicineRecord", IsCustom: false},
	{Key: "general_medicine.edit", StoredCodename: "general_medicine.change_generalmedicinerecord", Category: "specialty", Description: "Can edit general medicine records", Model: "GeneralMedicineRecord", IsCustom: false},
	{Key: "pediatrics.view", StoredCodename: "pediatrics.view_pediatricsrecord", Category: "specialty", Description: "Can view pediatrics records", Model: "PediatricsRecord", IsCustom: false},
	{Key: "pediatrics.create", StoredCodename: "pediatrics.add_pediatricsrecord", Category: "specialty", Description: "Can create pediatrics records", Model: "PediatricsRecord", IsCustom: false},
	{Key: "pediatrics.edit", StoredCodename: "pediatrics.change_pediatricsrecord", Category: "specialty", Description: "Can edit pediatrics records", Model: "PediatricsRecord", IsCustom: false},
	{Key: "surgery_module.view", StoredCodename: "surgery.view_surgeryrecord", Category: "specialty", Description: "Can view surgery records", Model: "SurgeryRecord", IsCustom: false},
	{Key: "surgery_module.create", StoredCodename: "surgery.add_surgeryrecord", Category: "specialty", Description: "Can create surgery records", Model: "SurgeryRecord", IsCustom: false},
	{Key: "surgery_module.edit", StoredCodename: "surgery.change_surgeryrecord", Category: "specialty", Description: "Can edit surgery records", Model: "SurgeryRecord", IsCustom: false},
	{Key: "cardiology.view", StoredCodename: "cardiology.view_cardiologyrecord", Category: "specialty", Description: "Can view cardiology records", Model: "CardiologyRecord", IsCustom: false},
	{Key: "cardiology.create", StoredCodename: "cardiology.add_cardiologyrecord", Category: "specialty", Description: "Can create cardiology records", Model: "CardiologyRecord", IsCustom: false},
	{Key: "cardiology.edit", StoredCodename: "cardiology.change_cardiologyrecord", Category: "specialty", Description: "Can edit cardiology records", Model: "CardiologyRecord", IsCustom: false},
	{Key: "orthopedics.view", StoredCodename: "orthopedics.view_orthopedicsrecord", Category: "specialty", Description: "Can view orthopedics records", Model: "OrthopedicsRecord", IsCustom: false},
	{Key: "orthopedics.create", StoredCodename: "orthopedics.add_orthopedicsrecord", Category: "specialty", Description: "Can create orthopedics records", Model: "OrthopedicsRecord", IsCustom: false},
	{Key: "orthopedics.edit", StoredCodename: "orthopedics.change_orthopedicsrecord", Category: "specialty", Description: "Can edit orthopedics records", Model: "OrthopedicsRecord", IsCustom: false},
}

var definitionIndex = buildDefinitionIndex()

func buildDefinitionIndex() map[string]Definition {
	idx := make(map[string]Definition, len(Definitions))
	for _, d := range Definitions {
		idx[d.Key] = d
	}
	return idx
}

// Lookup returns the definition for a permission key.
func Lookup(key string) (Definition, bool) {
	d, ok := definitionIndex[key]
	return d, ok
}

// StoredCodename translates a logical key into the stored codename, or
// returns the key itself when it is not in the catalog.
func StoredCodename(key string) string {
	if d, ok := definitionIndex[key]; ok {
		return d.StoredCodename
	}
	return key
}

// ByCategory groups the catalog for display and bulk management.
func ByCategory() map[string][]Definition {
	out := make(map[string][]Definition)
	for _, d := range Definitions {
		out[d.Category] = append(out[d.Category], d)
	}
	return out
}
