package authorization

import (
	"github.com/medhq/hms-core/internal/model"
)

// RecordInfo describes one clinical record kind that can carry an
// authorization code.
type RecordInfo struct {
	Kind        string
	Table       string
	DisplayName string
	ServiceType string
}

// SupportedRecords is the registry of record kinds the authorization
// workflow understands. Specialty kinds share the specialty_records
// table and are distinguished by row kind.
var SupportedRecords = []RecordInfo{
	{Kind: "consultation", Table: "consultations", DisplayName: "Consultation", ServiceType: "general"},
	{Kind: "referral", Table: "referrals", DisplayName: "Referral", ServiceType: "specialty"},
	{Kind: "prescription", Table: "prescriptions", DisplayName: "Prescription", ServiceType: "medication"},
	{Kind: "test_request", Table: "test_requests", DisplayName: "Test Request", ServiceType: "laboratory"},
	{Kind: "radiology_order", Table: "radiology_orders", DisplayName: "Radiology Order", ServiceType: "radiology"},
	{Kind: "surgery", Table: "surgeries", DisplayName: "Surgery", ServiceType: "surgery"},
	{Kind: model.SpecialtyDental, Table: "specialty_records", DisplayName: "Dental Record", ServiceType: "dental"},
	{Kind: model.SpecialtyOphthalmic, Table: "specialty_records", DisplayName: "Ophthalmic Record", ServiceType: "ophthalmic"},
	{Kind: model.SpecialtyENT, Table: "specialty_records", DisplayName: "ENT Record", ServiceType: "ent"},
	{Kind: model.SpecialtyOncology, Table: "specialty_records", DisplayName: "Oncology Record", ServiceType: "oncology"},
	{Kind: model.SpecialtySCBU, Table: "specialty_records", DisplayName: "SCBU Record", ServiceType: "general"},
	{Kind: model.SpecialtyANC, Table: "specialty_records", DisplayName: "ANC Record", ServiceType: "general"},
	{Kind: model.SpecialtyLabor, Table: "specialty_records", DisplayName: "Labor Record", ServiceType: "general"},
	{Kind: model.SpecialtyICU, Table: "specialty_records", DisplayName: "ICU Record", ServiceType: "general"},
	{Kind: model.SpecialtyFamilyPlanning, Table: "specialty_records", DisplayName: "Family Planning Record", ServiceType: "general"},
	{Kind: model.SpecialtyGynaeEmergency, Table: "specialty_records", DisplayName: "Gynae Emergency Record", ServiceType: "general"},
}

var recordIndex = buildRecordIndex()

func buildRecordIndex() map[string]RecordInfo {
	idx := make(map[string]RecordInfo, len(SupportedRecords))
	for _, info := range SupportedRecords {
		idx[info.Kind] = info
	}
	return idx
}

// RecordInfoFor returns the registry entry for a kind.
func RecordInfoFor(kind string) (RecordInfo, bool) {
	info, ok := recordIndex[kind]
	return info, ok
}

func isSpecialtyKind(kind string) bool {
	info, ok := recordIndex[kind]
	return ok && info.Table == "specialty_records"
}
