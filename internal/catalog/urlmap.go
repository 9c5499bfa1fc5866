package catalog

import "strings"

// URLRule maps a URL namespace to the permission key required to
// enter it. A rule with an empty Permission means authentication is
// sufficient. Rules are evaluated in order; the first match wins.
type URLRule struct {
	Namespace  string
	Permission string
}

// AuthenticatedOnly marks namespaces where any logged-in user may
// enter.
const AuthenticatedOnly = ""

// URLRules maps each module namespace to its entry permission. Every
// path is matched against its first segment; API paths under /api/
// are matched against the first mapped segment after it.
var URLRules = []URLRule{
	// Core modules
	{"patients", "patients.view"},
	{"patient", "patients.view"},
	{"medical", "medical.view"},
	{"vitals", "vitals.view"},

	// Consultations
	{"consultations", "consultations.view"},
	{"consultation", "consultations.view"},
	{"referrals", "referrals.view"},
	{"referral", "referrals.view"},

	// Pharmacy
	{"pharmacy", "pharmacy.view"},
	{"dispensary", "pharmacy.view"},
	{"prescriptions", "prescriptions.view"},
	{"prescription", "prescriptions.view"},
	{"medication", "pharmacy.view"},
	{"bulk_store", "pharmacy.view"},
	{"active_store", "pharmacy.view"},

	// Laboratory
	{"laboratory", "lab.view"},
	{"lab", "lab.view"},
	{"lab_test", "lab.view"},
	{"test", "lab.view"},

	// Billing
	{"billing", "billing.view"},
	{"invoices", "billing.view"},
	{"invoice", "billing.view"},
	{"payments", "billing.view"},
	{"wallet", "wallet.view"},
	{"pharmacy_billing", "billing.view"},

	// Appointments
	{"appointments", "appointments.view"},
	{"appointment", "appointments.view"},

	// Inpatient and theatre
	{"inpatient", "inpatient.view"},
	{"admission", "inpatient.view"},
	{"wards", "inpatient.view"},
	{"beds", "inpatient.view"},
	{"theatre", "inpatient.view"},
	{"surgery", "inpatient.view"},
	{"surgeries", "inpatient.view"},
	{"icu", "inpatient.view"},

	// User management
	{"accounts", "users.view"},
	{"users", "users.view"},
	{"roles", "roles.view"},
	{"hr", "users.view"},
	{"doctors", "users.view"},

	// Reports
	{"reporting", "reports.view"},
	{"reports", "reports.view"},

	// Radiology
	{"radiology", "radiology.view"},
	{"radiology_test", "radiology.view"},

	// NHIA and retainership
	{"nhia", "patients.view"},
	{"retainership", "patients.view"},

	// Specialty modules
	{"dental", "consultations.view"},
	{"ophthalmic", "consultations.view"},
	{"ent", "consultations.view"},
	{"oncology", "consultations.view"},
	{"scbu", "consultations.view"},
	{"anc", "consultations.view"},
	{"labor", "consultations.view"},
	{"family_planning", "consultations.view"},
	{"gynae_emergency", "consultations.view"},
	{"neurology", "consultations.view"},
	{"dermatology", "consultations.view"},
	{"emergency", "consultations.view"},
	{"general_medicine", "consultations.view"},
	{"pediatrics", "consultations.view"},
	{"surgery_module", "consultations.view"},
	{"cardiology", "consultations.view"},
	{"orthopedics", "consultations.view"},

	// Desk office
	{"desk_office", "desk_office.view"},

	// Dashboard needs authentication only
	{"dashboard", AuthenticatedOnly},
}

// DefaultPublicURLs are path prefixes that bypass access control
// entirely. Deployments extend the list through configuration.
var DefaultPublicURLs = []string{
	"/accounts/login/",
	"/accounts/logout/",
	"/accounts/password-reset/",
	"/static/",
	"/media/",
	"/favicon.ico",
	"/api/auth/",
	"/api/v1/health/",
	"/health/",
	"/ping/",
	"/metrics",
}

var urlRuleIndex = buildURLRuleIndex()

func buildURLRuleIndex() map[string]int {
	idx := make(map[string]int, len(URLRules))
	for i, r := range URLRules {
		if _, dup := idx[r.Namespace]; !dup {
			idx[r.Namespace] = i
		}
	}
	return idx
}

// MatchURL resolves the permission required to access path. The first
// path segment is checked against the rule list; for /api/ paths the
// first mapped segment after "api" decides. Hyphenated segments match
// their underscored rule namespaces. The second return reports whether
// any rule matched at all.
func MatchURL(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return "", false
	}
	if i, ok := urlRuleIndex[normalizeSegment(parts[0])]; ok {
		return URLRules[i].Permission, true
	}
	isAPI := false
	for _, p := range parts {
		if p == "api" {
			isAPI = true
			break
		}
	}
	if isAPI {
		for _, p := range parts {
			if p == "api" {
				continue
			}
			if i, ok := urlRuleIndex[normalizeSegment(p)]; ok {
				return URLRules[i].Permission, true
			}
		}
	}
	return "", false
}

// normalizeSegment maps a URL path segment onto the rule namespace
// form. Routes use hyphens where rule namespaces use underscores.
func normalizeSegment(p string) string {
	return strings.ReplaceAll(p, "-", "_")
}

// IsPublicURL reports whether path matches one of the public
// prefixes. Extra holds deployment-configured additions.
func IsPublicURL(path string, extra []string) bool {
	for _, p := range DefaultPublicURLs {
		if strings.HasPrefix(path, p) || path == strings.TrimSuffix(p, "/") {
			return true
		}
	}
	for _, p := range extra {
		if strings.HasPrefix(path, p) || path == strings.TrimSuffix(p, "/") {
			return true
		}
	}
	return false
}
