package catalog

import "fmt"

// Validate checks the structural integrity of the static catalog and
// reports every finding at once. Errors are fatal inconsistencies:
// empty or duplicate keys, missing codenames or categories, duplicate
// URL namespaces, URL rules pointing at undefined permissions. A role
// referencing an undefined permission key is a warning, so a catalog
// edit that retires a permission does not brick startup. ok is true
// when there are no errors.
func Validate() (ok bool, errs []string, warnings []string) {
	seen := make(map[string]bool, len(Definitions))
	for _, d := range Definitions {
		if d.Key == "" {
			errs = append(errs, fmt.Sprintf("permission with empty key (codename %q)", d.StoredCodename))
			continue
		}
		if seen[d.Key] {
			errs = append(errs, fmt.Sprintf("duplicate permission key %q", d.Key))
		}
		seen[d.Key] = true
		if d.StoredCodename == "" {
			errs = append(errs, fmt.Sprintf("permission %q has no stored codename", d.Key))
		}
		if d.Category == "" {
			errs = append(errs, fmt.Sprintf("permission %q has no category", d.Key))
		}
	}

	roleSeen := make(map[string]bool, len(Roles))
	for _, r := range Roles {
		if roleSeen[r.Name] {
			errs = append(errs, fmt.Sprintf("duplicate role %q", r.Name))
		}
		roleSeen[r.Name] = true
		for _, p := range r.Permissions {
			if !seen[p] {
				warnings = append(warnings, fmt.Sprintf("role %q references undefined permission %q", r.Name, p))
			}
		}
	}

	nsSeen := make(map[string]bool, len(URLRules))
	for _, rule := range URLRules {
		if nsSeen[rule.Namespace] {
			errs = append(errs, fmt.Sprintf("duplicate URL namespace %q", rule.Namespace))
		}
		nsSeen[rule.Namespace] = true
		if rule.Permission != AuthenticatedOnly && !seen[rule.Permission] {
			errs = append(errs, fmt.Sprintf("URL namespace %q references undefined permission %q", rule.Namespace, rule.Permission))
		}
	}
	return len(errs) == 0, errs, warnings
}
