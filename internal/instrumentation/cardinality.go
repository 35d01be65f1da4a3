package instrumentation

import (
	"sort"
	"strings"
)

// ExtractEmailDomain returns the domain part of an email address, or
// "unknown". Logs and metrics use it instead of full addresses.
//
//	ExtractEmailDomain("jane@example.com")  // "example.com"
//	ExtractEmailDomain("invalid")           // "unknown"
func ExtractEmailDomain(email string) string {
	_, domain, found := strings.Cut(email, "@")
	if !found || domain == "" || strings.Contains(domain, "@") {
		return "unknown"
	}
	return strings.ToLower(domain)
}

// AttendeeDomains returns the sorted, de-duplicated domains of emails.
func AttendeeDomains(emails []string) []string {
	if len(emails) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(emails))
	domains := make([]string, 0, len(emails))
	for _, e := range emails {
		d := ExtractEmailDomain(e)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}
