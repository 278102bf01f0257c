// Package release derives deployment names from release tags: the container
// image reference, the service name and the revision name.
package release

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrTagMismatch is returned when a git tag does not name a release of the package.
var ErrTagMismatch = errors.New("tag does not match release pattern")

var versionPattern = `([0-9]+(?:\.[0-9]+)*)`

// =============================================================================
// Release Tags
// =============================================================================

// TagPattern returns the pattern release tags of packageName must match.
// Pattern: ^{packageName}@{version}$
func TagPattern(packageName string) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(packageName) + "@" + versionPattern + "$")
}

// ParseTag extracts the version from a release tag.
//
// Example:
//
//	ParseTag("@acme/next", "@acme/next@1.4.0") // returns "1.4.0", nil
//	ParseTag("@acme/next", "other@1.4.0")      // returns "", ErrTagMismatch
func ParseTag(packageName, tag string) (string, error) {
	m := TagPattern(packageName).FindStringSubmatch(tag)
	if m == nil {
		return "", fmt.Errorf("%w: %q is not a release of %q", ErrTagMismatch, tag, packageName)
	}
	return m[1], nil
}

// =============================================================================
// Resource Naming Functions
// =============================================================================

// ImageReference generates the container image reference for a release.
// Pattern: {registry}/{project}/{image}:v{version}
//
// Example:
//
//	ImageReference("eu.gcr.io", "acme", "next", "1.4.0") // returns "eu.gcr.io/acme/next:v1.4.0"
func ImageReference(registry, project, image, version string) string {
	return fmt.Sprintf("%s/%s/%s:v%s", strings.TrimSuffix(registry, "/"), project, image, version)
}

// ServiceName generates the serving platform service name.
// Pattern: {project}-{env}-{component}, slugified.
//
// Example:
//
//	ServiceName("Acme Shop", "staging", "frontend") // returns "acme-shop-staging-frontend"
func ServiceName(project, env, component string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{project, env, component} {
		if s := Slugify(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "-")
}

// RevisionName generates the revision name a release is deployed under.
// Pattern: {service}-v{version with dots replaced by dashes}
//
// Example:
//
//	RevisionName("acme-prod-frontend", "1.4.0") // returns "acme-prod-frontend-v1-4-0"
func RevisionName(service, version string) string {
	return fmt.Sprintf("%s-v%s", service, strings.ReplaceAll(version, ".", "-"))
}

// Slugify converts a name to a lowercase, DNS-label-safe slug.
//
// The transformation rules are:
//   - Lowercase letters (a-z), digits (0-9) and hyphens are kept
//   - Uppercase letters (A-Z) are converted to lowercase
//   - Spaces, dots, slashes and underscores become hyphens
//   - All other characters are removed
//   - Leading and trailing hyphens are trimmed
//
// Example:
//
//	Slugify("Hello World") // returns "hello-world"
//	Slugify("@acme/next")  // returns "acme-next"
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + 32)
		case r == ' ' || r == '.' || r == '/' || r == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
