package validate

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/honorscan/internal/model"
)

// AuthorityClassifier ranks cited web pages into authority tiers
type AuthorityClassifier struct {
	domainMap    map[string]string
	primary      []string
	secondary    []string
	pathPatterns []*compiledPattern
}

type compiledPattern struct {
	pattern *regexp.Regexp
	tier    model.SourceTier
}

// NewAuthorityClassifier creates a classifier from cfg. A nil cfg uses the
// built-in domain lists. Path patterns that fail to compile are ignored.
func NewAuthorityClassifier(cfg *model.AuthorityConfig) *AuthorityClassifier {
	if cfg == nil {
		cfg = &model.DefaultConfig().Authority
	}

	c := &AuthorityClassifier{
		domainMap: make(map[string]string, len(cfg.DomainMap)),
		primary:   normalizeDomains(cfg.PrimaryDomains),
		secondary: normalizeDomains(cfg.SecondaryDomains),
	}
	for host, tier := range cfg.DomainMap {
		c.domainMap[strings.ToLower(host)] = tier
	}
	for _, pp := range cfg.PathPatterns {
		if re, err := regexp.Compile(pp.Pattern); err == nil {
			c.pathPatterns = append(c.pathPatterns, &compiledPattern{pattern: re, tier: ParseTier(pp.Tier)})
		}
	}
	return c
}

// Classify returns the tier of rawURL. Unparseable URLs are tertiary.
func (a *AuthorityClassifier) Classify(rawURL string) model.SourceTier {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Hostname() == "" {
		return model.TierTertiary
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")

	if tier, ok := a.domainMap[host]; ok {
		return ParseTier(tier)
	}
	if matchesDomain(host, a.primary) {
		return model.TierPrimary
	}
	if matchesDomain(host, a.secondary) {
		return model.TierSecondary
	}
	for _, cp := range a.pathPatterns {
		if cp.pattern.MatchString(parsed.Path) {
			return cp.tier
		}
	}

	// Government and court sites outside the configured lists
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".gov.uk") || strings.HasSuffix(host, ".courts.gov") {
		return model.TierPrimary
	}
	return model.TierTertiary
}

// Rank classifies every URL, dropping blanks and duplicates, in input order
func (a *AuthorityClassifier) Rank(urls []string) []model.SourceRef {
	seen := make(map[string]bool, len(urls))
	var refs []model.SourceRef
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		refs = append(refs, model.SourceRef{URL: u, Tier: a.Classify(u)})
	}
	return refs
}

// ParseTier converts a tier name or number; anything unknown is tertiary
func ParseTier(tier string) model.SourceTier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "primary", "1":
		return model.TierPrimary
	case "secondary", "2":
		return model.TierSecondary
	default:
		return model.TierTertiary
	}
}

// matchesDomain reports whether host is one of domains or a subdomain of one
func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
