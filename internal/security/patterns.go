package security

import (
	"fmt"
	"regexp"
)

// defaultPatternSources are the built-in forbidden patterns. They target
// markup injection, SQL union probing, shell command injection, and path
// traversal in string parameter values.
var defaultPatternSources = []string{
	`(?i)<script`,
	`(?i)\bunion\b.*\bselect\b`,
	`(?i);\s*(rm|curl|wget|bash|sh)\b`,
	`(?i)\bdrop\s+table\b`,
	`\$\(`,
	"`",
	`\.\./`,
}

// defaultPatterns compiles the built-in pattern set.
func defaultPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(defaultPatternSources))
	for i, src := range defaultPatternSources {
		patterns[i] = regexp.MustCompile(src)
	}
	return patterns
}

// CompilePatterns compiles a configured pattern list, rejecting invalid
// expressions up front so a bad config fails at startup, not per request.
func CompilePatterns(sources []string) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(sources))
	for _, src := range sources {
		p, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("invalid forbidden pattern %q: %w", src, err)
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}
