package sqlgen

import (
	"fmt"
	"strings"
)

// Dialect compiles statements for one SQL engine family.
type Dialect interface {
	// Name returns the provider name, e.g. "mysql".
	Name() string
	// Compile renders s into SQL text with :name placeholders left in place.
	Compile(s Statement) (string, error)
	// QuoteIdentifier formats a possibly qualified name for this dialect.
	QuoteIdentifier(name string) string
	// Placeholder returns the positional parameter marker.
	Placeholder() string
}

// NewDialect returns the dialect for provider.
func NewDialect(provider string) (Dialect, error) {
	switch strings.ToLower(provider) {
	case "", "mysql", "mariadb":
		return MySQL{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, provider)
	}
}
