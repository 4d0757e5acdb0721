package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegexQuoteMeta(t *testing.T) {
	assert.Equal(t, "2025-01-01_", regexQuoteMeta("2025-01-01_"))
	assert.Equal(t, "SUB-2025-01-01_", regexQuoteMeta("SUB-2025-01-01_"))
	assert.Equal(t, `a\.b\*c`, regexQuoteMeta("a.b*c"))
	assert.Equal(t, `\^\$\(\)`, regexQuoteMeta("^$()"))
	assert.Equal(t, "", regexQuoteMeta(""))
}
