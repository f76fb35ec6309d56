package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirst(t *testing.T) {
	t.Setenv("VENTECH_LOG_FORMAT", "")
	t.Setenv("LOG_FORMAT", "console")
	assert.Equal(t, "console", First("json", "VENTECH_LOG_FORMAT", "LOG_FORMAT"))

	t.Setenv("VENTECH_LOG_FORMAT", "json")
	assert.Equal(t, "json", First("console", "VENTECH_LOG_FORMAT", "LOG_FORMAT"))

	assert.Equal(t, "fallback", First("fallback"))
}
