package app

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInTestModeReadsEnvironmentOnce(t *testing.T) {
	t.Cleanup(func() { testModeOnce = sync.Once{} })

	testModeOnce = sync.Once{}
	t.Setenv(testModeEnv, "1")
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	assert.True(t, InTestMode(), "the flag is cached for the process")

	testModeOnce = sync.Once{}
	assert.False(t, InTestMode())
}
