package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHere(t *testing.T) {
	loc := Here()
	require.NotNil(t, loc)
	assert.Equal(t, "output/source_test.go", loc.File)
	assert.Equal(t, 11, loc.Line)
}
