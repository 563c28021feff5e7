package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelocKindString(t *testing.T) {
	assert.Equal(t, "ABS", R_ABS.String())
	assert.Equal(t, "GOTTPOFF", R_GOTTPOFF.String())
	assert.Equal(t, "TLSGD_RELAX_LE", R_TLSGD_RELAX_LE.String())
	assert.Equal(t, "UNKNOWN", RelocKind(999).String())
}
