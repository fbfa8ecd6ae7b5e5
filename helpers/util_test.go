package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetField(t *testing.T) {
	field, err := GetField("  1,234 reviews ", 0)
	assert.NoError(t, err)
	assert.Equal(t, "1,234", field)

	field, err = GetField("1,234 reviews", 1)
	assert.NoError(t, err)
	assert.Equal(t, "reviews", field)

	_, err = GetField("   ", 0)
	assert.Error(t, err)

	_, err = GetField("one", -1)
	assert.Error(t, err)
}

func TestStripThousands(t *testing.T) {
	assert.Equal(t, "1234567", StripThousands("1,234,567"))
	assert.Equal(t, "12", StripThousands("12"))
	assert.Equal(t, "1234", StripThousands("1 234"))
}
