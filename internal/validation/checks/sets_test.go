package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainSetContains(t *testing.T) {
	set := NewDomainSet(DefaultDisposableDomains, "trashmail.com")

	assert.True(t, set.Contains("mailinator.com"))
	assert.True(t, set.Contains("MAILINATOR.COM"))
	assert.True(t, set.Contains(" trashmail.com "))
	assert.False(t, set.Contains("gmail.com"))
	assert.False(t, set.Contains(""))
}

func TestDomainSetIgnoresEmptyEntries(t *testing.T) {
	set := NewDomainSet([]string{"a.com", "", "  "}, "")
	assert.Equal(t, 1, set.Len())
}
