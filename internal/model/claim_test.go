package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalCents(t *testing.T) {
	c := &Claim{HoursWorked: 10, RateCents: 35_000}
	assert.Equal(t, int64(350_000), c.TotalCents())

	c = &Claim{HoursWorked: 180, RateCents: 200_000}
	assert.Equal(t, int64(36_000_000), c.TotalCents())

	c = &Claim{}
	assert.Zero(t, c.TotalCents())
}

func TestTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusVerified.Terminal())
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
}

func TestValidClaimStatus(t *testing.T) {
	for _, s := range []string{"PENDING", "VERIFIED", "APPROVED", "REJECTED"} {
		assert.True(t, ValidClaimStatus(s))
	}
	assert.False(t, ValidClaimStatus("pending"))
	assert.False(t, ValidClaimStatus(""))
	assert.False(t, ValidClaimStatus("DRAFT"))
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{"LECTURER", "COORDINATOR", "MANAGER", "HR"} {
		assert.True(t, ValidRole(r))
	}
	assert.False(t, ValidRole("ADMIN"))
	assert.False(t, ValidRole("lecturer"))
}
