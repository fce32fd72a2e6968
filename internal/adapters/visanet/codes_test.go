package visanet_test

import (
	"testing"

	"github.com/nimble-gus/topcell2-sub002/internal/adapters/visanet"
	"github.com/stretchr/testify/assert"
)

func TestIsApprovedCode_OnlyTwoApprovalCodes(t *testing.T) {
	assert.True(t, visanet.IsApprovedCode("00"))
	assert.True(t, visanet.IsApprovedCode("10"))

	for _, code := range []string{"05", "12", "14", "51", "54", "59", "91", "96", "3D", "", "99", "ZZ", "0", "000", "1"} {
		assert.False(t, visanet.IsApprovedCode(code), "code %q must not be approved", code)
	}
}

func TestClassify_UnknownCodeIsDecline(t *testing.T) {
	info := visanet.Classify("77")
	assert.False(t, info.Approved)
	assert.False(t, info.StepUp)
	assert.Equal(t, "77", info.Code)
	assert.Equal(t, "UNKNOWN", info.Display)
}

func TestClassify_MissingCodeIsDecline(t *testing.T) {
	info := visanet.Classify("")
	assert.False(t, info.Approved)
	assert.False(t, info.StepUp)
}

func TestClassify_StepUp(t *testing.T) {
	info := visanet.Classify("3D")
	assert.True(t, info.StepUp)
	assert.False(t, info.Approved)
}

func TestClassify_RetriableDeclines(t *testing.T) {
	assert.True(t, visanet.Classify("51").Retriable)
	assert.True(t, visanet.Classify("91").Retriable)
	assert.False(t, visanet.Classify("05").Retriable)
	assert.False(t, visanet.Classify("54").Retriable)
}
