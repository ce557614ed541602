package sofizpay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssetMatches(t *testing.T) {
	asset := Asset{Code: DefaultAssetCode, Issuer: DefaultAssetIssuer}

	assert.True(t, asset.Matches(DefaultAssetCode, DefaultAssetIssuer))
	assert.False(t, asset.Matches("USDC", DefaultAssetIssuer))
	assert.False(t, asset.Matches(DefaultAssetCode, "GOTHERISSUER"))
	assert.False(t, asset.Matches("", ""), "native asset fields never match an issued asset")
}

func TestCheckIntervalBounds(t *testing.T) {
	assert.Less(t, MinCheckInterval, MaxCheckInterval)
	assert.Equal(t, 28, MaxMemoBytes)
}
