package cosign_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iov-one/cosign"
)

func TestVersion(t *testing.T) {
	cosign.GitCommit = ""
	assert.Equal(t, "v0.1.0-dev", cosign.Version())

	cosign.GitCommit = "12345678"
	assert.Equal(t, "v0.1.0-dev 12345678", cosign.Version())
	cosign.GitCommit = ""
}
