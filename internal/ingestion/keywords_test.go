package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywords(t *testing.T) {
	got := Keywords("Senior Go engineer with Kubernetes, PostgreSQL and C++. Go experience required; CI/CD a plus. 2024")
	assert.Equal(t, []string{"senior", "go", "engineer", "kubernetes", "postgresql", "c++", "ci/cd"}, got)
}

func TestKeywords_KeepsDottedTerms(t *testing.T) {
	got := Keywords("Node.js, C# and .NET.")
	assert.Equal(t, []string{"node.js", "c#", "net"}, got)
}

func TestContainsKeyword(t *testing.T) {
	assert.True(t, ContainsKeyword("Built services in Go and gRPC", "GRPC"))
	assert.False(t, ContainsKeyword("Built services in Golang", "go"))
}
