package sourcefetch

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"plain repo", "https://github.com/coral-xyz/anchor", "coral-xyz", "anchor", false},
		{"with tree path", "https://github.com/owner/repo/tree/main/programs", "owner", "repo", false},
		{"dots and dashes", "https://github.com/a-b.c/d_e.f", "a-b.c", "d_e.f", false},
		{"http rejected", "http://github.com/owner/repo", "", "", true},
		{"other host rejected", "https://gitlab.com/owner/repo", "", "", true},
		{"missing repo", "https://github.com/owner", "", "", true},
		{"empty", "", "", "", true},
		{"too long", "https://github.com/owner/" + strings.Repeat("r", MaxRepoURLLength), "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRepoURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRepoURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
		})
	}
}

func TestIsRelevantFile(t *testing.T) {
	assert.True(t, IsRelevantFile("programs/vault/src/lib.rs"))
	assert.True(t, IsRelevantFile("contracts/Token.sol"))
	assert.True(t, IsRelevantFile("Cargo.toml"))
	assert.False(t, IsRelevantFile("README.md"))
	assert.False(t, IsRelevantFile("assets/logo.png"))
}

func TestIsValidNetwork(t *testing.T) {
	for _, n := range ValidNetworks {
		assert.True(t, IsValidNetwork(n))
	}
	assert.False(t, IsValidNetwork("DOGECHAIN"))
	assert.False(t, IsValidNetwork("ethereum"))
}

func TestFetchContractSourceSolanaPlaceholder(t *testing.T) {
	c := &ExplorerClient{}
	address := "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

	src, err := c.FetchContractSource(context.Background(), "SOLANA", address)
	require.NoError(t, err)
	assert.Equal(t, "Rust", src.Language)
	assert.Equal(t, "SolanaProgram", src.ContractName)
	assert.Contains(t, src.SourceCode, "declare_id!(\""+address+"\")")
}

func TestFetchContractSourceWithoutKeyFallsBack(t *testing.T) {
	c := &ExplorerClient{}

	src, err := c.FetchContractSource(context.Background(), "ETHEREUM", "0xdeadbeef")
	require.NoError(t, err)
	assert.Equal(t, "Solidity", src.Language)
	assert.Contains(t, src.SourceCode, "0xdeadbeef")
}

func TestFetchContractSourceValidation(t *testing.T) {
	c := &ExplorerClient{}
	ctx := context.Background()

	_, err := c.FetchContractSource(ctx, "NEARNET", "0xabc")
	assert.ErrorIs(t, err, ErrInvalidNetwork)

	_, err = c.FetchContractSource(ctx, "ETHEREUM", "")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = c.FetchContractSource(ctx, "ETHEREUM", strings.Repeat("0", MaxAddressLength+1))
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestParseVerifiedSources(t *testing.T) {
	standard := `{"language":"Solidity","sources":{"contracts/A.sol":{"content":"contract A {}"},"contracts/B.sol":{"content":"contract B {}"}}}`
	files := parseVerifiedSources(standard)
	assert.Len(t, files, 2)

	doubleBracket := "{" + standard + "}"
	files = parseVerifiedSources(doubleBracket)
	assert.Len(t, files, 2)

	assert.Nil(t, parseVerifiedSources("pragma solidity ^0.8.0; contract A {}"))
	assert.Nil(t, parseVerifiedSources("{not json"))
}
