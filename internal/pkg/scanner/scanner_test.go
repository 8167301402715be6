package scanner

import (
	"strings"
	"testing"

	"github.com/HexGuardSec/HexGuard/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeAddress(t *testing.T) {
	addr := "0x1234567890abcdef1234567890abcdef12345678"
	in := Input{Kind: models.ScanInputAddress, Content: addr, Network: "ETHEREUM"}

	res, err := Analyze(in)
	require.NoError(t, err)

	entropy := len(addr) % 100
	assert.Equal(t, 85+(entropy%15), res.Score)
	assert.Equal(t, "Solidity", res.Language)
	assert.Contains(t, res.Summary, addr[:10])
	assert.Contains(t, res.Tags, "ETHEREUM")
	assert.GreaterOrEqual(t, res.Score, 85)
	assert.Equal(t, models.ScanStatusNoIssues, res.Status)
}

func TestAnalyzeAddressSolanaIsRust(t *testing.T) {
	in := Input{Kind: models.ScanInputAddress, Content: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", Network: "SOLANA"}

	res, err := Analyze(in)
	require.NoError(t, err)
	assert.Equal(t, "Rust", res.Language)
}

func TestAnalyzeShortCodeSnippet(t *testing.T) {
	in := Input{Kind: models.ScanInputCode, Content: "contract A {}"}

	res, err := Analyze(in)
	require.NoError(t, err)
	assert.Equal(t, 45, res.Score)
	assert.Equal(t, models.SeverityHigh, res.Severity)
	assert.Equal(t, models.ScanStatusIssues, res.Status)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "Incomplete Implementation", res.Findings[0].Name)
}

func TestAnalyzeCodeLanguageDetection(t *testing.T) {
	rust := strings.Repeat("use anchor_lang::prelude::*; ", 5)
	res, err := Analyze(Input{Kind: models.ScanInputCode, Content: rust})
	require.NoError(t, err)
	assert.Equal(t, "Rust", res.Language)

	sol := strings.Repeat("pragma solidity ^0.8.0; contract Token {} ", 5)
	res, err = Analyze(Input{Kind: models.ScanInputCode, Content: sol})
	require.NoError(t, err)
	assert.Equal(t, "Solidity", res.Language)
}

func TestAnalyzeFiles(t *testing.T) {
	files := []models.ScannedFile{
		{Name: "lib.rs", Content: "fn main() {}"},
		{Name: "Cargo.toml", Content: "[package]"},
		{Name: "state.rs", Content: "pub struct State;"},
	}
	in := Input{Kind: models.ScanInputFiles, Files: files}

	res, err := Analyze(in)
	require.NoError(t, err)
	assert.Equal(t, 75+(len(files)%20), res.Score)
	assert.Equal(t, "Rust", res.Language)
	assert.Contains(t, res.Summary, "3 uploaded files")
	assert.Empty(t, res.Findings)
}

func TestAnalyzeSingleFileFlagsRisk(t *testing.T) {
	in := Input{Kind: models.ScanInputFiles, Files: []models.ScannedFile{{Name: "Token.sol"}}}

	res, err := Analyze(in)
	require.NoError(t, err)
	assert.Equal(t, "Solidity", res.Language)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "Single File Risk", res.Findings[0].Name)
}

func TestAnalyzeGitHub(t *testing.T) {
	content := strings.Repeat("x", 175) // entropy 75
	in := Input{Kind: models.ScanInputGitHub, Content: content}

	res, err := Analyze(in)
	require.NoError(t, err)
	assert.Equal(t, 70+(75%25), res.Score)
	assert.Equal(t, "Rust", res.Language)
	require.Len(t, res.Findings, 2)
	assert.Equal(t, "Dependency Vulnerability", res.Findings[1].Name)
}

func TestAnalyzeContentTooLarge(t *testing.T) {
	in := Input{Kind: models.ScanInputCode, Content: strings.Repeat("a", MaxContentSize+1)}

	_, err := Analyze(in)
	assert.ErrorIs(t, err, ErrContentTooLarge)
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	in := Input{Kind: models.ScanInputCode, Content: strings.Repeat("pragma solidity; ", 10)}

	first, err := Analyze(in)
	require.NoError(t, err)
	second, err := Analyze(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAnalyzeAlwaysTags(t *testing.T) {
	res, err := Analyze(Input{Kind: models.ScanInputAddress, Content: "0xabc"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Tags)
}
