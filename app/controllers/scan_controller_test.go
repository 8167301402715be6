package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HexGuardSec/HexGuard/app/models"
	"github.com/HexGuardSec/HexGuard/internal/pkg/usercontext"
)

func sampleScan() *models.Scan {
	return &models.Scan{
		ID:         7,
		UUID:       "0b7ad9c2-55c8-4c27-9b43-2f1f4a9a2a10",
		UserID:     42,
		Title:      "Vault program review",
		InputKind:  models.ScanInputCode,
		SourceCode: "use anchor_lang::prelude::*;",
		Network:    "SOLANA",
		Visibility: models.VisibilityPublic,
		Status:     models.ScanStatusNoIssues,
		Score:      91,
		Severity:   models.SeverityLow,
		Summary:    "No findings.",
		Language:   "Rust",
		Tags:       models.JSONList[string]{"Rust", "SOLANA"},
		ShareLink:  "aB3dE9xZ",
	}
}

func TestScanResponseHidesSourceFromVisitors(t *testing.T) {
	scan := sampleScan()

	visitor := usercontext.UserContext{UserID: 99, IsLoggedIn: true}
	resp := scanResponse(scan, visitor)

	assert.NotContains(t, resp, "source_code")
	assert.NotContains(t, resp, "scanned_files")
	assert.Equal(t, scan.UUID, resp["id"])
	assert.Equal(t, scan.Summary, resp["analysis_summary"])
}

func TestScanResponseIncludesSourceForOwner(t *testing.T) {
	scan := sampleScan()

	owner := usercontext.UserContext{UserID: 42, IsLoggedIn: true}
	resp := scanResponse(scan, owner)

	assert.Equal(t, scan.SourceCode, resp["source_code"])
}

func TestScanResponseIncludesSourceForAdmin(t *testing.T) {
	scan := sampleScan()

	admin := usercontext.UserContext{UserID: 1, IsLoggedIn: true, IsAdmin: true}
	resp := scanResponse(scan, admin)

	assert.Equal(t, scan.SourceCode, resp["source_code"])
}

func TestScanSummaryShape(t *testing.T) {
	scan := sampleScan()
	summary := scanSummary(scan)

	assert.Equal(t, scan.UUID, summary["id"])
	assert.Equal(t, scan.ShareLink, summary["share_link"])
	assert.Equal(t, scan.Status, summary["status"])
	assert.NotContains(t, summary, "source_code")
	assert.NotContains(t, summary, "analysis_summary")
}
