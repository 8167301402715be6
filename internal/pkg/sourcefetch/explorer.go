package sourcefetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/HexGuardSec/HexGuard/app/models"
	"github.com/HexGuardSec/HexGuard/internal/pkg/env"
)

// ValidNetworks is the whitelist of supported chains.
var ValidNetworks = []string{"ETHEREUM", "BSC", "POLYGON", "AVAX", "SOLANA"}

// MaxAddressLength bounds submitted contract addresses.
const MaxAddressLength = 200

// ErrInvalidNetwork is returned for networks outside the whitelist.
var ErrInvalidNetwork = errors.New("invalid network")

// ErrInvalidAddress is returned for missing or oversized addresses.
var ErrInvalidAddress = errors.New("invalid address format")

// ContractSource is the fetched (or simulated) source of a deployed contract.
type ContractSource struct {
	SourceCode   string               `json:"source_code"`
	ContractName string               `json:"contract_name"`
	Language     string               `json:"language"`
	Files        []models.ScannedFile `json:"files"`
}

// ExplorerClient fetches verified contract source from Etherscan-style APIs.
type ExplorerClient struct {
	APIKey     string
	HTTPClient *http.Client
}

// NewExplorerClientFromEnv builds a client from environment configuration.
func NewExplorerClientFromEnv() *ExplorerClient {
	return &ExplorerClient{
		APIKey: strings.TrimSpace(env.GetEnv("ETHERSCAN_API_KEY", "")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// IsValidNetwork reports whether the network is on the whitelist.
func IsValidNetwork(network string) bool {
	for _, n := range ValidNetworks {
		if n == network {
			return true
		}
	}
	return false
}

// explorerBaseURL maps EVM networks to their Etherscan-compatible API.
func explorerBaseURL(network string) string {
	switch network {
	case "ETHEREUM":
		return "https://api.etherscan.io/api"
	case "BSC":
		return "https://api.bscscan.com/api"
	case "POLYGON":
		return "https://api.polygonscan.com/api"
	case "AVAX":
		return "https://api.snowtrace.io/api"
	default:
		return ""
	}
}

// FetchContractSource resolves the source of a deployed contract. Solana
// programs do not store source on chain, so they get a deterministic
// placeholder program; EVM networks go through the explorer API when a key
// is configured and fall back to a placeholder otherwise.
func (c *ExplorerClient) FetchContractSource(ctx context.Context, network, address string) (*ContractSource, error) {
	if network != "" && !IsValidNetwork(network) {
		return nil, fmt.Errorf("%w: must be one of %s", ErrInvalidNetwork, strings.Join(ValidNetworks, ", "))
	}
	addr := strings.TrimSpace(address)
	if addr == "" || len(addr) > MaxAddressLength {
		return nil, ErrInvalidAddress
	}

	if network == "SOLANA" {
		return solanaPlaceholder(addr), nil
	}

	baseURL := explorerBaseURL(network)
	if baseURL == "" || c.APIKey == "" {
		return &ContractSource{
			SourceCode: fmt.Sprintf("// Explorer API key missing or network not supported for simulation.\n// Contract: %s\n// Network: %s", addr, network),
			Language:   "Solidity",
		}, nil
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("module", "contract")
	q.Set("action", "getsourcecode")
	q.Set("address", addr)
	q.Set("apikey", c.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("explorer request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var raw struct {
		Status string `json:"status"`
		Result []struct {
			SourceCode   string `json:"SourceCode"`
			ContractName string `json:"ContractName"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if raw.Status != "1" || len(raw.Result) == 0 {
		return &ContractSource{Language: "Unknown"}, nil
	}

	out := &ContractSource{
		SourceCode:   raw.Result[0].SourceCode,
		ContractName: raw.Result[0].ContractName,
		Language:     "Solidity",
	}
	out.Files = parseVerifiedSources(out.SourceCode)
	return out, nil
}

// parseVerifiedSources extracts per-file contents from a verified source
// blob. Explorers deliver either plain source, a standard JSON input, or the
// Etherscan double-bracket variant of it.
func parseVerifiedSources(sourceCode string) []models.ScannedFile {
	payload := sourceCode
	if strings.HasPrefix(payload, "{{") && strings.HasSuffix(payload, "}}") {
		payload = payload[1 : len(payload)-1]
	} else if !strings.HasPrefix(payload, "{") {
		return nil
	}

	var parsed struct {
		Sources map[string]struct {
			Content string `json:"content"`
		} `json:"sources"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil
	}

	files := make([]models.ScannedFile, 0, len(parsed.Sources))
	for path, src := range parsed.Sources {
		files = append(files, models.ScannedFile{
			Name:    path,
			Content: src.Content,
			Size:    int64(len(src.Content)),
		})
	}
	return files
}

// solanaPlaceholder yields a deterministic Anchor program stub for a Solana
// address.
func solanaPlaceholder(address string) *ContractSource {
	source := fmt.Sprintf(`// Fetching source for Solana program: %s
// (Simulation: In standard Solana apps, source is not on-chain)

use anchor_lang::prelude::*;

declare_id!("%s");

#[program]
pub mod my_program {
    use super::*;
    pub fn initialize(ctx: Context<Initialize>) -> Result<()> {
        Ok(())
    }
}`, address, address)

	return &ContractSource{
		SourceCode:   source,
		ContractName: "SolanaProgram",
		Language:     "Rust",
	}
}
