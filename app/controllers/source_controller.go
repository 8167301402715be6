package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/HexGuardSec/HexGuard/internal/pkg/sourcefetch"
	"github.com/HexGuardSec/HexGuard/internal/pkg/usercontext"
)

type fetchContractRequest struct {
	Network string `json:"network"`
	Address string `json:"address"`
}

type fetchGitHubRequest struct {
	RepoURL string `json:"repo_url"`
}

// HandleFetchContract resolves verified source for a deployed contract so
// the client can prefill an ADDRESS submission.
func HandleFetchContract(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Login required")
	}

	var req fetchContractRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client := sourcefetch.NewExplorerClientFromEnv()
	source, err := client.FetchContractSource(ctx, req.Network, req.Address)
	if err != nil {
		if errors.Is(err, sourcefetch.ErrInvalidNetwork) || errors.Is(err, sourcefetch.ErrInvalidAddress) {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
		}
		log.Errorf("[SourceFetch] Contract fetch failed for %s on %s: %v", req.Address, req.Network, err)
		return jsonError(c, fiber.StatusBadGateway, "fetch_failed", "Could not fetch contract source")
	}

	return c.JSON(source)
}

// HandleFetchGitHub downloads the relevant files of a public repository so
// the client can prefill a GITHUB submission.
func HandleFetchGitHub(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Login required")
	}

	var req fetchGitHubRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client := sourcefetch.NewGitHubClientFromEnv()
	result, err := client.FetchRepository(ctx, req.RepoURL)
	if err != nil {
		if errors.Is(err, sourcefetch.ErrInvalidRepoURL) {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
		}
		log.Errorf("[SourceFetch] Repository fetch failed for %s: %v", req.RepoURL, err)
		return jsonError(c, fiber.StatusBadGateway, "fetch_failed", "Could not fetch repository")
	}

	return c.JSON(result)
}
