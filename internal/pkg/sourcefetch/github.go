package sourcefetch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/HexGuardSec/HexGuard/app/models"
	"github.com/HexGuardSec/HexGuard/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
)

const defaultGitHubAPIBaseURL = "https://api.github.com"

// MaxRepoURLLength bounds submitted repository URLs.
const MaxRepoURLLength = 500

// maxFilesPerFetch caps how many blobs get downloaded per repository.
const maxFilesPerFetch = 30

// RelevantExtensions selects the contract and build files worth analyzing.
var RelevantExtensions = []string{".sol", ".rs", ".vy", ".move", ".toml", ".json", ".js", ".ts", ".py"}

// ErrInvalidRepoURL is returned for URLs outside github.com/owner/repo.
var ErrInvalidRepoURL = errors.New("invalid GitHub URL, must be https://github.com/owner/repo")

var repoURLPattern = regexp.MustCompile(`^https://github\.com/([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+)`)

// RepoFetchResult holds the relevant files of a repository's default branch.
type RepoFetchResult struct {
	Owner  string               `json:"owner"`
	Repo   string               `json:"repo"`
	Branch string               `json:"branch"`
	Files  []models.ScannedFile `json:"files"`
}

// GitHubClient fetches repository trees via the GitHub REST API.
type GitHubClient struct {
	Token      string
	APIBaseURL string
	HTTPClient *http.Client
}

// NewGitHubClientFromEnv builds a client from environment configuration.
func NewGitHubClientFromEnv() *GitHubClient {
	return &GitHubClient{
		Token:      strings.TrimSpace(env.GetEnv("GITHUB_TOKEN", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("GITHUB_API_BASE_URL", defaultGitHubAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ParseRepoURL extracts owner and repository from a github.com URL. Extra
// path segments like /tree/main/programs are accepted and ignored.
func ParseRepoURL(rawURL string) (owner, repo string, err error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" || len(trimmed) > MaxRepoURLLength {
		return "", "", ErrInvalidRepoURL
	}
	match := repoURLPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return "", "", ErrInvalidRepoURL
	}
	return match[1], match[2], nil
}

// IsRelevantFile reports whether a path matches the analyzed extensions.
func IsRelevantFile(path string) bool {
	for _, ext := range RelevantExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// FetchRepository downloads the relevant files from a repository's default
// branch: repo metadata for the branch name, the recursive tree, then a
// capped set of blobs. Individual blob failures are logged and skipped.
func (c *GitHubClient) FetchRepository(ctx context.Context, rawURL string) (*RepoFetchResult, error) {
	owner, repo, err := ParseRepoURL(rawURL)
	if err != nil {
		return nil, err
	}

	var repoData struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := c.doJSON(ctx, fmt.Sprintf("/repos/%s/%s", owner, repo), &repoData); err != nil {
		return nil, fmt.Errorf("failed to fetch repository %s/%s: %w", owner, repo, err)
	}
	branch := repoData.DefaultBranch
	if branch == "" {
		branch = "main"
	}

	var treeData struct {
		Tree []struct {
			Path string `json:"path"`
			Type string `json:"type"`
		} `json:"tree"`
	}
	if err := c.doJSON(ctx, fmt.Sprintf("/repos/%s/%s/git/trees/%s?recursive=1", owner, repo, branch), &treeData); err != nil {
		return nil, fmt.Errorf("failed to fetch tree of %s/%s: %w", owner, repo, err)
	}

	var relevant []string
	for _, item := range treeData.Tree {
		if item.Type != "blob" || !IsRelevantFile(item.Path) {
			continue
		}
		relevant = append(relevant, item.Path)
		if len(relevant) >= maxFilesPerFetch {
			break
		}
	}

	files := make([]models.ScannedFile, 0, len(relevant))
	for _, path := range relevant {
		content, err := c.fetchFileContent(ctx, owner, repo, path)
		if err != nil {
			log.Warnf("[SourceFetch] Failed to fetch %s/%s:%s: %v", owner, repo, path, err)
			continue
		}
		files = append(files, models.ScannedFile{
			Name:    path,
			Content: content,
			Size:    int64(len(content)),
		})
	}

	return &RepoFetchResult{
		Owner:  owner,
		Repo:   repo,
		Branch: branch,
		Files:  files,
	}, nil
}

// fetchFileContent downloads and decodes one base64 blob.
func (c *GitHubClient) fetchFileContent(ctx context.Context, owner, repo, path string) (string, error) {
	var data struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := c.doJSON(ctx, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, path), &data); err != nil {
		return "", err
	}
	if data.Encoding != "base64" {
		return "", fmt.Errorf("unexpected encoding %q for %s", data.Encoding, path)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(data.Content, "\n", ""))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func (c *GitHubClient) doJSON(ctx context.Context, path string, out interface{}) error {
	baseURL := strings.TrimRight(c.APIBaseURL, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("github request failed: %s status=%d body=%s", path, resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}
