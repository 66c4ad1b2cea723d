package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"quest-widget-system/models"
	"quest-widget-system/progression"
	"quest-widget-system/utils"
)

// APIClient talks to the widget backend. Every request carries the project's
// widget key; the backend resolves the project from it, so the client never
// sends project IDs except inside verification payloads.
type APIClient struct {
	baseURL   string
	widgetKey string
	http      *http.Client
}

func NewAPIClient(baseURL, widgetKey string, timeout time.Duration) *APIClient {
	client := utils.HTTPClient
	if timeout > 0 && timeout != client.Timeout {
		client = &http.Client{Timeout: timeout}
	}
	return &APIClient{
		baseURL:   baseURL,
		widgetKey: widgetKey,
		http:      client,
	}
}

// apiError is a non-2xx reply, carrying the backend's {"error","cause"} body
// when it sent one.
type apiError struct {
	Status int
	Msg    string `json:"error"`
	Cause  string `json:"cause"`
}

func (e *apiError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Msg)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("X-Widget-Key", c.widgetKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// RemoteConfig is the widget bootstrap payload: project presentation plus
// the authoritative task list.
type RemoteConfig struct {
	ProjectID   string        `json:"project_id"`
	Name        string        `json:"name"`
	Status      string        `json:"status"`
	AccentColor string        `json:"accent_color"`
	Position    string        `json:"position"`
	Theme       string        `json:"theme"`
	Size        string        `json:"size"`
	Tasks       []models.Task `json:"tasks"`
}

func (c *APIClient) FetchConfig(ctx context.Context) (*RemoteConfig, error) {
	var cfg RemoteConfig
	if err := c.do(ctx, http.MethodGet, "/w/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *APIClient) UpsertUser(ctx context.Context, wallet string) (string, error) {
	var resp struct {
		UserID string `json:"user_id"`
	}
	body := map[string]string{"wallet_address": wallet}
	if err := c.do(ctx, http.MethodPost, "/w/users", body, &resp); err != nil {
		return "", err
	}
	return resp.UserID, nil
}

// RemoteProgress is the authoritative per-project progress row.
type RemoteProgress struct {
	XP            int64      `json:"xp"`
	Streak        int        `json:"streak"`
	LastClaimDate *time.Time `json:"last_claim_date"`
	DailyClaimed  bool       `json:"daily_claimed"`
	Level         int        `json:"level"`
}

func (c *APIClient) GetProgress(ctx context.Context, userID string) (*RemoteProgress, error) {
	var prog RemoteProgress
	if err := c.do(ctx, http.MethodGet, "/w/users/"+userID+"/progress", nil, &prog); err != nil {
		return nil, err
	}
	return &prog, nil
}

func (c *APIClient) SetProgressXP(ctx context.Context, userID string, xp int64) error {
	body := map[string]int64{"xp": xp}
	return c.do(ctx, http.MethodPut, "/w/users/"+userID+"/progress", body, nil)
}

// RemoteCompletion mirrors one completion row.
type RemoteCompletion struct {
	TaskID      string `json:"task_id"`
	CompletedOn string `json:"completed_on"`
	XPAwarded   int64  `json:"xp_awarded"`
	Source      string `json:"source"`
}

func (c *APIClient) ListCompletions(ctx context.Context, userID string) ([]RemoteCompletion, error) {
	var resp struct {
		Completions []RemoteCompletion `json:"completions"`
	}
	if err := c.do(ctx, http.MethodGet, "/w/users/"+userID+"/completions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Completions, nil
}

// InsertCompletion records a completion. granted=false means the server had
// the row already, i.e. another tab or an earlier session got there first.
func (c *APIClient) InsertCompletion(ctx context.Context, userID, taskID, completedOn string, xpAwarded int64) (bool, error) {
	var resp struct {
		Granted bool `json:"granted"`
	}
	body := map[string]interface{}{
		"task_id":      taskID,
		"completed_on": completedOn,
		"xp_awarded":   xpAwarded,
	}
	if err := c.do(ctx, http.MethodPost, "/w/users/"+userID+"/completions", body, &resp); err != nil {
		return false, err
	}
	return resp.Granted, nil
}

// GlobalXPResult is the cross-project lifetime aggregate for one wallet.
type GlobalXPResult struct {
	TotalXP int64            `json:"total_xp"`
	Level   int              `json:"level"`
	Tier    progression.Tier `json:"tier"`
}

func (c *APIClient) GlobalXP(ctx context.Context, wallet string) (*GlobalXPResult, error) {
	var resp GlobalXPResult
	if err := c.do(ctx, http.MethodGet, "/w/global-xp/"+url.PathEscape(wallet), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DailyClaimResult mirrors the server's claim reply.
type DailyClaimResult struct {
	Success    bool   `json:"success"`
	NewTotalXP int64  `json:"new_total_xp"`
	NewStreak  int    `json:"new_streak"`
	Bonus      int64  `json:"bonus"`
	Message    string `json:"message,omitempty"`
}

func (c *APIClient) ClaimDaily(ctx context.Context, userID string) (*DailyClaimResult, error) {
	var resp DailyClaimResult
	if err := c.do(ctx, http.MethodPost, "/w/users/"+userID+"/claims/daily", map[string]string{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LeaderboardClaimResult mirrors the server's leaderboard-reward reply.
type LeaderboardClaimResult struct {
	Success bool   `json:"success"`
	Reward  int64  `json:"reward"`
	Rank    int    `json:"rank"`
	Message string `json:"message,omitempty"`
}

func (c *APIClient) ClaimLeaderboard(ctx context.Context, userID, period string) (*LeaderboardClaimResult, error) {
	var resp LeaderboardClaimResult
	body := map[string]string{"period": period}
	if err := c.do(ctx, http.MethodPost, "/w/users/"+userID+"/claims/leaderboard", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) Rank(ctx context.Context, userID string) (int, error) {
	var resp struct {
		Rank int `json:"rank"`
	}
	if err := c.do(ctx, http.MethodGet, "/w/users/"+userID+"/rank", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Rank, nil
}

func (c *APIClient) TodayBoosts(ctx context.Context, wallet string) ([]string, error) {
	var resp struct {
		Platforms []string `json:"platforms"`
	}
	if err := c.do(ctx, http.MethodGet, "/w/boosts/"+url.PathEscape(wallet)+"/today", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Platforms, nil
}

func (c *APIClient) RecordBoost(ctx context.Context, userID, platform string, xp int64) (bool, error) {
	var resp struct {
		Granted bool `json:"granted"`
	}
	body := map[string]interface{}{"platform": platform, "xp": xp}
	if err := c.do(ctx, http.MethodPost, "/w/users/"+userID+"/boosts", body, &resp); err != nil {
		return false, err
	}
	return resp.Granted, nil
}

// VerifyRequest is the signed-challenge payload for hold verification.
type VerifyRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
	ProjectID string `json:"project_id"`
	TaskID    string `json:"task_id"`
}

// VerifyResult mirrors the backend's verification verdict.
type VerifyResult struct {
	Success          bool   `json:"success"`
	XPAwarded        int64  `json:"xp_awarded"`
	AlreadyCompleted bool   `json:"already_completed"`
	Error            string `json:"error"`
	Details          string `json:"details"`
}

func (c *APIClient) VerifyHold(ctx context.Context, kind models.TaskKind, req VerifyRequest) (*VerifyResult, error) {
	path := "/w/verify/nft"
	if kind == models.TaskKindTokenHold {
		path = "/w/verify/token"
	}
	var resp VerifyResult
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
