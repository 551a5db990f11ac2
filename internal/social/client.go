package social

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/unweightedai/kol-trust-service/internal/config"
	"github.com/unweightedai/kol-trust-service/internal/errs"
)

// Post is one social-media post with its engagement counts.
type Post struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Likes     int       `json:"likes"`
	Reposts   int       `json:"reposts"`
	Replies   int       `json:"replies"`
}

// AccountMetrics are the public metrics of a social account.
type AccountMetrics struct {
	Handle    string    `json:"handle"`
	Followers int       `json:"followers"`
	Following int       `json:"following"`
	PostCount int       `json:"post_count"`
	CreatedAt time.Time `json:"created_at"`
}

// AgeDays returns the account age in whole days.
func (m *AccountMetrics) AgeDays(now time.Time) int {
	return int(now.Sub(m.CreatedAt).Hours() / 24)
}

// Client fetches posts and account metrics from the social platform.
// Unknown handles yield empty results, not errors.
type Client interface {
	GetUserPosts(ctx context.Context, handle string, limit, daysBack int) ([]Post, error)
	GetAccountMetrics(ctx context.Context, handle string) (*AccountMetrics, error)
}

// TwitterClient implements Client against the Twitter v2 API
type TwitterClient struct {
	http    *resty.Client
	baseURL string
}

// NewTwitterClient creates a client using bearer-token auth
func NewTwitterClient(cfg config.TwitterConfig) *TwitterClient {
	return &TwitterClient{
		http: resty.New().
			SetRetryCount(3).
			SetTimeout(15 * time.Second).
			SetAuthToken(cfg.BearerToken),
		baseURL: cfg.BaseURL,
	}
}

type userResponse struct {
	Data *struct {
		ID            string    `json:"id"`
		Username      string    `json:"username"`
		CreatedAt     time.Time `json:"created_at"`
		PublicMetrics struct {
			FollowersCount int `json:"followers_count"`
			FollowingCount int `json:"following_count"`
			TweetCount     int `json:"tweet_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

type tweetsResponse struct {
	Data []struct {
		ID            string    `json:"id"`
		Text          string    `json:"text"`
		CreatedAt     time.Time `json:"created_at"`
		PublicMetrics struct {
			LikeCount    int `json:"like_count"`
			RetweetCount int `json:"retweet_count"`
			ReplyCount   int `json:"reply_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

// GetUserPosts fetches a handle's recent posts inside the lookback
// window. An unknown handle returns an empty slice.
func (c *TwitterClient) GetUserPosts(ctx context.Context, handle string, limit, daysBack int) ([]Post, error) {
	userID, err := c.lookupUserID(ctx, handle)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, nil
	}

	startTime := time.Now().AddDate(0, 0, -daysBack).UTC().Format(time.RFC3339)

	var result tweetsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"max_results":  fmt.Sprintf("%d", limit),
			"start_time":   startTime,
			"tweet.fields": "created_at,public_metrics",
		}).
		SetResult(&result).
		Get(fmt.Sprintf("%s/users/%s/tweets", c.baseURL, userID))
	if err != nil {
		return nil, &errs.ExternalServiceError{Service: "twitter", Err: err}
	}
	if resp.IsError() {
		return nil, &errs.ExternalServiceError{
			Service: "twitter",
			Err:     fmt.Errorf("tweets lookup returned status %d", resp.StatusCode()),
		}
	}

	posts := make([]Post, 0, len(result.Data))
	for _, tw := range result.Data {
		posts = append(posts, Post{
			ID:        tw.ID,
			Text:      tw.Text,
			CreatedAt: tw.CreatedAt,
			Likes:     tw.PublicMetrics.LikeCount,
			Reposts:   tw.PublicMetrics.RetweetCount,
			Replies:   tw.PublicMetrics.ReplyCount,
		})
	}
	return posts, nil
}

// GetAccountMetrics fetches follower/following/post counts and the
// creation date for a handle. Unknown handles return nil.
func (c *TwitterClient) GetAccountMetrics(ctx context.Context, handle string) (*AccountMetrics, error) {
	var result userResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("user.fields", "created_at,public_metrics").
		SetResult(&result).
		Get(fmt.Sprintf("%s/users/by/username/%s", c.baseURL, handle))
	if err != nil {
		return nil, &errs.ExternalServiceError{Service: "twitter", Err: err}
	}
	if resp.StatusCode() == 404 || result.Data == nil {
		return nil, nil
	}
	if resp.IsError() {
		return nil, &errs.ExternalServiceError{
			Service: "twitter",
			Err:     fmt.Errorf("user lookup returned status %d", resp.StatusCode()),
		}
	}

	return &AccountMetrics{
		Handle:    result.Data.Username,
		Followers: result.Data.PublicMetrics.FollowersCount,
		Following: result.Data.PublicMetrics.FollowingCount,
		PostCount: result.Data.PublicMetrics.TweetCount,
		CreatedAt: result.Data.CreatedAt,
	}, nil
}

func (c *TwitterClient) lookupUserID(ctx context.Context, handle string) (string, error) {
	var result userResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get(fmt.Sprintf("%s/users/by/username/%s", c.baseURL, handle))
	if err != nil {
		return "", &errs.ExternalServiceError{Service: "twitter", Err: err}
	}
	if resp.StatusCode() == 404 || result.Data == nil {
		return "", nil
	}
	if resp.IsError() {
		return "", &errs.ExternalServiceError{
			Service: "twitter",
			Err:     fmt.Errorf("user lookup returned status %d", resp.StatusCode()),
		}
	}
	return result.Data.ID, nil
}
