package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pawkat/vrcroster/internal/config"
	"github.com/pawkat/vrcroster/internal/models"
)

// VRChatClient talks to the VRChat web API. Authentication is cookie based:
// Login performs HTTP basic auth plus TOTP verification and the session
// cookie lives in the client's jar for the rest of the run.
type VRChatClient struct {
	BaseURL    string
	Client     *http.Client
	limiter    *rate.Limiter
	username   string
	password   string
	totpSecret string
}

func NewVRChatClient(username, password, totpSecret string) *VRChatClient {
	// cookiejar.New never fails with nil options
	jar, _ := cookiejar.New(nil)
	return &VRChatClient{
		BaseURL:    config.VRChatBaseURL,
		Client:     &http.Client{Jar: jar, Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(config.PacingInterval), 1),
		username:   username,
		password:   password,
		totpSecret: totpSecret,
	}
}

type vrchatError struct {
	Error struct {
		Message    string `json:"message"`
		StatusCode int    `json:"status_code"`
	} `json:"error"`
}

// request executes one paced call against the VRChat API and decodes the
// response into out. Authorization via basicAuth is only set during login;
// afterwards the cookie jar carries the session.
func (vrc *VRChatClient) request(ctx context.Context, method, path string, body, out interface{}, basicAuth bool) error {
	if err := vrc.limiter.Wait(ctx); err != nil {
		return err
	}

	fullURL := vrc.BaseURL + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", config.VRChatUserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if basicAuth {
		req.SetBasicAuth(url.QueryEscape(vrc.username), url.QueryEscape(vrc.password))
	}

	resp, err := vrc.Client.Do(req)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"method": method,
			"url":    fullURL,
			"error":  err,
		}).Error("VRChat API call failed")
		return fmt.Errorf("vrchat api call: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"url":   fullURL,
				"error": err,
			}).Warning("Failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		var apiErr vrchatError
		_ = json.Unmarshal(bodyBytes, &apiErr)
		logrus.WithFields(logrus.Fields{
			"method":      method,
			"url":         fullURL,
			"status_code": resp.StatusCode,
			"message":     apiErr.Error.Message,
		}).Error("VRChat API returned an error")
		return fmt.Errorf("vrchat api error %d: %s", resp.StatusCode, apiErr.Error.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		logrus.WithFields(logrus.Fields{
			"method": method,
			"url":    fullURL,
			"error":  err,
		}).Error("Failed to decode VRChat API response")
		return fmt.Errorf("json decode: %w", err)
	}
	return nil
}

type authUserResponse struct {
	ID                    string   `json:"id"`
	DisplayName           string   `json:"displayName"`
	RequiresTwoFactorAuth []string `json:"requiresTwoFactorAuth"`
}

// Login establishes the session. When the API demands a second factor, a
// TOTP code is generated from the configured secret and verified before
// the user endpoint is queried again.
func (vrc *VRChatClient) Login(ctx context.Context) (models.User, error) {
	var user authUserResponse
	if err := vrc.request(ctx, http.MethodGet, "/auth/user", nil, &user, true); err != nil {
		return models.User{}, fmt.Errorf("login: %w", err)
	}

	if len(user.RequiresTwoFactorAuth) > 0 {
		code, err := totp.GenerateCode(vrc.totpSecret, time.Now())
		if err != nil {
			return models.User{}, fmt.Errorf("generate totp code: %w", err)
		}

		var verify struct {
			Verified bool `json:"verified"`
		}
		body := map[string]string{"code": code}
		if err := vrc.request(ctx, http.MethodPost, "/auth/twofactorauth/totp/verify", body, &verify, false); err != nil {
			return models.User{}, fmt.Errorf("verify totp: %w", err)
		}
		if !verify.Verified {
			return models.User{}, fmt.Errorf("verify totp: code rejected")
		}

		user = authUserResponse{}
		if err := vrc.request(ctx, http.MethodGet, "/auth/user", nil, &user, false); err != nil {
			return models.User{}, fmt.Errorf("login after totp: %w", err)
		}
	}

	if user.ID == "" {
		return models.User{}, fmt.Errorf("login: no authenticated user in response")
	}
	logrus.WithFields(logrus.Fields{
		"user_id":      user.ID,
		"display_name": user.DisplayName,
	}).Info("Logged in to VRChat")
	return models.User{ID: user.ID, DisplayName: user.DisplayName}, nil
}

type vrchatRole struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type vrchatGroupResponse struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Roles    []vrchatRole `json:"roles"`
	MyMember *struct {
		RoleIDs []string `json:"roleIds"`
	} `json:"myMember"`
}

// Group fetches one group with its role definitions and the caller's own
// membership, if any.
func (vrc *VRChatClient) Group(ctx context.Context, groupID string) (models.Group, error) {
	var resp vrchatGroupResponse
	path := fmt.Sprintf("/groups/%s?includeRoles=true", groupID)
	if err := vrc.request(ctx, http.MethodGet, path, nil, &resp, false); err != nil {
		return models.Group{}, fmt.Errorf("get group %s: %w", groupID, err)
	}

	group := models.Group{ID: resp.ID, Name: resp.Name}
	for _, r := range resp.Roles {
		group.Roles = append(group.Roles, models.Role{ID: r.ID, Name: r.Name, Permissions: r.Permissions})
	}
	if resp.MyMember != nil {
		group.IsMember = true
		group.MyRoles = resp.MyMember.RoleIDs
	}
	return group, nil
}

type vrchatMember struct {
	User struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	} `json:"user"`
	RoleIDs []string `json:"roleIds"`
}

// GroupMembers lists every member of a group, walking the offset-paginated
// endpoint until a short page. The authenticated caller is not part of the
// listing; the app layer appends it from the group's own membership data.
func (vrc *VRChatClient) GroupMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	var members []models.GroupMember
	for offset := 0; ; offset += config.MemberPageSize {
		path := fmt.Sprintf("/groups/%s/members?n=%d&offset=%d", groupID, config.MemberPageSize, offset)
		var page []vrchatMember
		if err := vrc.request(ctx, http.MethodGet, path, nil, &page, false); err != nil {
			return nil, fmt.Errorf("list group members %s: %w", groupID, err)
		}
		for _, m := range page {
			members = append(members, models.GroupMember{
				UserID:      m.User.ID,
				DisplayName: m.User.DisplayName,
				RoleIDs:     m.RoleIDs,
			})
		}
		if len(page) < config.MemberPageSize {
			break
		}
	}
	logrus.WithFields(logrus.Fields{
		"group_id": groupID,
		"members":  len(members),
	}).Info("Fetched group members")
	return members, nil
}

// User resolves one VRChat user ID to its profile.
func (vrc *VRChatClient) User(ctx context.Context, userID string) (models.User, error) {
	var resp struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	}
	if err := vrc.request(ctx, http.MethodGet, "/users/"+userID, nil, &resp, false); err != nil {
		return models.User{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	return models.User{ID: resp.ID, DisplayName: resp.DisplayName}, nil
}

// World fetches one world's passthrough counters.
func (vrc *VRChatClient) World(ctx context.Context, worldID string) (models.World, error) {
	var resp struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Visits    int    `json:"visits"`
		Favorites int    `json:"favorites"`
		Occupants int    `json:"occupants"`
	}
	if err := vrc.request(ctx, http.MethodGet, "/worlds/"+worldID, nil, &resp, false); err != nil {
		return models.World{}, fmt.Errorf("get world %s: %w", worldID, err)
	}
	return models.World{
		ID:        resp.ID,
		Name:      resp.Name,
		Visits:    resp.Visits,
		Favorites: resp.Favorites,
		Occupants: resp.Occupants,
	}, nil
}
