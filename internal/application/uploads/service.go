package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"
)

const signedURLTTLSeconds = 3600

var (
	ErrNotConfigured   = errors.New("Image uploads are not configured")
	ErrInvalidFileName = errors.New("file_name must be a .jpg, .jpeg, .png or .webp file")
)

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// StorageClient signs upload URLs for an object storage bucket.
type StorageClient interface {
	CreateSignedUploadURL(ctx context.Context, bucket, objectPath string) (string, error)
}

// SupabaseClient talks to the Supabase Storage HTTP API with the service_role key.
type SupabaseClient struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

type signedUploadResponse struct {
	SignedURL      string `json:"signedUrl"`
	SignedURLSnake string `json:"signed_url"`
	URL            string `json:"url"`
}

func (c *SupabaseClient) CreateSignedUploadURL(ctx context.Context, bucket, objectPath string) (string, error) {
	if c.BaseURL == "" || c.SecretKey == "" {
		return "", ErrNotConfigured
	}
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	base := strings.TrimRight(c.BaseURL, "/")
	url := fmt.Sprintf("%s/storage/v1/object/upload/sign/%s/%s", base, bucket, objectPath)

	body, _ := json.Marshal(map[string]interface{}{
		"expiresIn": signedURLTTLSeconds,
		"upsert":    false,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 403 "Invalid Compact JWS" means the anon key was configured instead of service_role.
		return "", fmt.Errorf("supabase error: status %d body: %s", resp.StatusCode, string(respBody))
	}

	var data signedUploadResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", fmt.Errorf("supabase response decode: %w", err)
	}
	switch {
	case data.SignedURL != "":
		return absolute(base, data.SignedURL), nil
	case data.SignedURLSnake != "":
		return absolute(base, data.SignedURLSnake), nil
	case data.URL != "":
		return absolute(base, data.URL), nil
	}
	return "", fmt.Errorf("supabase returned no signed URL, body: %s", string(respBody))
}

// absolute resolves the sign endpoint's URLs, which are relative to /storage/v1.
func absolute(base, u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	if !strings.HasPrefix(u, "/storage/v1/") {
		u = "/storage/v1" + u
	}
	return base + u
}

// Service hands out signed upload URLs for listing photos.
type Service struct {
	Client      StorageClient
	SupabaseURL string
	Bucket      string
	Now         func() time.Time
}

// UploadResult is returned to the client; PublicURL becomes the listing's image_url.
type UploadResult struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Path      string `json:"path"`
}

// ProductImageUploadURL signs an upload slot under the seller's folder.
func (s *Service) ProductImageUploadURL(ctx context.Context, userID, fileName string) (*UploadResult, error) {
	if s.Client == nil || s.SupabaseURL == "" {
		return nil, ErrNotConfigured
	}
	name, err := sanitizeFileName(fileName)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	objectPath := fmt.Sprintf("%s/%d-%s", unsafeChars.ReplaceAllString(userID, "_"), now.UnixMilli(), name)

	bucket := s.Bucket
	if bucket == "" {
		bucket = "product-images"
	}
	signedURL, err := s.Client.CreateSignedUploadURL(ctx, bucket, objectPath)
	if err != nil {
		return nil, err
	}
	return &UploadResult{
		UploadURL: signedURL,
		PublicURL: fmt.Sprintf("%s/storage/v1/object/public/%s/%s", strings.TrimRight(s.SupabaseURL, "/"), bucket, objectPath),
		Path:      objectPath,
	}, nil
}

func sanitizeFileName(fileName string) (string, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	if !allowedExt[ext] {
		return "", ErrInvalidFileName
	}
	stem := unsafeChars.ReplaceAllString(strings.TrimSuffix(base, path.Ext(base)), "-")
	stem = strings.Trim(stem, "-.")
	if stem == "" {
		stem = "image"
	}
	if len(stem) > 80 {
		stem = stem[:80]
	}
	return stem + ext, nil
}
