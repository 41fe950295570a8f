package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Client uploads files to an HTTP image-hosting service.
type Client struct {
	client    *http.Client
	uploadURL string
	apiToken  string
}

func NewClient(uploadURL, apiToken string) *Client {
	return &Client{
		client:    &http.Client{Timeout: 30 * time.Second},
		uploadURL: uploadURL,
		apiToken:  apiToken,
	}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// Upload posts the file as multipart form data together with the folder tag.
// All failures are wrapped in ErrUpload.
func (c *Client) Upload(ctx context.Context, file File, folder string) (string, error) {
	var body bytes.Buffer

	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", file.Name)
	if err != nil {
		return "", fmt.Errorf("%w: creating form file: %w", ErrUpload, err)
	}

	if _, err := io.Copy(part, file.Reader); err != nil {
		return "", fmt.Errorf("%w: reading file: %w", ErrUpload, err)
	}

	if err := mw.WriteField("folder", folder); err != nil {
		return "", fmt.Errorf("%w: writing folder field: %w", ErrUpload, err)
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: closing form: %w", ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %w", ErrUpload, err)
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())

	if c.apiToken != "" {
		req.Header.Set("Authorization", "Token "+c.apiToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: executing request: %w", ErrUpload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: unexpected status code %d", ErrUpload, resp.StatusCode)
	}

	var ur uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", fmt.Errorf("%w: decoding response: %w", ErrUpload, err)
	}

	if ur.URL == "" {
		return "", fmt.Errorf("%w: hosting returned no url", ErrUpload)
	}

	return ur.URL, nil
}
