package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// client talks to the encored HTTP API. Flag values are read lazily so
// cobra has parsed them by the time a command runs.
type client struct {
	server *string
	token  *string
	user   *int
	http   *http.Client
}

func newClient(server, token *string, user *int) *client {
	return &client{
		server: server,
		token:  token,
		user:   user,
		http:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *client) apiToken() string {
	if *c.token != "" {
		return *c.token
	}
	return os.Getenv("ENCORE_API_TOKEN")
}

func (c *client) do(method, path string, contentType string, body io.Reader, out any) error {
	url := strings.TrimRight(*c.server, "/") + path
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.apiToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if *c.user > 0 {
		req.Header.Set("X-User-ID", strconv.Itoa(*c.user))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s from %s", resp.Status, url)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *client) getJSON(path string, out any) error {
	return c.do(http.MethodGet, path, "", nil, out)
}

func (c *client) postJSON(path string, body []byte, out any) error {
	return c.do(http.MethodPost, path, "application/json", bytes.NewReader(body), out)
}

// uploadFile submits a score file as multipart form data.
func (c *client) uploadFile(path, filePath, importType, playtype string, out any) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("importType", importType); err != nil {
		return err
	}
	if playtype != "" {
		if err := writer.WriteField("playtype", playtype); err != nil {
			return err
		}
	}
	part, err := writer.CreateFormFile("scoreData", file.Name())
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	return c.do(http.MethodPost, path, writer.FormDataContentType(), &buf, out)
}
