package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"SecondChance/internal/model"
)

// Error — ответ сервера со статусом 4xx/5xx.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client обращается к REST API каталога по адресу коллекции (ServerURL + MountPath).
type Client struct {
	ItemsURL string
	HTTP     *http.Client
}

// NewClient создаёт клиента с таймаутом по умолчанию.
func NewClient(itemsURL string) *Client {
	return &Client{
		ItemsURL: strings.TrimRight(itemsURL, "/"),
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

// List — GET коллекции.
func (c *Client) List(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if err := c.do(ctx, http.MethodGet, c.ItemsURL, nil, "", http.StatusOK, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Get — GET одного объявления.
func (c *Client) Get(ctx context.Context, id int64) (*model.Item, error) {
	var it model.Item
	if err := c.do(ctx, http.MethodGet, c.itemURL(id), nil, "", http.StatusOK, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// Create отправляет поля формой multipart; imagePath, если задан, уходит в поле image.
func (c *Client) Create(ctx context.Context, fields map[string]string, imagePath string) (*model.Item, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return nil, err
		}
	}

	if imagePath != "" {
		f, err := os.Open(imagePath)
		if err != nil {
			return nil, fmt.Errorf("open image: %w", err)
		}
		defer f.Close()
		fw, err := mw.CreateFormFile("image", filepath.Base(imagePath))
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(fw, f); err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var it model.Item
	if err := c.do(ctx, http.MethodPost, c.ItemsURL, &buf, mw.FormDataContentType(), http.StatusCreated, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// Update отправляет JSON с переданными полями и возвращает сообщение сервера.
func (c *Client) Update(ctx context.Context, id int64, fields map[string]any) (string, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	var msg messageBody
	if err := c.do(ctx, http.MethodPut, c.itemURL(id), bytes.NewReader(b), "application/json", http.StatusOK, &msg); err != nil {
		return "", err
	}
	return msg.Message, nil
}

// Delete удаляет объявление и возвращает сообщение сервера.
func (c *Client) Delete(ctx context.Context, id int64) (string, error) {
	var msg messageBody
	if err := c.do(ctx, http.MethodDelete, c.itemURL(id), nil, "", http.StatusOK, &msg); err != nil {
		return "", err
	}
	return msg.Message, nil
}

type messageBody struct {
	Message string `json:"message"`
}

func (c *Client) itemURL(id int64) string {
	return c.ItemsURL + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader, contentType string, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != want {
		var msg messageBody
		_ = json.Unmarshal(data, &msg)
		return &Error{Status: resp.StatusCode, Message: msg.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
