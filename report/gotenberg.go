package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrRender is returned when Gotenberg rejects a conversion.
var ErrRender = errors.New("report: render failed")

// Page describes the sheet Gotenberg prints on. Sizes are in inches.
type Page struct {
	Width, Height float64
	Margin        float64
	Landscape     bool
}

// LetterPage is the sheet used for requisitions.
var LetterPage = Page{Width: 8.5, Height: 11, Margin: 0.4}

// Client talks to the Gotenberg chromium route.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Client for baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Ping checks that Gotenberg answers its health route.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg health status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts html into a PDF on the letter sheet.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	return c.Render(ctx, html, LetterPage)
}

// Render converts html into a PDF laid out on page.
func (c *Client) Render(ctx context.Context, html string, page Page) ([]byte, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(form, html, page))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forms/chromium/convert/html", pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: gotenberg status %d", ErrRender, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func writeForm(form *multipart.Writer, html string, page Page) error {
	part, err := form.CreateFormFile("files", "index.html")
	if err != nil {
		return err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return err
	}
	fields := map[string]string{
		"paperWidth":      formatInches(page.Width),
		"paperHeight":     formatInches(page.Height),
		"marginTop":       formatInches(page.Margin),
		"marginBottom":    formatInches(page.Margin),
		"marginLeft":      formatInches(page.Margin),
		"marginRight":     formatInches(page.Margin),
		"landscape":       strconv.FormatBool(page.Landscape),
		"printBackground": "true",
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return err
		}
	}
	return form.Close()
}

func formatInches(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
