package market

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// UserAgent is sent with every provider request; some quote APIs reject Go's default.
const UserAgent = "Mozilla/5.0 (compatible; mf_tracker/1.0)"

// NewHTTPClient returns the client shared by the HTTP providers.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Get performs an HTTP GET and returns the body of a 200 response.
func Get(client *http.Client, addr string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot http GET %v%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GetJSON performs an HTTP GET and unmarshals the JSON response into data.
func GetJSON(client *http.Client, addr string, data interface{}) error {
	body, err := Get(client, addr)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, data)
}
