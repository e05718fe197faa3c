// Package geo resuelve la ciudad del cliente con un servicio de
// geolocalización por IP que responde JSON.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpoint sigue el formato de ipapi.co; %s es la IP (vacía = la del
// pedido).
const DefaultEndpoint = "https://ipapi.co/%sjson/"

type Locator struct {
	endpoint   string
	httpClient *http.Client
}

func NewLocator(endpoint string) *Locator {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	return &Locator{endpoint: endpoint, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

type lookupResp struct {
	City   string `json:"city"`
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

func (l *Locator) City(ctx context.Context, ip string) (string, error) {
	seg := ""
	if ip = strings.TrimSpace(ip); ip != "" {
		seg = ip + "/"
	}
	url := l.endpoint
	if strings.Contains(url, "%s") {
		url = fmt.Sprintf(l.endpoint, seg)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("geo: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out lookupResp
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return "", fmt.Errorf("geo: decode: %w", err)
	}
	if out.Error {
		return "", fmt.Errorf("geo: %s", out.Reason)
	}
	if strings.TrimSpace(out.City) == "" {
		return "", errors.New("geo: ciudad vacía")
	}
	return out.City, nil
}
