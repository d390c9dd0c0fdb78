package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/vctt94/holdemtable/pkg/poker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HTTPURL turns a server address into the base URL of its HTTP endpoints.
func HTTPURL(server string) (string, error) {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "http"
	case "https", "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String(), nil
}

func getJSON(ctx context.Context, server, path string, v any) error {
	base, err := HTTPURL(server)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("GET %s: %s", path, e.Error)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// FetchState returns the spectator view of the table.
func FetchState(ctx context.Context, server string) (*poker.TableSnapshot, error) {
	var s poker.TableSnapshot
	if err := getJSON(ctx, server, "/state", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// FetchRecords returns the persisted table records.
func FetchRecords(ctx context.Context, server string) (*Records, error) {
	var r Records
	if err := getJSON(ctx, server, "/records", &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CheckHealth queries the HTTP health endpoint.
func CheckHealth(ctx context.Context, server string) (string, error) {
	var h struct {
		Status string `json:"status"`
	}
	if err := getJSON(ctx, server, "/health", &h); err != nil {
		return "", err
	}
	return h.Status, nil
}

// CheckGRPCHealth queries the standard gRPC health service at addr.
func CheckGRPCHealth(ctx context.Context, addr string) (string, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return "", err
	}
	defer conn.Close()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return "", err
	}
	return resp.GetStatus().String(), nil
}
