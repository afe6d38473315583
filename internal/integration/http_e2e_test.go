//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	server "parkspot/internal/adapters/http_server"
	redisad "parkspot/internal/adapters/redis"
	"parkspot/internal/app"
	"parkspot/internal/domain"
	mysqlrepo "parkspot/internal/storage/mysql"
)

type staticResolver struct{ tokens map[string]domain.Identity }

func (r *staticResolver) Resolve(_ context.Context, token string) (domain.Identity, error) {
	if ident, ok := r.tokens[token]; ok {
		return ident, nil
	}
	return domain.Identity{}, domain.ErrUnauthorized
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = filepath.Join("..", "..", "migrations")
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir %s: %v", dir, err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(b)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func request(t *testing.T, ts *httptest.Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestHTTP_EndToEnd_Marketplace(t *testing.T) {
	// isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=parkspot",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/parkspot?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC", hostPort)

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	// real repo, real cache (miniredis), static identities
	repo := mysqlrepo.New(db)
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	resolver := &staticResolver{tokens: map[string]domain.Identity{
		"tok-owner":  {UserID: "e2e-owner", Name: "Olive Owner", Email: "olive@example.com"},
		"tok-renter": {UserID: "e2e-renter", Name: "Rae Renter", Email: "rae@example.com"},
	}}

	srv := server.New()
	srv.MountHandlers(&server.Handlers{
		Spots:    app.NewSpotService(repo, cache, time.Minute),
		Bookings: app.NewBookingService(repo, repo, cache),
		Resolver: resolver,
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	// owner lists a spot
	status, body := request(t, ts, "POST", "/spots", "tok-owner", map[string]any{
		"neighborhood": "Downtown", "address": "1 Main St", "pricePerDay": 20,
	})
	if status != 200 || body["success"] != true {
		t.Fatalf("create spot: status %d body %v", status, body)
	}
	spotID := body["spotId"].(string)

	// public directory shows it (and warms the cache)
	status, body = request(t, ts, "GET", "/spots", "", nil)
	if status != 200 {
		t.Fatalf("GET /spots: %d", status)
	}
	if spots := body["spots"].([]any); len(spots) != 1 {
		t.Fatalf("expected 1 spot, got %d", len(spots))
	}

	// renter books it
	status, body = request(t, ts, "POST", "/bookings", "tok-renter", map[string]any{"spotId": spotID})
	if status != 200 || body["success"] != true {
		t.Fatalf("book: status %d body %v", status, body)
	}
	bookingID := body["bookingId"].(string)

	// the cached directory was invalidated; the spot is gone from browse
	status, body = request(t, ts, "GET", "/spots", "", nil)
	if status != 200 {
		t.Fatalf("GET /spots after booking: %d", status)
	}
	if spots := body["spots"].([]any); len(spots) != 0 {
		t.Fatalf("booked spot still listed: %v", spots)
	}

	// but stays reachable by direct link
	status, body = request(t, ts, "GET", "/spots/"+spotID, "", nil)
	if status != 200 {
		t.Fatalf("GET /spots/{id}: %d", status)
	}
	if sp := body["spot"].(map[string]any); sp["is_available"] != false {
		t.Fatalf("unexpected spot detail: %v", sp)
	}

	// renter cancels; spot reappears in browse
	status, body = request(t, ts, "DELETE", "/bookings/"+bookingID, "tok-renter", nil)
	if status != 200 || body["success"] != true {
		t.Fatalf("cancel: status %d body %v", status, body)
	}
	status, body = request(t, ts, "GET", "/spots", "", nil)
	if status != 200 {
		t.Fatalf("GET /spots after cancel: %d", status)
	}
	if spots := body["spots"].([]any); len(spots) != 1 {
		t.Fatalf("cancelled spot should be listed again, got %v", spots)
	}

	// owner deletes the listing; no bookings remain so hadBookings=false
	status, body = request(t, ts, "DELETE", "/spots/"+spotID, "tok-owner", nil)
	if status != 200 || body["hadBookings"] != false {
		t.Fatalf("delete spot: status %d body %v", status, body)
	}
}
