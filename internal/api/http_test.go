package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/store"

	"github.com/shopspring/decimal"
)

const (
	testAdminKey = "secret-admin"
	testBotToken = "123456:TEST"
)

func newTestServer(t *testing.T, cfg HTTPConfig) (*httptest.Server, *LedgerService) {
	t.Helper()
	svc, _ := newTestService(t)
	srv := httptest.NewServer(NewHandler(svc, cfg).Routes())
	t.Cleanup(srv.Close)
	return srv, svc
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func credit(t *testing.T, svc *LedgerService, userId, amount string) {
	t.Helper()
	ctx := context.Background()
	err := svc.store.Update(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser(ctx, userId)
		if err != nil {
			return err
		}
		u.Balance = u.Balance.Add(decimal.RequireFromString(amount))
		return tx.SaveUser(ctx, u)
	})
	if err != nil {
		t.Fatalf("Failed to credit %s: %v", userId, err)
	}
}

func signedInitData(userId int64, startParam string, authDate time.Time) string {
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("user", `{"id":`+strconv.FormatInt(userId, 10)+`,"first_name":"Ada","last_name":"L","username":"ada"}`)
	if startParam != "" {
		values.Set("start_param", startParam)
	}
	return signInitData(values, testBotToken)
}

// signInitData signs values the way Telegram signs Mini App launch data
func signInitData(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + values.Get(k)
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))

	signed := url.Values{}
	for k, v := range values {
		signed[k] = v
	}
	signed.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return signed.Encode()
}

func TestHTTP_TapFlow(t *testing.T) {
	srv, _ := newTestServer(t, HTTPConfig{AdminKey: testAdminKey})

	status := doJSON(t, http.MethodPost, srv.URL+"/api/users", map[string]string{"user_id": "42", "name": "Ada"}, nil, nil)
	if status != http.StatusOK {
		t.Fatalf("Register returned %d", status)
	}

	var tap models.TapResult
	for i := 0; i < 5; i++ {
		status = doJSON(t, http.MethodPost, srv.URL+"/api/users/42/tap", nil, nil, &tap)
		if status != http.StatusOK {
			t.Fatalf("Tap returned %d", status)
		}
	}
	if !tap.Success || !tap.Balance.Equal(decimal.RequireFromString("0.010")) {
		t.Errorf("Expected balance 0.010 after five taps, got %+v", tap)
	}

	var profile models.UserProfile
	if status = doJSON(t, http.MethodGet, srv.URL+"/api/users/42", nil, nil, &profile); status != http.StatusOK {
		t.Fatalf("Profile returned %d", status)
	}
	if profile.User.TotalTaps != 5 {
		t.Errorf("Expected 5 total taps, got %d", profile.User.TotalTaps)
	}
}

func TestHTTP_ErrorStatuses(t *testing.T) {
	srv, _ := newTestServer(t, HTTPConfig{AdminKey: testAdminKey})
	admin := map[string]string{headerAdminKey: testAdminKey}

	tests := []struct {
		name    string
		method  string
		path    string
		body    any
		headers map[string]string
		want    int
	}{
		{"unknown user tap", http.MethodPost, "/api/users/nobody/tap", nil, nil, http.StatusNotFound},
		{"unknown user profile", http.MethodGet, "/api/users/nobody", nil, nil, http.StatusNotFound},
		{"register without id", http.MethodPost, "/api/users", map[string]string{}, nil, http.StatusBadRequest},
		{"admin without key", http.MethodGet, "/api/admin/stats", nil, nil, http.StatusForbidden},
		{"admin wrong key", http.MethodGet, "/api/admin/stats", nil, map[string]string{headerAdminKey: "nope"}, http.StatusForbidden},
		{"unknown withdrawal", http.MethodPost, "/api/admin/withdrawals/missing/process", map[string]string{"status": "paid"}, admin, http.StatusNotFound},
		{"bad status filter", http.MethodGet, "/api/admin/withdrawals?status=lost", nil, admin, http.StatusBadRequest},
		{"invalid settings", http.MethodPut, "/api/admin/settings", map[string]string{"base_tap_value": "-1"}, admin, http.StatusBadRequest},
		{"health", http.MethodGet, "/healthz", nil, nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := doJSON(t, tt.method, srv.URL+tt.path, tt.body, tt.headers, nil)
			if got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestHTTP_WithdrawalLifecycle(t *testing.T) {
	srv, svc := newTestServer(t, HTTPConfig{AdminKey: testAdminKey})
	ctx := context.Background()
	admin := map[string]string{headerAdminKey: testAdminKey}

	if _, _, err := svc.EnsureUser(ctx, "42", "Ada", "", ""); err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	var rejected models.WithdrawalResult
	doJSON(t, http.MethodPost, srv.URL+"/api/users/42/withdrawals",
		map[string]string{"amount": "250", "upi_id": "ada@upi"}, nil, &rejected)
	if rejected.Success || rejected.Reason != models.ReasonInsufficientFunds {
		t.Fatalf("Expected insufficient balance result, got %+v", rejected)
	}

	credit(t, svc, "42", "300")

	var created models.WithdrawalResult
	status := doJSON(t, http.MethodPost, srv.URL+"/api/users/42/withdrawals",
		map[string]string{"amount": "250", "upi_id": "ada@upi"}, nil, &created)
	if status != http.StatusOK || !created.Success {
		t.Fatalf("Expected withdrawal created, got %d %+v", status, created)
	}

	var processed models.Withdrawal
	status = doJSON(t, http.MethodPost, srv.URL+"/api/admin/withdrawals/"+created.Withdrawal.Id+"/process",
		map[string]string{"status": "rejected", "note": "bad upi"}, admin, &processed)
	if status != http.StatusOK || processed.Status != models.WithdrawalRejected {
		t.Fatalf("Expected rejection, got %d %+v", status, processed)
	}

	status = doJSON(t, http.MethodPost, srv.URL+"/api/admin/withdrawals/"+created.Withdrawal.Id+"/process",
		map[string]string{"status": "paid"}, admin, nil)
	if status != http.StatusConflict {
		t.Errorf("Expected 409 for already processed withdrawal, got %d", status)
	}

	var profile models.UserProfile
	doJSON(t, http.MethodGet, srv.URL+"/api/users/42", nil, nil, &profile)
	if !profile.User.Balance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected refunded balance 300, got %s", profile.User.Balance)
	}

	var ledger struct {
		Entries []models.LedgerEntry `json:"entries"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/api/users/42/ledger", nil, nil, &ledger)
	if len(ledger.Entries) != 2 {
		t.Errorf("Expected hold and refund entries, got %d", len(ledger.Entries))
	}
}

func TestHTTP_InitData(t *testing.T) {
	srv, _ := newTestServer(t, HTTPConfig{AdminKey: testAdminKey, BotToken: testBotToken})
	now := time.Now()

	status := doJSON(t, http.MethodPost, srv.URL+"/api/users", map[string]string{"user_id": "42"}, nil, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without init data, got %d", status)
	}

	tampered := signedInitData(42, "", now) + "&extra=1"
	status = doJSON(t, http.MethodPost, srv.URL+"/api/users", map[string]string{}, map[string]string{headerInitData: tampered}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for tampered init data, got %d", status)
	}

	good := map[string]string{headerInitData: signedInitData(42, "", now)}
	var registered struct {
		User    models.User `json:"user"`
		Created bool        `json:"created"`
	}
	// The body id is ignored in favour of the signed identity
	status = doJSON(t, http.MethodPost, srv.URL+"/api/users", map[string]string{"user_id": "999"}, good, &registered)
	if status != http.StatusOK || registered.User.Id != "42" || !registered.Created {
		t.Fatalf("Expected user 42 registered, got %d %+v", status, registered)
	}
	if registered.User.Name != "Ada L" {
		t.Errorf("Expected display name from init data, got %q", registered.User.Name)
	}

	if status = doJSON(t, http.MethodPost, srv.URL+"/api/users/42/tap", nil, good, nil); status != http.StatusOK {
		t.Errorf("Expected own tap to succeed, got %d", status)
	}
	if status = doJSON(t, http.MethodPost, srv.URL+"/api/users/7/tap", nil, good, nil); status != http.StatusForbidden {
		t.Errorf("Expected 403 tapping for someone else, got %d", status)
	}

	stale := map[string]string{headerInitData: signedInitData(42, "", now.Add(-48*time.Hour))}
	if status = doJSON(t, http.MethodPost, srv.URL+"/api/users/42/tap", nil, stale, nil); status != http.StatusUnauthorized {
		t.Errorf("Expected 401 for stale init data, got %d", status)
	}
}

func TestHTTP_InitDataRequiredWithBotToken(t *testing.T) {
	srv, svc := newTestServer(t, HTTPConfig{AdminKey: testAdminKey, BotToken: testBotToken})
	ctx := context.Background()

	if _, _, err := svc.EnsureUser(ctx, "777", "Victim", "", ""); err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	credit(t, svc, "777", "300")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"register", http.MethodPost, "/api/users", map[string]string{"user_id": "777"}},
		{"profile", http.MethodGet, "/api/users/777", nil},
		{"tap", http.MethodPost, "/api/users/777/tap", nil},
		{"vip", http.MethodPost, "/api/users/777/vip", map[string]any{"tier": "vip2", "days": 30}},
		{"withdraw", http.MethodPost, "/api/users/777/withdrawals", map[string]string{"amount": "200", "upi_id": "someone@bank"}},
		{"withdrawal history", http.MethodGet, "/api/users/777/withdrawals", nil},
		{"ledger", http.MethodGet, "/api/users/777/ledger", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := doJSON(t, tt.method, srv.URL+tt.path, tt.body, nil, nil); got != http.StatusUnauthorized {
				t.Errorf("Expected 401 without init data, got %d", got)
			}
		})
	}

	u, err := svc.store.GetUser(ctx, "777")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if !u.Balance.Equal(decimal.NewFromInt(300)) || u.TotalTaps != 0 || u.VipTier != models.TierFree {
		t.Errorf("Expected user untouched, got balance=%s taps=%d tier=%s", u.Balance, u.TotalTaps, u.VipTier)
	}
	withdrawals, err := svc.ListWithdrawals(ctx, store.WithdrawalFilter{UserId: "777"})
	if err != nil {
		t.Fatalf("ListWithdrawals failed: %v", err)
	}
	if len(withdrawals) != 0 {
		t.Errorf("Expected no withdrawals, got %d", len(withdrawals))
	}
}

func TestValidateInitData(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	data := signedInitData(42, "ref_7", now)

	u, err := ValidateInitData(data, testBotToken, time.Hour, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("ValidateInitData failed: %v", err)
	}
	if u.Id != "42" || u.Username != "ada" || u.StartParam != "ref_7" {
		t.Errorf("Unexpected user %+v", u)
	}

	if _, err := ValidateInitData(data, "other-token", time.Hour, now); err == nil {
		t.Error("Expected failure with a different bot token")
	}
	if _, err := ValidateInitData("", testBotToken, 0, now); err != ErrInitDataMissing {
		t.Errorf("Expected ErrInitDataMissing, got %v", err)
	}
	if _, err := ValidateInitData(data, testBotToken, 0, now.Add(365*24*time.Hour)); err != nil {
		t.Errorf("Expected no age check with zero maxAge, got %v", err)
	}
}
