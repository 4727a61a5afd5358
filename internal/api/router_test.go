package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/vehicle-tracker/internal/attachments"
	"github.com/dvloznov/vehicle-tracker/internal/auth"
	"github.com/dvloznov/vehicle-tracker/internal/dashboard"
	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/jobs"
	"github.com/dvloznov/vehicle-tracker/internal/jobs/inmemory"
	"github.com/dvloznov/vehicle-tracker/internal/llm"
	"github.com/dvloznov/vehicle-tracker/internal/logger"
	"github.com/dvloznov/vehicle-tracker/internal/pipeline"
	"github.com/dvloznov/vehicle-tracker/internal/store/memory"
)

var fixedNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

type MockCompleter struct {
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (string, error)
}

func (m *MockCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	return m.CompleteFunc(ctx, req)
}

type memoryObjects struct {
	data  map[string][]byte
	types map[string]string
}

func (m *memoryObjects) Put(ctx context.Context, bucket, object, contentType string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.data[bucket+"/"+object] = b
	m.types[bucket+"/"+object] = contentType
	return nil
}

func (m *memoryObjects) Get(ctx context.Context, bucket, object string) ([]byte, string, error) {
	b, ok := m.data[bucket+"/"+object]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return b, m.types[bucket+"/"+object], nil
}

type testServer struct {
	handler   http.Handler
	store     *memory.Store
	completer *MockCompleter
	jobStore  *inmemory.Store
}

func newTestServer(t *testing.T, defaultKey string) *testServer {
	t.Helper()
	st := memory.New()
	completer := &MockCompleter{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			return `{"transactions":[{"description":"Fuel","amount":"150,000","date":"yesterday","category":"Fuel","transactionType":"Expense"}]}`, nil
		},
	}
	parser := pipeline.NewTransactionParser(completer, st, pipeline.ParserConfig{
		DefaultAPIKey: defaultKey,
		Now:           func() time.Time { return fixedNow },
	})
	bulk := pipeline.NewBulkPersister(st, 2)

	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(10, 1, jobStore)
	if err := queue.Start(context.Background(), jobs.NewProcessor(parser, bulk).Handle); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = queue.Close() })

	objects := &memoryObjects{data: map[string][]byte{}, types: map[string]string{}}

	h := NewHandler(Deps{
		Store:         st,
		Parser:        parser,
		Bulk:          bulk,
		Dashboard:     dashboard.NewServiceWithClock(st, func() time.Time { return fixedNow }),
		Attachments:   attachments.NewService(objects, st, "receipts"),
		Publisher:     queue,
		JobStore:      jobStore,
		Authenticator: auth.HeaderAuthenticator{},
	}, Options{HasDefaultKey: defaultKey != ""}, logger.NewWithWriter(io.Discard))

	return &testServer{handler: h, store: st, completer: completer, jobStore: jobStore}
}

func (s *testServer) do(t *testing.T, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if user != "" {
		req.Header.Set(auth.DefaultUserHeader, user)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestHealthAndIdentity(t *testing.T) {
	s := newTestServer(t, "env-key")

	if rec := s.do(t, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("Expected health 200, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without identity, got %d", rec.Code)
	}
	rec := s.do(t, http.MethodGet, "/api/me", "user-1", nil)
	if got := decode[map[string]interface{}](t, rec); got["userId"] != "user-1" || got["isAuthenticated"] != true {
		t.Errorf("Expected user-1, got %v", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("Expected request id header")
	}
}

func TestVehicleAndTransactionCRUD(t *testing.T) {
	s := newTestServer(t, "env-key")

	rec := s.do(t, http.MethodPost, "/api/vehicles", "user-1", domain.Vehicle{LicensePlate: "51A-12345", Brand: "Honda", Model: "Wave", Year: 2020})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	vehicle := decode[domain.Vehicle](t, rec)

	if rec := s.do(t, http.MethodPost, "/api/vehicles", "user-1", domain.Vehicle{Brand: "Honda"}); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid vehicle, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/transactions", "user-1", domain.Transaction{
		VehicleID: vehicle.ID, Amount: 50000, Date: "2024-03-10", Description: "Parking", Category: domain.CategoryParking,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	tx := decode[domain.Transaction](t, rec)
	if tx.TransactionType != domain.TransactionTypeExpense {
		t.Errorf("Expected type inferred from category, got %s", tx.TransactionType)
	}

	if rec := s.do(t, http.MethodGet, "/api/transactions/"+tx.ID, "user-2", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected another user to get 404, got %d", rec.Code)
	}

	tx.Amount = 60000
	if rec := s.do(t, http.MethodPut, "/api/transactions/"+tx.ID, "user-1", tx); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 on update, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodGet, "/api/transactions?vehicleId="+vehicle.ID, "user-1", nil)
	list := decode[struct {
		Transactions []domain.Transaction `json:"transactions"`
		Count        int                  `json:"count"`
	}](t, rec)
	if list.Count != 1 || list.Transactions[0].Amount != 60000 {
		t.Errorf("Unexpected list %+v", list)
	}

	if rec := s.do(t, http.MethodDelete, "/api/transactions/"+tx.ID, "user-1", nil); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 on delete, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, "/api/transactions/"+tx.ID, "user-1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", rec.Code)
	}
}

func TestParseTransactions(t *testing.T) {
	s := newTestServer(t, "env-key")

	rec := s.do(t, http.MethodPost, "/api/transactions/parse", "user-1", map[string]string{"text": "đổ xăng hôm qua 150k"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[struct {
		Transactions []domain.ParsedTransaction `json:"transactions"`
	}](t, rec)
	want := domain.ParsedTransaction{Description: "Fuel", Amount: 150000, Date: "2024-03-14", Category: domain.CategoryFuel, TransactionType: domain.TransactionTypeExpense}
	if len(got.Transactions) != 1 || got.Transactions[0] != want {
		t.Errorf("Expected %+v, got %+v", want, got.Transactions)
	}

	if rec := s.do(t, http.MethodPost, "/api/transactions/parse", "user-1", map[string]string{"text": "  "}); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for blank text, got %d", rec.Code)
	}
}

func TestParseTransactions_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		defaultKey string
		content    string
		err        error
		wantStatus int
	}{
		{name: "no key anywhere", wantStatus: http.StatusPreconditionFailed},
		{name: "upstream failure", defaultKey: "k", err: domain.ErrUpstreamRequestFailed, wantStatus: http.StatusBadGateway},
		{name: "wrong shape", defaultKey: "k", content: `{"foo":1}`, wantStatus: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.defaultKey)
			s.completer.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (string, error) {
				return tt.content, tt.err
			}
			rec := s.do(t, http.MethodPost, "/api/transactions/parse", "user-1", map[string]string{"text": "fuel 100k"})
			if rec.Code != tt.wantStatus {
				t.Errorf("Expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSettingsKeyEnablesParsing(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodGet, "/api/settings", "user-1", nil)
	if got := decode[map[string]bool](t, rec); got["hasApiKey"] || got["hasDefaultKey"] {
		t.Errorf("Expected no keys, got %v", got)
	}

	if rec := s.do(t, http.MethodPut, "/api/settings/api-key", "user-1", map[string]string{"apiKey": "sk-user"}); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, "/api/settings", "user-1", nil)
	if strings.Contains(rec.Body.String(), "sk-user") {
		t.Error("Settings response must not contain the key")
	}

	var usedKey string
	s.completer.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (string, error) {
		usedKey = req.APIKey
		return `[]`, nil
	}
	if rec := s.do(t, http.MethodPost, "/api/transactions/parse", "user-1", map[string]string{"text": "x"}); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with user key, got %d", rec.Code)
	}
	if usedKey != "sk-user" {
		t.Errorf("Expected user key to be used, got %q", usedKey)
	}
}

func TestBulkTransactions(t *testing.T) {
	s := newTestServer(t, "k")

	good := domain.ParsedTransaction{Description: "Wash", Amount: 40000, Date: "2024-03-01", Category: domain.CategoryWash, TransactionType: domain.TransactionTypeExpense}
	bad := good
	bad.Amount = -1

	rec := s.do(t, http.MethodPost, "/api/transactions/bulk", "user-1", map[string]interface{}{
		"vehicleId":    "v1",
		"transactions": []domain.ParsedTransaction{good, good},
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/transactions/bulk", "user-1", map[string]interface{}{
		"vehicleId":    "v1",
		"transactions": []domain.ParsedTransaction{good, bad},
	})
	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("Expected 207, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decode[pipeline.BulkResult](t, rec)
	if res.Succeeded != 1 || res.Failed != 1 || res.Items[1].Error == "" {
		t.Errorf("Unexpected bulk result %+v", res)
	}

	if rec := s.do(t, http.MethodPost, "/api/transactions/bulk", "user-1", map[string]interface{}{"transactions": []domain.ParsedTransaction{good}}); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without vehicle, got %d", rec.Code)
	}

	txs, _ := s.store.ListTransactions(context.Background(), "user-1")
	if len(txs) != 3 {
		t.Errorf("Expected 3 stored transactions, got %d", len(txs))
	}
}

func TestParseJobs(t *testing.T) {
	s := newTestServer(t, "k")

	rec := s.do(t, http.MethodPost, "/api/transactions/parse-jobs", "user-1", map[string]interface{}{"text": "fuel", "vehicleId": "v1", "autoSave": true})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	jobID := decode[map[string]string](t, rec)["jobId"]

	deadline := time.Now().Add(2 * time.Second)
	var job jobs.ParseTextJob
	for time.Now().Before(deadline) {
		rec = s.do(t, http.MethodGet, "/api/jobs/"+jobID, "user-1", nil)
		job = decode[jobs.ParseTextJob](t, rec)
		if job.Status.IsTerminal() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if job.Status != jobs.JobStatusCompleted || len(job.Results) != 1 || job.Bulk == nil || job.Bulk.Succeeded != 1 {
		t.Fatalf("Unexpected job %+v", job)
	}

	if rec := s.do(t, http.MethodGet, "/api/jobs/"+jobID, "user-2", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for another user's job, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, "/api/jobs?limit=5", "user-1", nil)
	if got := decode[struct {
		Count int `json:"count"`
	}](t, rec); got.Count != 1 {
		t.Errorf("Expected 1 job, got %d", got.Count)
	}
	if rec := s.do(t, http.MethodGet, "/api/jobs?limit=zero", "user-1", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestRemindersAndDashboard(t *testing.T) {
	s := newTestServer(t, "k")
	ctx := context.Background()

	_, _ = s.store.AddTransaction(ctx, "user-1", domain.Transaction{VehicleID: "v1", Amount: 100000, Date: "2024-03-14", Category: domain.CategoryFuel, TransactionType: domain.TransactionTypeExpense})
	_, _ = s.store.AddTransaction(ctx, "user-1", domain.Transaction{VehicleID: "v1", Amount: 300000, Date: "2024-03-12", Category: domain.CategoryServiceIncome, TransactionType: domain.TransactionTypeIncome})

	rec := s.do(t, http.MethodPost, "/api/reminders", "user-1", domain.Reminder{VehicleID: "v1", Type: domain.ReminderInsurance, DueDate: "2024-04-01", Description: "Renew"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	reminder := decode[domain.Reminder](t, rec)

	rec = s.do(t, http.MethodGet, "/api/dashboard?range=week", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	stats := decode[domain.DashboardStats](t, rec)
	if stats.TotalExpenses != 100000 || stats.TotalIncome != 300000 || len(stats.UpcomingReminders) != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}

	rec = s.do(t, http.MethodPost, "/api/reminders/"+reminder.ID+"/complete", "user-1", nil)
	if got := decode[domain.Reminder](t, rec); !got.IsCompleted {
		t.Errorf("Expected completed reminder, got %+v", got)
	}
	rec = s.do(t, http.MethodGet, "/api/reminders?includeCompleted=false", "user-1", nil)
	if got := decode[struct {
		Count int `json:"count"`
	}](t, rec); got.Count != 0 {
		t.Errorf("Expected completed reminder hidden, got %d", got.Count)
	}

	if rec := s.do(t, http.MethodGet, "/api/dashboard?range=decade", "user-1", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown range, got %d", rec.Code)
	}
}

func TestAttachments(t *testing.T) {
	s := newTestServer(t, "k")
	txID, _ := s.store.AddTransaction(context.Background(), "user-1", domain.Transaction{VehicleID: "v1", Amount: 1, Date: "2024-03-01", Category: domain.CategoryFine, TransactionType: domain.TransactionTypeExpense})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "ticket.png")
	_, _ = part.Write([]byte("png-bytes"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/"+txID+"/attachments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(auth.DefaultUserHeader, "user-1")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/api/transactions/"+txID+"/attachments/0", "user-1", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "png-bytes" {
		t.Errorf("Expected file bytes, got %d %q", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "ticket.png") {
		t.Errorf("Unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}

	if rec := s.do(t, http.MethodGet, "/api/transactions/"+txID+"/attachments/0", "user-2", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for another user, got %d", rec.Code)
	}
}
