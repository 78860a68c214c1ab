package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"delivery-audit/internal/data"
)

func TestDebugObjectName(t *testing.T) {
	testCases := []struct {
		prefix   string
		document string
		expected string
	}{
		{prefix: "debug", document: "/tmp/dl/INV1234567.pdf", expected: "debug/debug_roi_INV1234567.pdf.png"},
		{prefix: "", document: "note.png", expected: "debug_roi_note.png.png"},
		{prefix: "runs/2024/", document: "a.pdf", expected: "runs/2024/debug_roi_a.pdf.png"},
	}
	for _, tc := range testCases {
		if got := debugObjectName(tc.prefix, tc.document); got != tc.expected {
			t.Errorf("debugObjectName(%q, %q) = %q, expected %q", tc.prefix, tc.document, got, tc.expected)
		}
	}
}

func TestLocalPathFor(t *testing.T) {
	testCases := []struct {
		key      string
		expected string
	}{
		{key: "deliveries/2024/INV1.pdf", expected: filepath.Join("/work", "deliveries", "2024", "INV1.pdf")},
		{key: "INV1.pdf", expected: filepath.Join("/work", "INV1.pdf")},
		{key: "../escape/INV1.pdf", expected: filepath.Join("/work", "escape", "INV1.pdf")},
	}
	for _, tc := range testCases {
		if got := localPathFor("/work", tc.key); got != tc.expected {
			t.Errorf("localPathFor(%q) = %q, expected %q", tc.key, got, tc.expected)
		}
	}
}

func TestLocalPathFor_SameBaseNameInDifferentFolders(t *testing.T) {
	// Arrange
	a := localPathFor("/work", "depot-a/INV1000001.pdf")
	b := localPathFor("/work", "depot-b/INV1000001.pdf")

	// Assert
	if a == b {
		t.Fatalf("both objects map to %q", a)
	}
	if data.TicketID(a) != "1000001" || data.TicketID(b) != "1000001" {
		t.Errorf("ticket id lost: %q %q", data.TicketID(a), data.TicketID(b))
	}
}

func TestIsListedDocument(t *testing.T) {
	testCases := []struct {
		key      string
		expected bool
	}{
		{key: "notes/INV1000001.pdf", expected: true},
		{key: "notes/scan.PNG", expected: true},
		{key: "notes/debug_roi_INV1000001.pdf.png", expected: false},
		{key: "debug_roi_scan.png", expected: false},
		{key: "notes/readme.txt", expected: false},
	}
	for _, tc := range testCases {
		if got := isListedDocument(tc.key); got != tc.expected {
			t.Errorf("isListedDocument(%q) = %v, expected %v", tc.key, got, tc.expected)
		}
	}
}

func TestOptionalTime(t *testing.T) {
	if optionalTime(nil) != nil {
		t.Errorf("expected nil for absent time")
	}
	tv := data.MustTime(6, 7)
	if s := optionalTime(&tv); s == nil || *s != "06:07" {
		t.Errorf("unexpected value %v", s)
	}
}

func TestRedisStore_RoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	ctx := context.Background()
	key := "delivery:reference:test:" + uuid.NewString()
	store, err := NewRedisStore(ctx, url, key)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	defer store.Close()
	defer store.client.Del(ctx, key)

	if tv, err := store.Lookup(ctx, "1234567"); tv != nil || err != nil {
		t.Fatalf("expected absent reference, got %v, %v", tv, err)
	}
	if err := store.Put(ctx, "1234567", data.MustTime(14, 37)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	tv, err := store.Lookup(ctx, "1234567")
	if err != nil || tv == nil || tv.String() != "14:37" {
		t.Errorf("unexpected lookup %v, %v", tv, err)
	}
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	url := os.Getenv("DATABASE_TEST_URL")
	if url == "" {
		t.Skip("DATABASE_TEST_URL not set")
	}
	ctx := context.Background()
	store, err := NewPostgresStore(ctx, url)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	ticket := fmt.Sprintf("T%d", time.Now().UnixNano())
	if err := store.Put(ctx, ticket, data.MustTime(8, 15)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	tv, err := store.Lookup(ctx, ticket)
	if err != nil || tv == nil || tv.String() != "08:15" {
		t.Errorf("unexpected lookup %v, %v", tv, err)
	}

	runID := uuid.NewString()
	hw := data.MustTime(8, 20)
	diff := 5
	records := []data.Record{
		{RunID: runID, TicketID: ticket, Filename: "a.pdf", HandwrittenTime: &hw, ReferenceTime: tv, Status: data.StatusOk, DiffMinutes: &diff, ProcessedAt: time.Now()},
		{RunID: runID, TicketID: data.TicketFallback, Filename: "b.pdf", Status: data.StatusNoAnchor, ProcessedAt: time.Now()},
	}
	if err := store.SaveRecords(ctx, records); err != nil {
		t.Fatalf("SaveRecords() error = %v", err)
	}
	var count int
	if err := store.pool.QueryRow(ctx, `SELECT count(*) FROM delivery_audit WHERE run_id = $1`, runID).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 rows, got %d", count)
	}
}
