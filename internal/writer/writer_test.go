package writer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"delivery-audit/internal/data"
)

func record(filename string, status data.Status) data.Record {
	return data.Record{TicketID: data.TicketID(filename), Filename: filename, Status: status}
}

func TestCSVWriter_AppendMode(t *testing.T) {
	// Arrange
	outputPath := filepath.Join(t.TempDir(), "append_test.csv")
	writer := NewCSVWriter(data.MapCSVRecord, data.GetCSVHeader)
	defer writer.Close()

	tv := data.MustTime(14, 37)
	first := record("INV1234567.pdf", data.StatusReferenceMissing)
	first.HandwrittenTime = &tv
	second := record("INV7654321.pdf", data.StatusNoAnchor)

	// Act
	err1 := writer.WriteToFile([]data.Record{first}, outputPath)
	err2 := writer.WriteToFile([]data.Record{second}, outputPath)

	// Assert
	if err1 != nil {
		t.Fatalf("First write failed: %v", err1)
	}
	if err2 != nil {
		t.Fatalf("Second write failed: %v", err2)
	}

	records := readCSVFile(t, outputPath)
	if len(records) != 3 {
		t.Fatalf("expected 3 records (header + data), got %d", len(records))
	}
	if !stringSlicesEqual(records[0], data.GetCSVHeader()) {
		t.Errorf("expected header %v, got %v", data.GetCSVHeader(), records[0])
	}
	if records[1][0] != "1234567" || records[1][2] != "14:37" || records[2][4] != "NoAnchor" {
		t.Errorf("data integrity check failed: %v", records[1:])
	}
}

func TestCSVWriter_ReplaceMode(t *testing.T) {
	// Arrange
	outputPath := filepath.Join(t.TempDir(), "replace_test.csv")
	writer := NewCSVWriter(data.MapCSVRecord, data.GetCSVHeader)
	defer writer.Close()

	// Act
	err1 := writer.WriteToFile([]data.Record{record("original.pdf", data.StatusOk)}, outputPath)
	err2 := writer.WriteToFile([]data.Record{record("replaced.pdf", data.StatusOk)}, outputPath, true)

	// Assert
	if err1 != nil || err2 != nil {
		t.Fatalf("writes failed: %v, %v", err1, err2)
	}
	records := readCSVFile(t, outputPath)
	if len(records) != 2 {
		t.Fatalf("expected 2 records after replace, got %d", len(records))
	}
	if records[1][1] != "replaced.pdf" {
		t.Errorf("expected replaced content, got %s", records[1][1])
	}
}

func TestCSVWriter_ConcurrentWrites(t *testing.T) {
	// Arrange
	outputPath := filepath.Join(t.TempDir(), "concurrent_test.csv")
	writer := NewCSVWriter(data.MapCSVRecord, data.GetCSVHeader)
	defer writer.Close()

	numGoroutines := 5
	var wg sync.WaitGroup

	// Act
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rec := record(fmt.Sprintf("concurrent_%d.pdf", id), data.StatusOk)
			if err := writer.WriteToFile([]data.Record{rec}, outputPath); err != nil {
				t.Errorf("Goroutine %d failed: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	// Assert
	records := readCSVFile(t, outputPath)
	if len(records) != 1+numGoroutines {
		t.Errorf("expected %d records, got %d", 1+numGoroutines, len(records))
	}
}

func TestCSVWriter_EmptyBatchWritesHeader(t *testing.T) {
	// Arrange
	outputPath := filepath.Join(t.TempDir(), "empty_test.csv")
	writer := NewCSVWriter(data.MapCSVRecord, data.GetCSVHeader)
	defer writer.Close()

	// Act
	err := writer.WriteToFile([]data.Record{}, outputPath, true)

	// Assert
	if err != nil {
		t.Fatalf("Writing empty data failed: %v", err)
	}
	records := readCSVFile(t, outputPath)
	if len(records) != 1 {
		t.Errorf("expected header only, got %d rows", len(records))
	}
}

func TestCSVWriter_InvalidPath(t *testing.T) {
	// Arrange
	writer := NewCSVWriter(data.MapCSVRecord, data.GetCSVHeader)
	defer writer.Close()

	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	// Act
	err := writer.WriteToFile([]data.Record{record("test.pdf", data.StatusOk)}, filepath.Join(blocker, "test.csv"))

	// Assert
	if err == nil {
		t.Errorf("expected error for invalid path, got none")
	}
}

func TestJSONWriter_ReplaceAndAppend(t *testing.T) {
	// Arrange
	outputPath := filepath.Join(t.TempDir(), "results.json")
	writer := NewJSONWriter[data.Record]()
	defer writer.Close()

	diff := 33
	hw := data.MustTime(15, 10)
	ref := data.MustTime(14, 37)
	first := record("INV1234567.pdf", data.StatusDiscrepancy)
	first.HandwrittenTime, first.ReferenceTime, first.DiffMinutes = &hw, &ref, &diff

	// Act
	if err := writer.WriteToFile([]data.Record{first}, outputPath, true); err != nil {
		t.Fatalf("replace write failed: %v", err)
	}
	if err := writer.WriteToFile([]data.Record{record("scan.pdf", data.StatusError)}, outputPath); err != nil {
		t.Fatalf("append write failed: %v", err)
	}

	// Assert
	raw, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0]["handwrittenTime"] != "15:10" || got[0]["diffMinutes"] != float64(33) {
		t.Errorf("unexpected first entry %v", got[0])
	}
	if got[1]["ticketId"] != data.TicketFallback || got[1]["handwrittenTime"] != nil {
		t.Errorf("unexpected second entry %v", got[1])
	}
}

func TestJSONWriter_RejectsCorruptExisting(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "results.json")
	if err := os.WriteFile(outputPath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	writer := NewJSONWriter[data.Record]()
	defer writer.Close()

	if err := writer.WriteToFile([]data.Record{record("a.pdf", data.StatusOk)}, outputPath); err == nil {
		t.Errorf("expected error appending to a corrupt file")
	}
}

// Helper functions
func readCSVFile(t *testing.T, path string) [][]string {
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("failed to read CSV: %v", err)
	}
	return records
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}
