package services

import (
	"encoding/csv"
	"strings"
	"testing"
)

func readCSV(b []byte) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(string(b)))
	return r.ReadAll()
}

func TestExportResponsesCSV(t *testing.T) {
	rows := dashboardRows()
	// out of order on purpose
	rows[0], rows[2] = rows[2], rows[0]
	b, err := ExportResponsesCSV(rows)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	recs, err := readCSV(b)
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(recs) != 1+len(rows) {
		t.Fatalf("want %d rows, got %d", 1+len(rows), len(recs))
	}
	if recs[0][0] != "id" || recs[0][len(recs[0])-1] != "updated_at" {
		t.Fatalf("bad header: %v", recs[0])
	}
	col := map[string]int{}
	for i, h := range recs[0] {
		col[h] = i
	}
	for i, want := range []string{"1", "2", "3"} {
		if recs[i+1][col["id"]] != want {
			t.Fatalf("row %d id=%s, want %s", i+1, recs[i+1][col["id"]], want)
		}
	}
	anna := recs[1]
	if got := anna[col["topic_ranking"]]; got != "WATER|FOOD|ENERGY|TECHNOLOGY|CLIMATE|HEALTH" {
		t.Fatalf("ranking cell: %q", got)
	}
	if anna[col["learned_something_new"]] != "true" || anna[col["created_at"]] != "2025-09-17T09:00:00Z" {
		t.Fatalf("anna row: %v", anna)
	}
	cees := recs[3]
	if cees[col["feeling_before"]] != "" || cees[col["age"]] != "" || cees[col["topic_ranking"]] != "" {
		t.Fatalf("absent values must be empty: %v", cees)
	}
	if cees[col["is_new_checkout_user"]] != "true" || cees[col["phase"]] != "checkout_only" {
		t.Fatalf("cees flags: %v", cees)
	}
}

func TestExportResponsesCSVEmpty(t *testing.T) {
	b, err := ExportResponsesCSV(nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	recs, err := readCSV(b)
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("want header only, got %d rows", len(recs))
	}
}

func TestExportNeutralizesFormulas(t *testing.T) {
	rows := dashboardRows()
	rows[0].Name = `=HYPERLINK("http://x","a")`
	rows[0].VisitingWithOther = "+cmd"
	rows[0].MostInterestingLearned = "@SUM(A1)"
	rows[1].ActionChoice = "-2+3"
	rows[1].Name = "Bea-Lotte"
	b, err := ExportResponsesCSV(rows)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	recs, err := readCSV(b)
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	col := map[string]int{}
	for i, h := range recs[0] {
		col[h] = i
	}
	cases := []struct {
		row  int
		col  string
		want string
	}{
		{1, "name", `'=HYPERLINK("http://x","a")`},
		{1, "visiting_with_other", "'+cmd"},
		{1, "most_interesting_learned", "'@SUM(A1)"},
		{2, "action_choice", "'-2+3"},
		{2, "name", "Bea-Lotte"},
	}
	for _, c := range cases {
		if got := recs[c.row][col[c.col]]; got != c.want {
			t.Errorf("row %d %s = %q, want %q", c.row, c.col, got, c.want)
		}
	}
}
