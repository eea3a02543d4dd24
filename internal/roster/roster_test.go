package roster

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func sheetBytes(t *testing.T, cells map[string]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for ref, value := range cells {
		if err := f.SetCellValue("Sheet1", ref, value); err != nil {
			t.Fatalf("set cell %s: %v", ref, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestFromXLSXSkipsHeader(t *testing.T) {
	data := sheetBytes(t, map[string]any{
		"A1": "Name",
		"A2": "Maria Lopez",
		"A4": "Ben Zhao",
		"A5": "  Priya Anand  ",
	})

	names, err := FromXLSX(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("FromXLSX failed: %v", err)
	}
	want := []string{"Maria Lopez", "Ben Zhao", "Priya Anand"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestFromXLSXWithoutHeader(t *testing.T) {
	data := sheetBytes(t, map[string]any{
		"A1": "Maria Lopez",
		"A2": "Ben Zhao",
	})

	names, err := FromXLSX(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("FromXLSX failed: %v", err)
	}
	want := []string{"Maria Lopez", "Ben Zhao"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestFromXLSXUsesFirstNonEmptyCell(t *testing.T) {
	data := sheetBytes(t, map[string]any{
		"B1": "Maria Lopez",
		"A2": "Ben Zhao",
		"B2": "ignored note",
	})

	names, err := FromXLSX(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("FromXLSX failed: %v", err)
	}
	want := []string{"Maria Lopez", "Ben Zhao"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestFromXLSXEmptyWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	names, err := FromXLSX(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("FromXLSX failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no names, got %v", names)
	}
}

func TestFromXLSXRejectsGarbage(t *testing.T) {
	_, err := FromXLSX(strings.NewReader("this is not a workbook"))
	if err == nil {
		t.Error("expected an error for a non-xlsx payload")
	}
}

func TestJoin(t *testing.T) {
	got := Join([]string{"Maria Lopez", "Ben Zhao"})
	if got != "Maria Lopez\nBen Zhao" {
		t.Errorf("Join = %q", got)
	}
	if Join(nil) != "" {
		t.Errorf("Join(nil) = %q", Join(nil))
	}
}
