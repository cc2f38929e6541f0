package paginator

import (
	"reflect"
	"strconv"
	"testing"
)

func makeItems(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		name  string
		param string
		want  int
	}{
		{name: "missing", param: "", want: 1},
		{name: "not a number", param: "abc", want: 1},
		{name: "float", param: "3.14", want: 1},
		{name: "zero", param: "0", want: 1},
		{name: "negative", param: "-5", want: 1},
		{name: "valid", param: "7", want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParsePage(tt.param); got != tt.want {
				t.Errorf("ParsePage(%q) = %d, want %d", tt.param, got, tt.want)
			}
		})
	}
}

func TestPaginate_thirteenItems(t *testing.T) {
	items := makeItems(13)

	first := Paginate(items, "1")
	if len(first.Items) != PageSize {
		t.Errorf("want %d items on first page, got %d", PageSize, len(first.Items))
	}
	if first.TotalPages != 2 {
		t.Errorf("want 2 total pages, got %d", first.TotalPages)
	}
	if !first.HasNext || first.HasPrev {
		t.Errorf("first page: want HasNext=true HasPrev=false, got HasNext=%v HasPrev=%v",
			first.HasNext, first.HasPrev)
	}

	second := Paginate(items, "2")
	if len(second.Items) != 3 {
		t.Errorf("want 3 items on second page, got %d", len(second.Items))
	}
	if second.HasNext || !second.HasPrev {
		t.Errorf("second page: want HasNext=false HasPrev=true, got HasNext=%v HasPrev=%v",
			second.HasNext, second.HasPrev)
	}
}

func TestPaginate_outOfRangeClampsToLastPage(t *testing.T) {
	items := makeItems(13)

	page := Paginate(items, "99")
	if page.CurrentPage != 2 {
		t.Errorf("want current page 2, got %d", page.CurrentPage)
	}
	if len(page.Items) != 3 {
		t.Errorf("want 3 items on clamped page, got %d", len(page.Items))
	}
}

func TestPaginate_emptySequence(t *testing.T) {
	page := Paginate([]int{}, "1")
	if page.TotalPages != 1 {
		t.Errorf("want 1 total page for empty input, got %d", page.TotalPages)
	}
	if len(page.Items) != 0 {
		t.Errorf("want 0 items, got %d", len(page.Items))
	}
	if page.HasNext || page.HasPrev {
		t.Errorf("empty page must have no neighbors, got HasNext=%v HasPrev=%v",
			page.HasNext, page.HasPrev)
	}
}

// The concatenation of all pages, in order, must equal the original
// sequence, and the page count must be ceil(total/PageSize).
func TestPaginate_concatenation(t *testing.T) {
	for total := 0; total <= 35; total++ {
		items := makeItems(total)

		wantPages := (total + PageSize - 1) / PageSize
		if wantPages < 1 {
			wantPages = 1
		}

		var got []int
		for p := 1; ; p++ {
			page := Paginate(items, strconv.Itoa(p))
			if page.TotalPages != wantPages {
				t.Fatalf("total=%d: want %d pages, got %d", total, wantPages, page.TotalPages)
			}
			if len(page.Items) > PageSize {
				t.Fatalf("total=%d page=%d: page has %d items, max is %d",
					total, p, len(page.Items), PageSize)
			}
			got = append(got, page.Items...)
			if !page.HasNext {
				break
			}
		}

		if total > 0 && !reflect.DeepEqual(got, items) {
			t.Errorf("total=%d: concatenated pages differ from input", total)
		}
		if total == 0 && len(got) != 0 {
			t.Errorf("total=0: want no items, got %d", len(got))
		}
	}
}
