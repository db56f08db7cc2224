package types

import (
	"testing"
)

func TestTotalPages(t *testing.T) {
	type args struct {
		total int64
		limit int64
	}
	tests := []struct {
		name string
		args args
		want int64
	}{
		{name: "exact fit", args: args{total: 10, limit: 10}, want: 1},
		{name: "two pages", args: args{total: 10, limit: 5}, want: 2},
		{name: "remainder", args: args{total: 10, limit: 3}, want: 4},
		{name: "page size one", args: args{total: 10, limit: 1}, want: 10},
		{name: "zero limit", args: args{total: 10, limit: 0}, want: 0},
		{name: "empty", args: args{total: 0, limit: 10}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TotalPages(tt.args.total, tt.args.limit); got != tt.want {
				t.Errorf("TotalPages() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewPageNeverReturnsNilItems(t *testing.T) {
	p := NewPage[Participant](nil, 0, 1, 10)
	if p.Items == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if p.Pages != 0 {
		t.Errorf("unexpected pages: %d", p.Pages)
	}
}
